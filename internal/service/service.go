// Package service is the composition root for the crucible: it wires
// config, store, kernel engine, recycler, chimera console, tuner,
// watchman, registry, metrics and the HTTP API, then supervises the
// background loops.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/chimera"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/config"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/metrics"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/registry"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/render"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/server"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/tuner"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// Service owns the wired subsystems and their lifecycles.
type Service struct {
	cfg config.Config

	obs    observability.Observer
	engine *kernel.Engine
	rec    *recycler.EntropicRecycler
	chim   *chimera.Engine
	tun    *tuner.FrequencyTuner
	wm     *watch.Watchman
	reg    *registry.Registry
	st     *store.Store
	met    *metrics.Metrics

	httpSrv *http.Server

	mu   sync.RWMutex
	addr string
}

type options struct {
	out      io.Writer
	registry *prometheus.Registry
	clock    kernel.Clock
}

// Option adjusts service construction.
type Option func(*options)

// WithOutput redirects rendered will blocks (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithPrometheus swaps in a private metrics registry.
func WithPrometheus(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithKernelClock injects the engine clock.
func WithKernelClock(c kernel.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New wires the service from cfg. The store is opened here; call Close
// when done.
func New(cfg config.Config, opts ...Option) (*Service, error) {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if o.registry != nil {
		registerer = o.registry
		gatherer = o.registry
	}
	met := metrics.New(registerer)

	obs := observability.NewMulti(
		observability.NewSlogObserver(slog.Default()),
		render.NewWillObserver(o.out, observability.LevelWarn),
		met,
	)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engineOpts := []kernel.Option{kernel.WithObserver(obs)}
	if cfg.Kernel.Seed != 0 {
		engineOpts = append(engineOpts, kernel.WithSeed(cfg.Kernel.Seed))
	}
	if o.clock != nil {
		engineOpts = append(engineOpts, kernel.WithClock(o.clock))
	}
	engine := kernel.New(cfg.Kernel.Dimension, engineOpts...)

	rec := recycler.New(recycler.WithObserver(obs))
	tun := tuner.New(cfg.Tuner.TargetHz,
		tuner.WithInterval(cfg.Tuner.Interval()),
		tuner.WithObserver(obs),
	)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	wm := watch.New(cfg.Watchman.NodeName, rec,
		watch.WithInterval(cfg.Watchman.Interval()),
		watch.WithObserver(obs),
		watch.WithErrorSource(SimulatedErrorSource(rng)),
	)

	reg := registry.New(registry.WithObserver(obs))
	reg.Build()

	svc := &Service{
		cfg:    cfg,
		obs:    obs,
		engine: engine,
		rec:    rec,
		chim:   chimera.New(rec),
		tun:    tun,
		wm:     wm,
		reg:    reg,
		st:     st,
		met:    met,
	}

	handlers := server.NewHandlers(server.Deps{
		Engine:   engine,
		Recycler: rec,
		Chimera:  svc.chim,
		Tuner:    tun,
		Registry: reg,
		Store:    st,
		Gatherer: gatherer,
	})
	svc.httpSrv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(handlers),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return svc, nil
}

// SimulatedErrorSource reproduces the stand-in failure sampler: one run
// in ten reports the uptime seconds modulo ten as an error count.
func SimulatedErrorSource(rng *rand.Rand) watch.ErrorSource {
	return func(uptime time.Duration) int {
		if rng.Float64() < 0.1 {
			return int(uptime.Seconds()) % 10
		}
		return 0
	}
}

// Engine exposes the kernel for command-layer reads.
func (s *Service) Engine() *kernel.Engine { return s.engine }

// Store exposes the telemetry store for command-layer reads.
func (s *Service) Store() *store.Store { return s.st }

// Addr reports the bound listen address once Run has started serving.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Close releases resources not tied to Run.
func (s *Service) Close() error {
	return s.st.Close()
}

// Run restores persisted state, then supervises the HTTP listener and
// the background loops until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.boot(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	slog.Info("crucible service listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.tun.Run(ctx) })
	g.Go(func() error { return s.wm.Run(ctx) })
	g.Go(func() error { return s.telemetryLoop(ctx) })
	g.Go(func() error { return s.stepLoop(ctx) })

	g.Go(func() error {
		if err := s.httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("crucible service stopped")
	return nil
}

// boot restores the recycler's fuel from the latest persisted sample
// and prunes history when a retention bound is configured.
func (s *Service) boot(ctx context.Context) error {
	row, err := s.st.LatestTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("boot restore: %w", err)
	}
	if row != nil {
		s.rec.RestoreFuel(row.EntropicFuel)
		slog.Info("restored fuel level from store", "fuel_level", row.EntropicFuel)
	}
	if s.cfg.Store.KeepRows > 0 {
		if err := s.st.Prune(ctx, s.cfg.Store.KeepRows); err != nil {
			return fmt.Errorf("boot prune: %w", err)
		}
	}
	return nil
}

// telemetryLoop samples fuel and resonance into the store, immediately
// and then on every interval tick.
func (s *Service) telemetryLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Telemetry.Interval())
	defer ticker.Stop()

	s.sampleTelemetry(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sampleTelemetry(ctx)
		}
	}
}

func (s *Service) sampleTelemetry(ctx context.Context) {
	status := s.tun.Status()
	if err := s.st.LogTelemetry(ctx, status.CurrentResonance, s.rec.Fuel()); err != nil {
		slog.Error("telemetry logging failed", "error", err)
		return
	}
	s.met.TelemetryWritesTotal.Inc()
}

// stepLoop drives the kernel with the configured dt and intent
// strength, persisting diagnostics for each step.
func (s *Service) stepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Kernel.StepInterval())
	defer ticker.Stop()

	s.stepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.stepOnce(ctx)
		}
	}
}

func (s *Service) stepOnce(ctx context.Context) {
	diag, err := s.engine.Step(s.cfg.Kernel.StepSize, s.cfg.Kernel.IntentStrength)
	if err != nil {
		slog.Error("synthesis step failed", "error", err)
		return
	}
	rec := store.StepRecord{
		Dt:             s.cfg.Kernel.StepSize,
		Purity:         diag.Purity,
		CommutatorNorm: diag.CommutatorNorm,
		Synthesis:      diag.Synthesis,
		ProtocolZero:   diag.GateActivated,
		AtlanteanScar:  diag.Scar,
	}
	if err := s.st.LogStep(ctx, rec); err != nil {
		slog.Error("persisting step diagnostics failed", "error", err)
	}
}
