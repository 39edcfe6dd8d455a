package service

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/config"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
)

// testConfig returns a config pointing at a temp database with the
// shortest legal intervals so loops fire during the test window.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Kernel.Dimension = 2
	cfg.Kernel.Seed = 7
	cfg.Kernel.StepIntervalSeconds = 1
	cfg.Tuner.IntervalSeconds = 1
	cfg.Watchman.IntervalSeconds = 1
	cfg.Telemetry.IntervalSeconds = 1
	return cfg
}

// newTestService wires a service with a private metrics registry so
// parallel tests never fight over collector registration.
func newTestService(t *testing.T, cfg config.Config) *Service {
	t.Helper()
	svc, err := New(cfg,
		WithOutput(io.Discard),
		WithPrometheus(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNew_WiresSubsystems(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	assert.NotNil(t, svc.Engine())
	assert.NotNil(t, svc.Store())
	assert.Equal(t, 2, svc.Engine().Dimension())
	assert.InDelta(t, 42.1, svc.rec.Fuel(), 1e-9)
}

func TestBoot_RestoresFuelFromStore(t *testing.T) {
	cfg := testConfig(t)

	seed, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	require.NoError(t, seed.LogTelemetry(context.Background(), 712.8, 77.7))
	require.NoError(t, seed.Close())

	svc := newTestService(t, cfg)
	require.NoError(t, svc.boot(context.Background()))

	assert.InDelta(t, 77.7, svc.rec.Fuel(), 1e-9)
}

func TestBoot_EmptyStoreKeepsStartingFuel(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	require.NoError(t, svc.boot(context.Background()))
	assert.InDelta(t, 42.1, svc.rec.Fuel(), 1e-9)
}

func TestBoot_PrunesWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.KeepRows = 2

	seed, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, seed.LogTelemetry(context.Background(), float64(i), float64(i)))
	}
	require.NoError(t, seed.Close())

	svc := newTestService(t, cfg)
	require.NoError(t, svc.boot(context.Background()))

	rows, err := svc.Store().TelemetryHistory(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	svc := newTestService(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.Addr() != "" },
		2*time.Second, 10*time.Millisecond, "listener never came up")

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get("http://" + svc.Addr() + "/api/fuel")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Both loops sample immediately on startup.
	require.Eventually(t, func() bool {
		rows, err := svc.Store().TelemetryHistory(context.Background(), 5)
		return err == nil && len(rows) >= 1
	}, 2*time.Second, 20*time.Millisecond, "telemetry sampler never wrote")

	require.Eventually(t, func() bool {
		rows, err := svc.Store().StepHistory(context.Background(), 5)
		return err == nil && len(rows) >= 1
	}, 2*time.Second, 20*time.Millisecond, "step driver never wrote")

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}
}

func TestSimulatedErrorSource(t *testing.T) {
	src := SimulatedErrorSource(rand.New(rand.NewSource(1)))

	uptime := 123 * time.Second
	hits := 0
	for i := 0; i < 1000; i++ {
		n := src(uptime)
		if n != 0 {
			hits++
			assert.Equal(t, 3, n)
		}
	}
	// One run in ten reports errors.
	assert.Greater(t, hits, 50)
	assert.Less(t, hits, 200)
}
