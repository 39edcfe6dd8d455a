// Package server exposes the crucible subsystems over HTTP: recycler,
// tuner, chimera console, kernel step/snapshot/gate operations, stored
// telemetry, the eternals roster, a websocket state stream, and
// Prometheus metrics.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/chimera"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/registry"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/tuner"
)

// defaultStreamInterval paces websocket pushes.
const defaultStreamInterval = time.Second

// Unlock traffic is throttled; the two-phase gate is meant to be slow.
const (
	unlockRatePerSecond = 1
	unlockBurst         = 5
)

// Deps are the subsystems the HTTP layer serves. Store and Gatherer may
// be nil (steps are then not persisted and /metrics serves the default
// registry).
type Deps struct {
	Engine   *kernel.Engine
	Recycler *recycler.EntropicRecycler
	Chimera  *chimera.Engine
	Tuner    *tuner.FrequencyTuner
	Registry *registry.Registry
	Store    *store.Store
	Gatherer prometheus.Gatherer
}

// Handlers holds the wired endpoint implementations.
type Handlers struct {
	engine *kernel.Engine
	rec    *recycler.EntropicRecycler
	chim   *chimera.Engine
	tun    *tuner.FrequencyTuner
	reg    *registry.Registry
	st     *store.Store

	gatherer       prometheus.Gatherer
	unlockLimiter  *rate.Limiter
	streamInterval time.Duration
}

// NewHandlers wires the endpoint set.
func NewHandlers(deps Deps) *Handlers {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		engine:         deps.Engine,
		rec:            deps.Recycler,
		chim:           deps.Chimera,
		tun:            deps.Tuner,
		reg:            deps.Registry,
		st:             deps.Store,
		gatherer:       gatherer,
		unlockLimiter:  rate.NewLimiter(rate.Limit(unlockRatePerSecond), unlockBurst),
		streamInterval: defaultStreamInterval,
	}
}

// NewRouter builds the service router with recovery middleware applied.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	RegisterRoutes(router, h)
	return router
}

// RegisterRoutes registers every endpoint on router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/health", h.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/fuel", h.HandleFuel)
		api.POST("/recycle", h.HandleRecycle)
		api.GET("/resonance", h.HandleResonance)
		api.POST("/chimera", h.HandleChimera)

		synthesis := api.Group("/synthesis")
		{
			synthesis.POST("/step", h.HandleStep)
			synthesis.GET("/snapshot", h.HandleSnapshot)
		}

		gate := api.Group("/protocol-zero")
		gate.Use(h.limitUnlocks())
		{
			gate.POST("/request", h.HandleUnlockRequest)
			gate.POST("/activate", h.HandleUnlockActivate)
		}

		api.GET("/telemetry", h.HandleTelemetry)
		api.GET("/telemetry/steps", h.HandleTelemetrySteps)
		api.GET("/eternals", h.HandleEternals)
		api.GET("/stream", h.HandleStream)
	}
}

func (h *Handlers) limitUnlocks() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.unlockLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "unlock traffic is throttled",
				Code:  CodeRateLimited,
			})
			return
		}
		c.Next()
	}
}
