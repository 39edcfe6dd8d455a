// Package metrics exposes Prometheus collectors for the crucible
// subsystems. The Metrics type doubles as an observability sink so the
// composition root can fan events into it alongside the log and render
// sinks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/tuner"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/watch"
)

const namespace = "crucible"

// Metrics holds every collector the service registers.
type Metrics struct {
	StepsTotal     prometheus.Counter
	Purity         prometheus.Gauge
	Synthesis      prometheus.Gauge
	CommutatorNorm prometheus.Gauge
	AtlanteanScar  prometheus.Gauge
	GateActivated  prometheus.Gauge

	FuelLevel     prometheus.Gauge
	RecycledTotal prometheus.Counter

	Resonance prometheus.Gauge

	CoherenceDropsTotal prometheus.Counter

	TelemetryWritesTotal prometheus.Counter
}

// New registers all collectors with reg and returns the set. Pass
// prometheus.DefaultRegisterer in production or a fresh registry in
// tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "steps_total",
			Help:      "Total synthesis steps executed",
		}),
		Purity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "purity",
			Help:      "State purity Tr(rho^2) after the latest step",
		}),
		Synthesis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "synthesis",
			Help:      "Twin-coil synthesis value after the latest step",
		}),
		CommutatorNorm: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "commutator_norm",
			Help:      "Frobenius norm of the operator commutator",
		}),
		AtlanteanScar: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "atlantean_scar",
			Help:      "Scar factor applied to the Hamiltonian",
		}),
		GateActivated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kernel",
			Name:      "gate_activated",
			Help:      "1 when protocol zero has been activated",
		}),
		FuelLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "recycler",
			Name:      "fuel_level",
			Help:      "Entropic fuel level",
		}),
		RecycledTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recycler",
			Name:      "recycled_total",
			Help:      "Total failures consumed into fuel",
		}),
		Resonance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tuner",
			Name:      "resonance_hz",
			Help:      "Resonance observed by the latest scan",
		}),
		CoherenceDropsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "coherence_drops_total",
			Help:      "Total coherence drops detected by the watchman",
		}),
		TelemetryWritesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "telemetry_writes_total",
			Help:      "Total telemetry rows persisted",
		}),
	}
}

// Publish implements observability.Observer: events carry the values
// the collectors need, so wiring Metrics into the event fan-out keeps
// every subsystem instrumented without direct coupling.
func (m *Metrics) Publish(_ context.Context, ev observability.Event) {
	switch ev.Type {
	case kernel.EventStepComplete:
		m.StepsTotal.Inc()
		setFromData(m.Purity, ev.Data, "purity")
		setFromData(m.Synthesis, ev.Data, "synthesis")
		setFromData(m.CommutatorNorm, ev.Data, "commutator_norm")
		setFromData(m.AtlanteanScar, ev.Data, "atlantean_scar")
	case kernel.EventGateActivated:
		m.GateActivated.Set(1)
	case recycler.EventConsumed:
		m.RecycledTotal.Inc()
		setFromData(m.FuelLevel, ev.Data, "fuel_level")
	case tuner.EventScan:
		setFromData(m.Resonance, ev.Data, "current_resonance")
	case watch.EventCoherenceDrop:
		m.CoherenceDropsTotal.Inc()
	}
}

func setFromData(g prometheus.Gauge, data map[string]any, key string) {
	if v, ok := data[key].(float64); ok {
		g.Set(v)
	}
}
