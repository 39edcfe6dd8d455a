// Package kernel implements the reality synthesis engine: a small
// state-evolution core that advances a density-style state matrix with a
// dissipative update, balances the twin coils, keeps the operator pair
// non-commuting, and gates elevated evolution behind a two-phase unlock
// protocol.
//
// The engine owns every matrix and scalar it touches. A single lock
// serializes the four public operations, so concurrent callers always
// observe a consistent state.
package kernel

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/cmat"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/observability"
)

// commutatorFloor is the non-degeneracy floor enforced on the operator
// pair before every step.
const commutatorFloor = 1e-8

// Diagnostics is the result of one step.
type Diagnostics struct {
	Purity         float64   `json:"purity"`
	CommutatorNorm float64   `json:"commutator_norm"`
	Synthesis      float64   `json:"synthesis"`
	GateActivated  bool      `json:"protocol_zero"`
	Scar           float64   `json:"atlantean_scar"`
	Coil           CoilState `json:"coil"`
}

// CoilSnapshot is the coil portion of a snapshot.
type CoilSnapshot struct {
	Alpha   float64 `json:"alpha"`
	LambdaS float64 `json:"lambda_s"`
	PsiC    float64 `json:"psi_c"`
}

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	Dimension     int              `json:"dim"`
	Intent        IntentDescriptor `json:"intent"`
	Coil          CoilSnapshot     `json:"twin_coil"`
	GateActivated bool             `json:"protocol_zero"`
	Scar          float64          `json:"atlantean_scar"`
	StateTrace    float64          `json:"rho_trace"`
	Purity        float64          `json:"rho_purity"`
}

// Engine owns the synthesis state and exposes the four operations the
// service layer may call: Step, Snapshot, RequestUnlock and
// ConfirmUnlock.
type Engine struct {
	mu    sync.Mutex
	dim   int
	clock Clock
	obs   observability.Observer

	intent    *IntentVector
	coil      *TwinCoil
	operators *OperatorPair
	stepper   *Dissipator
	rho       *cmat.Matrix
	gate      *ProtocolGate
}

type engineOptions struct {
	clock    Clock
	observer observability.Observer
	seed     int64
	seeded   bool
}

// Option configures engine construction.
type Option func(*engineOptions)

// WithClock injects the time source used for token expiry and intent
// phase.
func WithClock(c Clock) Option {
	return func(o *engineOptions) { o.clock = c }
}

// WithObserver installs the event sink. Defaults to a no-op.
func WithObserver(obs observability.Observer) Option {
	return func(o *engineOptions) { o.observer = obs }
}

// WithSeed fixes the random seed for the intent direction and the
// operator pair, making construction deterministic.
func WithSeed(seed int64) Option {
	return func(o *engineOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// New constructs an engine of the given dimension. Dimensions below one
// are clamped to one. The state matrix starts maximally mixed, the coils
// start balanced at one, and the gate starts locked.
func New(dim int, opts ...Option) *Engine {
	if dim < 1 {
		dim = 1
	}
	o := engineOptions{
		clock:    systemClock{},
		observer: observability.NoOp{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(o.seed))

	coil := NewTwinCoil(0.5, 1.0, 1.0)
	h0 := cmat.Identity(dim).Scale(complex(coil.SynthesisValue()+0.1, 0))

	return &Engine{
		dim:       dim,
		clock:     o.clock,
		obs:       o.observer,
		intent:    NewIntentVector(dim, ResonanceHz, 1.0, rng),
		coil:      coil,
		operators: NewOperatorPair(dim, rng),
		stepper:   NewDissipator(h0),
		rho:       cmat.Identity(dim).Scale(complex(1/float64(dim), 0)),
		gate:      NewProtocolGate(),
	}
}

// Dimension returns the engine dimension.
func (e *Engine) Dimension() int { return e.dim }

// RegisterDissipators replaces the stepper's dissipation operators.
func (e *Engine) RegisterDissipators(ops ...*cmat.Matrix) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepper.SetOps(ops)
}

// Step advances the state by dt under the current intent strength and
// returns diagnostics. Returns ErrNonPositiveStep when dt is not
// positive.
func (e *Engine) Step(dt, intentStrength float64) (Diagnostics, error) {
	if dt <= 0 {
		return Diagnostics{}, ErrNonPositiveStep
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	coil := e.coil.Balance(intentStrength * 0.01)
	e.operators.EnforceNonCommutativity(commutatorFloor)

	if e.gate.Activated() {
		h := cmat.Identity(e.dim).Scale(complex(coil.Synthesis*(1+e.gate.Scar()), 0))
		e.stepper.SetHamiltonian(h)
	}
	next, err := e.stepper.Step(e.rho, dt)
	if err != nil {
		return Diagnostics{}, err
	}
	e.rho = next

	phase := float64(e.clock.Now().UnixMilli()) * 1e-3
	kick := e.intent.Modulate(intentStrength, phase)
	projector := e.embedProjector(kick)
	// TODO: the convex mix preserves the trace but not positive
	// semi-definiteness; decide whether to project rho back onto the
	// PSD cone after mixing.
	mix := math.Abs(intentStrength) * (0.01 + e.gate.Scar())
	scaled := projector.Scale(1 / (projector.Trace() + traceEps))
	e.rho = e.rho.Scale(complex(1-mix, 0)).Add(scaled.Scale(complex(mix, 0)))

	diag := Diagnostics{
		Purity:         e.purity(),
		CommutatorNorm: e.operators.CommutatorNorm(),
		Synthesis:      coil.Synthesis,
		GateActivated:  e.gate.Activated(),
		Scar:           e.gate.Scar(),
		Coil:           coil,
	}
	e.emit(EventStepComplete, observability.LevelInfo, map[string]any{
		"purity":          diag.Purity,
		"commutator_norm": diag.CommutatorNorm,
		"synthesis":       diag.Synthesis,
		"protocol_zero":   diag.GateActivated,
		"atlantean_scar":  diag.Scar,
		"dt":              dt,
	})
	return diag, nil
}

// Snapshot returns a consistent read-only view of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Dimension: e.dim,
		Intent:    e.intent.Describe(),
		Coil: CoilSnapshot{
			Alpha:   e.coil.Alpha(),
			LambdaS: e.coil.LambdaS(),
			PsiC:    e.coil.PsiC(),
		},
		GateActivated: e.gate.Activated(),
		Scar:          e.gate.Scar(),
		StateTrace:    real(e.rho.Trace()),
		Purity:        e.purity(),
	}
}

// RequestUnlock issues a fresh unlock token for the gate. The confirmer
// must carry at least eight non-whitespace characters.
func (e *Engine) RequestUnlock(confirmer string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	token, err := e.gate.Request(confirmer, e.clock.Now())
	if err != nil {
		return "", err
	}
	hint := token
	if len(hint) > 12 {
		hint = hint[:12] + "..."
	}
	e.emit(EventGateRequested, observability.LevelWarn, map[string]any{
		"token_hint": hint,
	})
	return token, nil
}

// ConfirmUnlock attempts to activate the gate. Denials return false and
// are reported through the observer; they are never errors.
func (e *Engine) ConfirmUnlock(token string, overrideConfirmation bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok, reason := e.gate.Confirm(token, overrideConfirmation, e.clock.Now())
	if !ok {
		level := observability.LevelError
		if reason == DenialOverrideRequired {
			level = observability.LevelWarn
		}
		e.emit(EventGateDenied, level, map[string]any{"reason": reason})
		return false
	}
	e.emit(EventGateActivated, observability.LevelWarn, map[string]any{
		"note":           "internal constraints relaxed (kernel only)",
		"atlantean_scar": e.gate.Scar(),
	})
	return true
}

// GateState reports the gate position under the engine lock.
func (e *Engine) GateState() GateState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.State()
}

// embedProjector forms the outer product of kick with itself and embeds
// it into the engine dimension, truncating or zero-padding as needed.
func (e *Engine) embedProjector(kick []float64) *cmat.Matrix {
	v := make([]complex128, len(kick))
	for i, x := range kick {
		v[i] = complex(x, 0)
	}
	p := cmat.Outer(v)
	if p.Dim() == e.dim {
		return p
	}
	out := cmat.New(e.dim)
	n := min(e.dim, p.Dim())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, p.At(i, j))
		}
	}
	return out
}

// purity returns real(trace(rho^2)). Callers hold the lock.
func (e *Engine) purity() float64 {
	return real(e.rho.Mul(e.rho).Trace())
}
