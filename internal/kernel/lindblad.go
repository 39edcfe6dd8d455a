package kernel

import (
	"math/cmplx"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/cmat"
)

// traceEps guards the post-step trace renormalization. A step whose
// trace lands inside this window keeps its raw result rather than
// dividing by a near-zero trace.
const traceEps = 1e-12

// Dissipator advances a state matrix by first-order Euler steps of
//
//	drho/dt = -i[H, rho] + sum_k (L_k rho L_k^† - 1/2 {L_k^† L_k, rho})
//
// A nil Hamiltonian means no coherent term.
type Dissipator struct {
	h   *cmat.Matrix
	ops []*cmat.Matrix
}

// NewDissipator builds a stepper with the given Hamiltonian and
// dissipation operators.
func NewDissipator(h *cmat.Matrix, ops ...*cmat.Matrix) *Dissipator {
	return &Dissipator{h: h, ops: append([]*cmat.Matrix(nil), ops...)}
}

// SetHamiltonian replaces the coherent term.
func (d *Dissipator) SetHamiltonian(h *cmat.Matrix) { d.h = h }

// Hamiltonian returns the current coherent term, possibly nil.
func (d *Dissipator) Hamiltonian() *cmat.Matrix { return d.h }

// SetOps replaces the dissipation operator list.
func (d *Dissipator) SetOps(ops []*cmat.Matrix) {
	d.ops = append([]*cmat.Matrix(nil), ops...)
}

// Step returns rho advanced by dt and renormalized to unit trace. The
// renormalization is skipped when the trace magnitude falls below
// traceEps. Returns ErrNilState when rho is nil.
func (d *Dissipator) Step(rho *cmat.Matrix, dt float64) (*cmat.Matrix, error) {
	if rho == nil {
		return nil, ErrNilState
	}
	drho := cmat.New(rho.Dim())
	if d.h != nil {
		drho = drho.Add(cmat.Commutator(d.h, rho).Scale(-1i))
	}
	for _, l := range d.ops {
		ld := l.Adjoint()
		drho = drho.Add(l.Mul(rho).Mul(ld))
		drho = drho.Sub(cmat.Anticommutator(ld.Mul(l), rho).Scale(0.5))
	}
	next := rho.Add(drho.Scale(complex(dt, 0)))
	if tr := next.Trace(); cmplx.Abs(tr) > traceEps {
		next = next.Scale(1 / tr)
	}
	return next, nil
}
