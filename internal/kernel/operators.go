package kernel

import (
	"math/rand"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/cmat"
)

// OperatorPair holds the consciousness operator C and the information
// field Phi. C is Hermitian; Phi starts Hermitian and carries a small
// asymmetric perturbation so the pair is generically non-commuting.
type OperatorPair struct {
	dim int
	c   *cmat.Matrix
	phi *cmat.Matrix
}

// NewOperatorPair seeds both operators of the given dimension from rng.
func NewOperatorPair(dim int, rng *rand.Rand) *OperatorPair {
	if dim < 1 {
		dim = 1
	}
	c := hermitianPart(randomComplex(dim, rng))
	phi := hermitianPart(randomComplex(dim, rng))
	phi = phi.Add(randomComplex(dim, rng).Scale(1e-3))
	return &OperatorPair{dim: dim, c: c, phi: phi}
}

// CommutatorNorm returns the Frobenius norm of C*Phi - Phi*C.
func (p *OperatorPair) CommutatorNorm() float64 {
	return cmat.Commutator(p.c, p.phi).FrobeniusNorm()
}

// EnforceNonCommutativity nudges Phi by minNorm times the identity when
// the commutator norm has fallen below minNorm, and returns the norm
// after the check. It never fails.
func (p *OperatorPair) EnforceNonCommutativity(minNorm float64) float64 {
	if p.CommutatorNorm() < minNorm {
		p.phi = p.phi.Add(cmat.Identity(p.dim).Scale(complex(minNorm, 0)))
	}
	return p.CommutatorNorm()
}

// Dim returns the operator dimension.
func (p *OperatorPair) Dim() int { return p.dim }

func randomComplex(dim int, rng *rand.Rand) *cmat.Matrix {
	m := cmat.New(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			m.Set(i, j, complex(rng.NormFloat64(), rng.NormFloat64()))
		}
	}
	return m
}

func hermitianPart(m *cmat.Matrix) *cmat.Matrix {
	return m.Add(m.Adjoint()).Scale(0.5)
}
