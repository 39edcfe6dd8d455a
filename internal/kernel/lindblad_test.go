package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/cmat"
)

func maximallyMixed(dim int) *cmat.Matrix {
	return cmat.Identity(dim).Scale(complex(1/float64(dim), 0))
}

// lowering is the two-level amplitude damping operator |0><1|.
func lowering() *cmat.Matrix {
	return cmat.FromRows([][]complex128{
		{0, 1},
		{0, 0},
	})
}

func TestDissipator_Step_NilStateErrors(t *testing.T) {
	d := NewDissipator(nil)

	_, err := d.Step(nil, 0.01)

	assert.ErrorIs(t, err, ErrNilState)
}

func TestDissipator_Step_NoTermsLeavesStateUnchanged(t *testing.T) {
	d := NewDissipator(nil)
	rho := maximallyMixed(4)

	next, err := d.Step(rho, 0.01)

	require.NoError(t, err)
	assert.True(t, next.Equal(rho, 1e-15))
}

func TestDissipator_Step_TraceRenormalizedToOne(t *testing.T) {
	h := cmat.FromRows([][]complex128{
		{1.1, 0.2},
		{0.2, 0.7},
	})
	d := NewDissipator(h, lowering())
	rho := cmat.FromRows([][]complex128{
		{0.6, 0.1 + 0.05i},
		{0.1 - 0.05i, 0.4},
	})

	for i := 0; i < 25; i++ {
		next, err := d.Step(rho, 0.01)
		require.NoError(t, err)
		rho = next
		assert.InDelta(t, 1.0, real(rho.Trace()), 1e-9)
		assert.InDelta(t, 0.0, imag(rho.Trace()), 1e-9)
	}
}

func TestDissipator_Step_AmplitudeDampingMovesPopulation(t *testing.T) {
	d := NewDissipator(nil, lowering())
	excited := cmat.FromRows([][]complex128{
		{0, 0},
		{0, 1},
	})

	next, err := d.Step(excited, 0.1)

	require.NoError(t, err)
	assert.InDelta(t, 0.1, real(next.At(0, 0)), 1e-12)
	assert.InDelta(t, 0.9, real(next.At(1, 1)), 1e-12)
}

func TestDissipator_Step_HermiticityPreserved(t *testing.T) {
	h := cmat.FromRows([][]complex128{
		{0.5, 0.3i},
		{-0.3i, 1.5},
	})
	d := NewDissipator(h, lowering())
	rho := maximallyMixed(2)

	for i := 0; i < 10; i++ {
		next, err := d.Step(rho, 0.01)
		require.NoError(t, err)
		rho = next
	}
	assert.True(t, rho.Equal(rho.Adjoint(), 1e-12))
}

func TestDissipator_Step_NearZeroTraceSkipsRenormalization(t *testing.T) {
	d := NewDissipator(nil)
	zero := cmat.New(2)

	next, err := d.Step(zero, 0.01)

	require.NoError(t, err)
	assert.Zero(t, real(next.Trace()))
	assert.False(t, math.IsNaN(real(next.At(0, 0))))
}

func TestDissipator_SetOps_ReplacesOperators(t *testing.T) {
	d := NewDissipator(nil, lowering())
	excited := cmat.FromRows([][]complex128{
		{0, 0},
		{0, 1},
	})

	d.SetOps(nil)
	next, err := d.Step(excited, 0.1)

	require.NoError(t, err)
	assert.True(t, next.Equal(excited, 1e-15))
}
