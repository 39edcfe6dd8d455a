package kernel

import "math"

// TwinCoil holds two scalar coils that tug toward each other on every
// balance call. The weighted combination of the two is the synthesis
// value feeding the Hamiltonian energy scale.
type TwinCoil struct {
	alpha   float64
	lambdaS float64
	psiC    float64
}

// CoilState is the result of one balance call.
type CoilState struct {
	LambdaS   float64 `json:"lambda_s"`
	PsiC      float64 `json:"psi_c"`
	Synthesis float64 `json:"synthesis"`
	Alpha     float64 `json:"alpha"`
}

// NewTwinCoil builds a coil pair. Alpha is clamped into [0, 1].
func NewTwinCoil(alpha, lambdaS, psiC float64) *TwinCoil {
	c := &TwinCoil{lambdaS: lambdaS, psiC: psiC}
	c.SetAlpha(alpha)
	return c
}

// SynthesisValue returns alpha*lambda_s + (1-alpha)*psi_c.
func (c *TwinCoil) SynthesisValue() float64 {
	return c.alpha*c.lambdaS + (1-c.alpha)*c.psiC
}

// Balance pulls the coils one tenth of their gap toward each other,
// applies the drift split by alpha, and returns the updated state.
// With zero drift the gap |lambda_s - psi_c| never grows.
func (c *TwinCoil) Balance(drift float64) CoilState {
	delta := (c.psiC - c.lambdaS) * 0.1
	c.lambdaS += delta + drift*(1-c.alpha)
	c.psiC -= delta - drift*c.alpha
	return CoilState{
		LambdaS:   c.lambdaS,
		PsiC:      c.psiC,
		Synthesis: c.SynthesisValue(),
		Alpha:     c.alpha,
	}
}

// SetAlpha stores the mixing weight, clamped into [0, 1].
func (c *TwinCoil) SetAlpha(alpha float64) {
	c.alpha = math.Max(0, math.Min(1, alpha))
}

// Alpha returns the current mixing weight.
func (c *TwinCoil) Alpha() float64 { return c.alpha }

// LambdaS returns the current silver coil value.
func (c *TwinCoil) LambdaS() float64 { return c.lambdaS }

// PsiC returns the current crimson coil value.
func (c *TwinCoil) PsiC() float64 { return c.psiC }
