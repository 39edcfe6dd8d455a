package kernel

import (
	"math"
	"math/rand"
)

// ResonanceHz is the primary resonant constant driving intent modulation.
const ResonanceHz = 712.8

// IntentVector is a fixed direction in state space with a resonance
// frequency and an amplitude. Instances are immutable after construction
// and owned exclusively by the engine.
type IntentVector struct {
	frequencyHz float64
	amplitude   float64
	dimension   int
	direction   []float64
}

// IntentDescriptor is the serializable description of an intent vector.
type IntentDescriptor struct {
	FrequencyHz   float64 `json:"frequency_hz"`
	Amplitude     float64 `json:"amplitude"`
	Dimension     int     `json:"dimension"`
	DirectionNorm float64 `json:"direction_norm"`
}

// NewIntentVector draws a unit-norm direction of the given dimension from
// rng and fixes the frequency and amplitude.
func NewIntentVector(dimension int, frequencyHz, amplitude float64, rng *rand.Rand) *IntentVector {
	if dimension < 1 {
		dimension = 1
	}
	dir := make([]float64, dimension)
	var norm float64
	for i := range dir {
		dir[i] = rng.NormFloat64()
		norm += dir[i] * dir[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range dir {
		dir[i] /= norm
	}
	return &IntentVector{
		frequencyHz: frequencyHz,
		amplitude:   amplitude,
		dimension:   dimension,
		direction:   dir,
	}
}

// Modulate returns amplitude * strength * cos(2*pi*frequency*phase) times
// the stored direction. Pure and deterministic given the stored fields.
func (v *IntentVector) Modulate(strength, phase float64) []float64 {
	angle := 2 * math.Pi * v.frequencyHz * phase
	scale := v.amplitude * strength * math.Cos(angle)
	out := make([]float64, v.dimension)
	for i, d := range v.direction {
		out[i] = scale * d
	}
	return out
}

// Describe reports the stored fields and the direction norm.
func (v *IntentVector) Describe() IntentDescriptor {
	var norm float64
	for _, d := range v.direction {
		norm += d * d
	}
	return IntentDescriptor{
		FrequencyHz:   v.frequencyHz,
		Amplitude:     v.amplitude,
		Dimension:     v.dimension,
		DirectionNorm: math.Sqrt(norm),
	}
}
