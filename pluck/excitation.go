package pluck

import (
	"math/rand"

	"github.com/dkoerner/pluck/dsp"
)

// Exciter produces the noise burst loaded into a string buffer on note
// onset. All randomness comes from the seeded source handed to NewExciter,
// so output is reproducible for a given seed.
type Exciter struct {
	sampleRate int
	rng        *rand.Rand
}

// NewExciter creates an exciter with its own deterministic noise source.
func NewExciter(sampleRate int, seed int64) *Exciter {
	return &Exciter{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Burst renders a velocity-scaled, lowpass-colored noise burst of the given
// length. Brightness in [0,1] maps to the filter cutoff; the burst is
// re-centered to remove DC so the string does not drift.
func (e *Exciter) Burst(length int, velocity int, brightness float32) []float32 {
	if length <= 0 {
		return nil
	}
	velocity = clampVelocity(velocity)
	amp := float32(velocity) / 127.0

	if brightness < 0 {
		brightness = 0
	}
	if brightness > 1 {
		brightness = 1
	}
	nyquist := 0.5 * float32(e.sampleRate)
	cutoff := 400.0 + brightness*(nyquist*0.85-400.0)
	lp := dsp.NewLowpass(cutoff, float32(e.sampleRate), 0.707)

	burst := make([]float32, length)
	var mean float32
	for i := range burst {
		white := float32(e.rng.Float64()*2.0 - 1.0)
		burst[i] = lp.Process(white)
		mean += burst[i]
	}
	mean /= float32(length)

	for i := range burst {
		burst[i] = (burst[i] - mean) * amp
	}
	return burst
}
