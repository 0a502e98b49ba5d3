package pluck

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/dkoerner/pluck/dsp"
)

// minDelaySamples guards against division artifacts at very high notes.
const minDelaySamples = 2

// StringResonator implements the plucked-string physical model: a circular
// delay line whose feedback path runs through a two-point averaging lowpass
// scaled by a damping coefficient. Once excited it is fully deterministic.
type StringResonator struct {
	sampleRate  float32
	f0          float32
	delayLength float32
	nominalLen  int
	bendRatio   float32
	delay       *dsp.DelayLine
	prev        float32

	damping       float32
	baseDamping   float32
	damperDamping float32
	damperEngaged bool
}

// NewStringResonator creates a resonator tuned to f0. The buffer length is
// round(sampleRate/f0), clamped to a minimum of two samples.
func NewStringResonator(sampleRate int, f0 float32) *StringResonator {
	s := &StringResonator{
		sampleRate:    float32(sampleRate),
		f0:            f0,
		bendRatio:     1.0,
		damping:       0.996,
		baseDamping:   0.996,
		damperDamping: 0.6,
	}

	// The averaging filter in the loop contributes half a sample of
	// delay; compensate in the read position so the loop period stays
	// sampleRate/f0.
	s.delayLength = s.sampleRate/s.f0 - 0.5
	intDelay := int(s.sampleRate/s.f0 + 0.5)
	if intDelay < minDelaySamples {
		intDelay = minDelaySamples
	}
	if s.delayLength < minDelaySamples {
		s.delayLength = minDelaySamples
	}
	s.nominalLen = intDelay
	// Headroom for the lowest supported bend: SetBend goes down to 0.5,
	// which doubles the effective delay.
	s.delay = dsp.NewDelayLine(intDelay*2 + 2)

	return s
}

// BufferLen returns the excitation length for this string:
// round(sampleRate/f0), never below minDelaySamples.
func (s *StringResonator) BufferLen() int {
	return s.nominalLen
}

// Frequency returns the nominal fundamental in Hz, ignoring pitch bend.
func (s *StringResonator) Frequency() float32 {
	return s.f0
}

// DelayLength returns the nominal loop delay in samples.
func (s *StringResonator) DelayLength() float32 {
	return s.delayLength
}

// Excite loads the delay buffer with an excitation burst and resets the
// feedback filter state.
func (s *StringResonator) Excite(burst []float32) {
	s.delay.Fill(burst)
	s.prev = 0
}

// Inject adds an excitation burst on top of the ringing buffer, oldest
// sample first, so a retrigger keeps the current string state.
func (s *StringResonator) Inject(burst []float32) {
	n := len(burst)
	if n > s.delay.Size()-1 {
		n = s.delay.Size() - 1
	}
	for i := 0; i < n; i++ {
		s.delay.Add(n-i, burst[i])
	}
}

// SetDamping configures the feedback coefficient. Values are clamped to
// (0,1].
func (s *StringResonator) SetDamping(coefficient float32) {
	if coefficient <= 0 {
		coefficient = 0.0001
	}
	if coefficient > 1.0 {
		coefficient = 1.0
	}
	s.baseDamping = coefficient
	s.damping = coefficient
	if s.damperEngaged {
		s.damping = s.damperDamping
	}
}

// SetDamper toggles aggressive damping for release behavior.
func (s *StringResonator) SetDamper(engaged bool) {
	s.damperEngaged = engaged
	if engaged {
		s.damping = s.damperDamping
		return
	}
	s.damping = s.baseDamping
}

// SetBend scales the effective delay length by 1/ratio, shifting the pitch.
// ratio 1.0 is neutral; 2^(1/12) is one semitone up.
func (s *StringResonator) SetBend(ratio float32) {
	if ratio < 0.5 {
		ratio = 0.5
	}
	if ratio > 2.0 {
		ratio = 2.0
	}
	s.bendRatio = ratio
}

// Process renders one sample and advances the model: read the oldest sample,
// average it with the previous read, scale by the damping coefficient, and
// feed the result back. The return value is the unfiltered read.
func (s *StringResonator) Process() float32 {
	effDelay := s.delayLength / s.bendRatio
	maxDelay := float32(s.delay.Size() - 2)
	if effDelay < minDelaySamples {
		effDelay = minDelaySamples
	}
	if effDelay > maxDelay {
		effDelay = maxDelay
	}

	out := s.delay.ReadFractional(effDelay)
	avg := 0.5 * (out + s.prev)
	s.prev = out

	fb := float32(dspcore.FlushDenormals(float64(avg * s.damping)))
	s.delay.Write(fb)

	return out
}
