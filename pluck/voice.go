package pluck

import "github.com/dkoerner/pluck/dsp"

// Voice represents one sounding note (one string plus its envelope).
type Voice struct {
	sampleRate int
	note       int
	velocity   int
	f0         float32
	resonator  *StringResonator
	envelope   *Envelope
	harmonics  []harmonicFilter
	active     bool
	released   bool
	// sustainHeld marks a note-off deferred by the sustain pedal.
	sustainHeld bool
	sustainDown bool
	age         int // samples since note on
	ord         uint64
}

type harmonicFilter struct {
	filter *dsp.Biquad
	gain   float32
}

// NewVoice creates a voice for a note. Out-of-range note and velocity are
// clamped rather than rejected.
func NewVoice(sampleRate, note, velocity int, params *Params) *Voice {
	note = clampNote(note)
	velocity = clampVelocity(velocity)

	damping := float32(0.996)
	attack := 0.002
	decay := 0.050
	sustain := float32(0.85)
	release := 0.25
	harmonicsEnabled := false
	if params != nil {
		if params.Damping > 0 && params.Damping <= 1 {
			damping = params.Damping
		}
		attack = params.AttackSeconds
		decay = params.DecaySeconds
		sustain = params.SustainLevel
		release = params.ReleaseSeconds
		harmonicsEnabled = params.HarmonicsEnabled
	}

	freq := midiNoteToFreq(note)
	v := &Voice{
		sampleRate: sampleRate,
		note:       note,
		velocity:   velocity,
		f0:         freq,
		resonator:  NewStringResonator(sampleRate, freq),
		envelope: NewEnvelope(
			int(attack*float64(sampleRate)),
			int(decay*float64(sampleRate)),
			sustain,
			int(release*float64(sampleRate)),
		),
		active: true,
	}
	v.resonator.SetDamping(damping)
	if harmonicsEnabled {
		v.initHarmonics()
	}
	v.envelope.Trigger()

	return v
}

// initHarmonics builds bandpass resonators at integer multiples of the
// fundamental, skipping any that land too close to Nyquist.
func (v *Voice) initHarmonics() {
	if v.sampleRate <= 0 || v.f0 <= 0 {
		return
	}
	nyquist := 0.5 * float32(v.sampleRate)
	partials := []struct {
		mult float32
		gain float32
	}{
		{mult: 2.0, gain: 1.0},
		{mult: 3.0, gain: 0.5},
		{mult: 4.0, gain: 0.5},
		{mult: 5.0, gain: 0.3},
		{mult: 6.0, gain: 0.2},
	}
	const harmonicQ = 10.0
	filters := make([]harmonicFilter, 0, len(partials))
	for _, p := range partials {
		center := v.f0 * p.mult
		if center >= nyquist*0.95 {
			continue
		}
		filters = append(filters, harmonicFilter{
			filter: dsp.NewBandpass(center, float32(v.sampleRate), harmonicQ),
			gain:   p.gain,
		})
	}
	v.harmonics = filters
}

// Retrigger re-excites a sounding voice in place: the burst is added on top
// of the ringing string, the damper lifts, and the envelope attacks from
// its current level, so a fast repeated note does not click.
func (v *Voice) Retrigger(velocity int, burst []float32) {
	v.velocity = clampVelocity(velocity)
	v.released = false
	v.sustainHeld = false
	v.resonator.SetDamper(false)
	v.resonator.Inject(burst)
	v.envelope.Trigger()
	v.age = 0
}

// Release triggers the note release. With the sustain pedal down the
// release is deferred until the pedal comes up.
func (v *Voice) Release() {
	v.released = true
	if v.sustainDown {
		v.sustainHeld = true
		return
	}
	v.envelope.Release()
	v.resonator.SetDamper(true)
}

// SetSustain applies sustain pedal state. Raising the pedal performs any
// deferred release.
func (v *Voice) SetSustain(down bool) {
	v.sustainDown = down
	if down {
		return
	}
	if v.sustainHeld {
		v.sustainHeld = false
		v.envelope.Release()
		v.resonator.SetDamper(true)
	}
}

// SetBend applies a pitch-bend frequency ratio to the string.
func (v *Voice) SetBend(ratio float32) {
	v.resonator.SetBend(ratio)
}

// Kill silences the voice immediately, bypassing the release ramp.
func (v *Voice) Kill() {
	v.envelope.Kill()
	v.active = false
}

// Process renders one block of samples from this voice.
func (v *Voice) Process(numFrames int) []float32 {
	output := make([]float32, numFrames)

	for i := 0; i < numFrames; i++ {
		sample := v.resonator.Process()

		if len(v.harmonics) > 0 {
			enriched := sample
			for j := range v.harmonics {
				enriched += v.harmonics[j].filter.Process(sample) * v.harmonics[j].gain
			}
			sample = enriched
		}

		amp := v.envelope.Advance()
		output[i] = sample * amp
		v.age++

		if v.envelope.Idle() {
			v.active = false
			// Zero-fill the remainder; the voice is silent.
			break
		}
	}

	return output
}
