package pluck

// EnvelopePhase enumerates the ADSR state machine phases.
type EnvelopePhase uint8

const (
	PhaseIdle EnvelopePhase = iota
	PhaseAttack
	PhaseDecay
	PhaseSustain
	PhaseRelease
)

func (p EnvelopePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttack:
		return "attack"
	case PhaseDecay:
		return "decay"
	case PhaseSustain:
		return "sustain"
	case PhaseRelease:
		return "release"
	}
	return "unknown"
}

// Envelope is a linear ADSR amplitude envelope advanced once per sample.
// All ramps are linear; attack starts from the current level so a retrigger
// during release does not produce a discontinuity.
type Envelope struct {
	nAttack  int
	nDecay   int
	sustain  float32
	nRelease int

	phase   EnvelopePhase
	level   float32
	step    float32
	counter int
}

// NewEnvelope creates an idle envelope from durations in samples.
// Negative durations are treated as zero.
func NewEnvelope(attackSamples, decaySamples int, sustainLevel float32, releaseSamples int) *Envelope {
	if attackSamples < 0 {
		attackSamples = 0
	}
	if decaySamples < 0 {
		decaySamples = 0
	}
	if releaseSamples < 0 {
		releaseSamples = 0
	}
	if sustainLevel < 0 {
		sustainLevel = 0
	}
	if sustainLevel > 1 {
		sustainLevel = 1
	}
	return &Envelope{
		nAttack:  attackSamples,
		nDecay:   decaySamples,
		sustain:  sustainLevel,
		nRelease: releaseSamples,
	}
}

// Trigger starts the attack phase from the current level.
func (e *Envelope) Trigger() {
	if e.nAttack == 0 {
		e.level = 1.0
		e.enterDecay()
		return
	}
	e.phase = PhaseAttack
	e.step = (1.0 - e.level) / float32(e.nAttack)
	e.counter = 0
}

// Release starts the release phase. Idle envelopes are unaffected.
func (e *Envelope) Release() {
	if e.phase == PhaseIdle || e.phase == PhaseRelease {
		return
	}
	if e.nRelease == 0 || e.level <= 0 {
		e.level = 0
		e.phase = PhaseIdle
		return
	}
	e.phase = PhaseRelease
	e.step = e.level / float32(e.nRelease)
	e.counter = 0
}

// Kill forces the envelope to idle immediately.
func (e *Envelope) Kill() {
	e.phase = PhaseIdle
	e.level = 0
}

// Phase returns the current envelope phase.
func (e *Envelope) Phase() EnvelopePhase {
	return e.phase
}

// Level returns the current amplitude without advancing.
func (e *Envelope) Level() float32 {
	return e.level
}

// Idle reports whether the envelope has finished.
func (e *Envelope) Idle() bool {
	return e.phase == PhaseIdle
}

// Advance steps the envelope by one sample period and returns the
// amplitude, always in [0,1].
func (e *Envelope) Advance() float32 {
	switch e.phase {
	case PhaseAttack:
		e.level += e.step
		e.counter++
		if e.counter >= e.nAttack || e.level >= 1.0 {
			e.level = 1.0
			e.enterDecay()
		}
	case PhaseDecay:
		e.level -= e.step
		e.counter++
		if e.counter >= e.nDecay || e.level <= e.sustain {
			e.level = e.sustain
			e.phase = PhaseSustain
		}
	case PhaseSustain:
		e.level = e.sustain
	case PhaseRelease:
		e.level -= e.step
		e.counter++
		if e.counter >= e.nRelease || e.level <= 0 {
			e.level = 0
			e.phase = PhaseIdle
		}
	}
	if e.level < 0 {
		e.level = 0
	}
	if e.level > 1 {
		e.level = 1
	}
	return e.level
}

func (e *Envelope) enterDecay() {
	if e.nDecay == 0 || e.sustain >= 1.0 {
		e.level = maxf(e.sustain, minf(e.level, 1.0))
		if e.nDecay == 0 {
			e.level = e.sustain
		}
		e.phase = PhaseSustain
		return
	}
	e.phase = PhaseDecay
	e.step = (1.0 - e.sustain) / float32(e.nDecay)
	e.counter = 0
}
