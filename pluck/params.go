package pluck

import "fmt"

// StealPolicy selects which voice is sacrificed when the pool is full.
type StealPolicy string

const (
	// StealOldest releases the voice that has been sounding the longest.
	StealOldest StealPolicy = "oldest"
	// StealQuietest releases the voice with the lowest envelope level.
	StealQuietest StealPolicy = "quietest"
)

// Params holds all engine parameters.
type Params struct {
	// Damping is the string feedback coefficient in (0,1]. Values close
	// to 1 sustain nearly forever; lower values decay faster.
	Damping float32

	// Brightness in [0,1] controls the lowpass color of the excitation
	// noise burst. 0 is dull, 1 is full-bandwidth.
	Brightness float32

	// Envelope timing in seconds, sustain level in [0,1].
	AttackSeconds  float64
	DecaySeconds   float64
	SustainLevel   float32
	ReleaseSeconds float64

	// HarmonicsEnabled mixes per-voice bandpass resonators at 2..6x the
	// fundamental into the string output.
	HarmonicsEnabled bool

	OutputGain float32

	// NoiseSeed seeds the excitation noise source. Identical seed, config
	// and event sequence reproduce identical output.
	NoiseSeed int64

	StealPolicy StealPolicy

	// BodyIRWavPath optionally points at a body impulse response WAV for
	// the output convolver. Empty means passthrough.
	BodyIRWavPath string

	// StopRampSeconds is the fade window used by Stop to avoid a click.
	StopRampSeconds float64
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		Damping:          0.996,
		Brightness:       0.5,
		AttackSeconds:    0.002,
		DecaySeconds:     0.050,
		SustainLevel:     0.85,
		ReleaseSeconds:   0.25,
		HarmonicsEnabled: true,
		OutputGain:       1.0,
		NoiseSeed:        1,
		StealPolicy:      StealOldest,
		StopRampSeconds:  0.005,
	}
}

// Validate reports the first invalid parameter, if any.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	if p.Damping <= 0 || p.Damping > 1 {
		return fmt.Errorf("damping must be in (0,1], got %g", p.Damping)
	}
	if p.Brightness < 0 || p.Brightness > 1 {
		return fmt.Errorf("brightness must be in [0,1], got %g", p.Brightness)
	}
	if p.AttackSeconds < 0 || p.DecaySeconds < 0 || p.ReleaseSeconds < 0 {
		return fmt.Errorf("envelope durations must be >= 0")
	}
	if p.SustainLevel < 0 || p.SustainLevel > 1 {
		return fmt.Errorf("sustain level must be in [0,1], got %g", p.SustainLevel)
	}
	if p.OutputGain <= 0 {
		return fmt.Errorf("output gain must be > 0, got %g", p.OutputGain)
	}
	if p.StopRampSeconds < 0 {
		return fmt.Errorf("stop ramp must be >= 0, got %g", p.StopRampSeconds)
	}
	switch p.StealPolicy {
	case StealOldest, StealQuietest:
	case "":
		p.StealPolicy = StealOldest
	default:
		return fmt.Errorf("unknown steal policy %q", p.StealPolicy)
	}
	return nil
}
