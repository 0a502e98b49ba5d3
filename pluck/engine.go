package pluck

import "fmt"

// Engine is the top-level instrument: it owns the voice pool, translates
// note events into voice allocation, and renders the stereo mix. All
// methods must be called from the render timeline; see the event package
// for handing events over from a MIDI callback.
type Engine struct {
	sampleRate   int
	maxPolyphony int
	params       *Params
	slots        []*Voice
	exciter      *Exciter
	convolver    *BodyConvolver
	sustainPedal bool
	bendRatio    float32
	seq          uint64

	stopping bool
	stopped  bool
	stopGain float32
	stopRamp int
}

// NewEngine creates an engine. Invalid configuration is rejected before
// any audio is rendered.
func NewEngine(sampleRate int, maxPolyphony int, params *Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0, got %d", sampleRate)
	}
	if maxPolyphony <= 0 {
		return nil, fmt.Errorf("max polyphony must be > 0, got %d", maxPolyphony)
	}
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	e := &Engine{
		sampleRate:   sampleRate,
		maxPolyphony: maxPolyphony,
		params:       params,
		slots:        make([]*Voice, maxPolyphony),
		exciter:      NewExciter(sampleRate, params.NoiseSeed),
		convolver:    NewBodyConvolver(sampleRate),
		bendRatio:    1.0,
		stopGain:     1.0,
		stopRamp:     int(params.StopRampSeconds * float64(sampleRate)),
	}
	if params.BodyIRWavPath != "" {
		if err := e.convolver.SetIRFromWAV(params.BodyIRWavPath); err != nil {
			return nil, fmt.Errorf("body IR: %w", err)
		}
	}
	return e, nil
}

// PreparedParams is a validated parameter set whose body convolver is
// already built, so applying it on the render timeline costs a few pointer
// swaps instead of file I/O and FFT setup.
type PreparedParams struct {
	params    *Params
	convolver *BodyConvolver
}

// PrepareParams validates params and performs all expensive work (IR
// loading, resampling, convolution setup) up front. Safe to call off the
// render timeline.
func PrepareParams(sampleRate int, params *Params) (*PreparedParams, error) {
	if params == nil {
		return nil, fmt.Errorf("nil params")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	conv := NewBodyConvolver(sampleRate)
	if params.BodyIRWavPath != "" {
		if err := conv.SetIRFromWAV(params.BodyIRWavPath); err != nil {
			return nil, fmt.Errorf("body IR: %w", err)
		}
	}
	return &PreparedParams{params: params, convolver: conv}, nil
}

// ApplyParams swaps in a prepared parameter set. The noise seed only
// applies at engine creation. Must be called from the render timeline.
func (e *Engine) ApplyParams(p *PreparedParams) {
	if p == nil {
		return
	}
	e.params = p.params
	e.convolver = p.convolver
	e.stopRamp = int(p.params.StopRampSeconds * float64(e.sampleRate))
}

// SetParams prepares and applies params in one step, e.g. for offline use.
// Live callers should PrepareParams off the render timeline and ApplyParams
// on it.
func (e *Engine) SetParams(params *Params) error {
	p, err := PrepareParams(e.sampleRate, params)
	if err != nil {
		return err
	}
	e.ApplyParams(p)
	return nil
}

// SampleRate returns the engine sample rate in Hz.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// NoteOn triggers a note. A repeated note-on for an already-sounding note
// retriggers it in place; a full pool applies the configured steal policy.
// Note and velocity are clamped to 0..127; velocity 0 is a note-off.
func (e *Engine) NoteOn(note int, velocity int) {
	if e.stopped || e.stopping {
		return
	}
	note = clampNote(note)
	velocity = clampVelocity(velocity)
	if velocity == 0 {
		e.NoteOff(note)
		return
	}

	slot := e.findSlot(note)
	if slot < 0 {
		slot = e.stealSlot()
	}

	// A live voice on the same note is retriggered in place instead of
	// being rebuilt, keeping string state and envelope level.
	if v := e.slots[slot]; v != nil && v.active && v.note == note {
		burst := e.exciter.Burst(v.resonator.BufferLen(), velocity, e.params.Brightness)
		v.Retrigger(velocity, burst)
		v.SetSustain(e.sustainPedal)
		v.SetBend(e.bendRatio)
		e.seq++
		v.ord = e.seq
		return
	}

	v := NewVoice(e.sampleRate, note, velocity, e.params)
	burst := e.exciter.Burst(v.resonator.BufferLen(), velocity, e.params.Brightness)
	v.resonator.Excite(burst)
	v.SetSustain(e.sustainPedal)
	v.SetBend(e.bendRatio)
	e.seq++
	v.ord = e.seq
	e.slots[slot] = v
}

// findSlot returns the slot holding a live voice for note (retrigger), or
// the first free slot, or -1 when the pool is full.
func (e *Engine) findSlot(note int) int {
	free := -1
	for i, v := range e.slots {
		if v == nil || !v.active {
			if free < 0 {
				free = i
			}
			continue
		}
		if v.note == note {
			return i
		}
	}
	return free
}

// stealSlot picks the victim according to the steal policy. The pool is
// known to be full here, so a slot is always returned.
func (e *Engine) stealSlot() int {
	victim := 0
	switch e.params.StealPolicy {
	case StealQuietest:
		level := float32(2.0)
		for i, v := range e.slots {
			if v.envelope.Level() < level {
				level = v.envelope.Level()
				victim = i
			}
		}
	default: // StealOldest
		ord := ^uint64(0)
		for i, v := range e.slots {
			if v.ord < ord {
				ord = v.ord
				victim = i
			}
		}
	}
	e.slots[victim].Kill()
	return victim
}

// NoteOff releases the sounding voice for note. Unknown notes are ignored.
func (e *Engine) NoteOff(note int) {
	note = clampNote(note)
	for _, v := range e.slots {
		if v != nil && v.active && v.note == note && !v.released {
			v.Release()
		}
	}
}

// ControlChange handles the recognized MIDI controllers: sustain pedal
// (64), all-sound-off (120) and all-notes-off (123). Others are ignored.
func (e *Engine) ControlChange(controller int, value int) {
	switch controller {
	case 64:
		e.SetSustainPedal(value >= 64)
	case 120:
		e.killAll()
	case 123:
		e.ReleaseAll()
	}
}

// PitchBend applies a 14-bit pitch-bend value (8192 = neutral) to all
// active voices and to voices allocated afterwards.
func (e *Engine) PitchBend(bend int) {
	e.bendRatio = pitchBendFactor(bend)
	for _, v := range e.slots {
		if v != nil && v.active {
			v.SetBend(e.bendRatio)
		}
	}
}

// SetSustainPedal sets sustain pedal state (true = down, false = up).
func (e *Engine) SetSustainPedal(down bool) {
	e.sustainPedal = down
	for _, v := range e.slots {
		if v != nil && v.active {
			v.SetSustain(down)
		}
	}
}

// ReleaseAll releases every sounding voice through its envelope.
func (e *Engine) ReleaseAll() {
	for _, v := range e.slots {
		if v != nil && v.active && !v.released {
			v.Release()
		}
	}
}

func (e *Engine) killAll() {
	for i, v := range e.slots {
		if v != nil {
			v.Kill()
			e.slots[i] = nil
		}
	}
}

// Stop begins the shutdown fade: output ramps to zero over the configured
// stop window, after which all voices are idle and Process renders silence.
func (e *Engine) Stop() {
	if e.stopped || e.stopping {
		return
	}
	e.stopping = true
}

// Stopped reports whether the shutdown fade has completed.
func (e *Engine) Stopped() bool {
	return e.stopped
}

// ActiveVoices returns the number of non-idle voices in the pool.
func (e *Engine) ActiveVoices() int {
	n := 0
	for _, v := range e.slots {
		if v != nil && v.active {
			n++
		}
	}
	return n
}

// Process renders a block of audio samples (stereo interleaved). Voice
// outputs are summed, attenuated by 1/maxPolyphony, shaped by the stop
// ramp, and run through the body convolver.
func (e *Engine) Process(numFrames int) []float32 {
	monoMix := make([]float32, numFrames)

	if !e.stopped {
		for _, v := range e.slots {
			if v == nil || !v.active {
				continue
			}
			voiceOutput := v.Process(numFrames)
			for i := 0; i < numFrames; i++ {
				monoMix[i] += voiceOutput[i]
			}
		}
	}

	atten := e.params.OutputGain / float32(e.maxPolyphony)
	for i := 0; i < numFrames; i++ {
		monoMix[i] *= atten
	}

	if e.stopping && !e.stopped {
		for i := 0; i < numFrames; i++ {
			monoMix[i] *= e.stopGain
			if e.stopRamp <= 0 {
				e.stopGain = 0
			} else {
				e.stopGain -= 1.0 / float32(e.stopRamp)
				if e.stopGain < 0 {
					e.stopGain = 0
				}
			}
		}
		if e.stopGain <= 0 {
			e.killAll()
			e.stopping = false
			e.stopped = true
		}
	}

	stereoOutput := e.convolver.Process(monoMix)

	// Reclaim slots whose envelope reached idle.
	for i, v := range e.slots {
		if v != nil && !v.active {
			e.slots[i] = nil
		}
	}

	return stereoOutput
}
