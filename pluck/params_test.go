package pluck

import (
	"math"
	"testing"
)

func TestDefaultParamsValidate(t *testing.T) {
	if err := NewDefaultParams().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateDefaultsEmptyStealPolicy(t *testing.T) {
	p := NewDefaultParams()
	p.StealPolicy = ""
	if err := p.Validate(); err != nil {
		t.Fatalf("empty steal policy should default, got error: %v", err)
	}
	if p.StealPolicy != StealOldest {
		t.Fatalf("empty steal policy defaulted to %q, want %q", p.StealPolicy, StealOldest)
	}
}

func TestMidiNoteToFreqEqualTemperament(t *testing.T) {
	tests := []struct {
		note int
		want float64
	}{
		{69, 440.0},
		{81, 880.0},
		{57, 220.0},
		{60, 261.626},
		{21, 27.5},
		{108, 4186.01},
	}
	for _, tt := range tests {
		got := float64(midiNoteToFreq(tt.note))
		if relErr := math.Abs(got-tt.want) / tt.want; relErr > 0.002 {
			t.Errorf("note %d: %.3f Hz, want %.3f Hz (rel err %.5f)", tt.note, got, tt.want, relErr)
		}
	}
}

func TestPitchBendFactorRange(t *testing.T) {
	if f := pitchBendFactor(8192); math.Abs(float64(f)-1.0) > 1e-4 {
		t.Fatalf("neutral bend factor %g, want 1.0", f)
	}

	semitone := math.Pow(2, 1.0/12.0)
	if f := float64(pitchBendFactor(16383)); math.Abs(f-semitone) > 0.002 {
		t.Fatalf("full-up bend factor %g, want ~%g", f, semitone)
	}
	if f := float64(pitchBendFactor(0)); math.Abs(f-1.0/semitone) > 0.002 {
		t.Fatalf("full-down bend factor %g, want ~%g", f, 1.0/semitone)
	}

	// Out-of-range values clamp instead of extrapolating.
	if pitchBendFactor(-100) != pitchBendFactor(0) {
		t.Fatalf("negative bend not clamped")
	}
	if pitchBendFactor(99999) != pitchBendFactor(16383) {
		t.Fatalf("oversized bend not clamped")
	}
}
