package pluck

import (
	"math"
	"testing"
)

func exciteVoice(v *Voice, seed int64) {
	ex := NewExciter(v.sampleRate, seed)
	v.resonator.Excite(ex.Burst(v.resonator.BufferLen(), v.velocity, 0.5))
}

func TestVoiceClampsNoteAndVelocity(t *testing.T) {
	v := NewVoice(48000, 200, 300, NewDefaultParams())
	if v.note != 127 || v.velocity != 127 {
		t.Fatalf("expected clamp to 127/127, got note=%d velocity=%d", v.note, v.velocity)
	}

	v = NewVoice(48000, -5, -5, NewDefaultParams())
	if v.note != 0 || v.velocity != 0 {
		t.Fatalf("expected clamp to 0/0, got note=%d velocity=%d", v.note, v.velocity)
	}
}

func TestVoiceHarmonicStackRespectsNyquist(t *testing.T) {
	params := NewDefaultParams()
	params.HarmonicsEnabled = true

	low := NewVoice(48000, 40, 100, params)
	if len(low.harmonics) != 5 {
		t.Fatalf("low note should carry all 5 harmonic filters, got %d", len(low.harmonics))
	}

	// Note 107 ~= 3951 Hz; the 6x partial crosses 0.95*Nyquist at 48 kHz.
	mid := NewVoice(48000, 107, 100, params)
	if len(mid.harmonics) != 4 {
		t.Fatalf("note 107 should drop only the 6x partial, got %d filters", len(mid.harmonics))
	}

	// Note 127 ~= 12544 Hz; every partial from 2x up is above the limit.
	high := NewVoice(48000, 127, 100, params)
	if len(high.harmonics) != 0 {
		t.Fatalf("high note should drop all harmonic filters, got %d", len(high.harmonics))
	}

	params.HarmonicsEnabled = false
	off := NewVoice(48000, 40, 100, params)
	if len(off.harmonics) != 0 {
		t.Fatalf("harmonics disabled but %d filters allocated", len(off.harmonics))
	}
}

func TestVoiceBecomesInactiveAfterRelease(t *testing.T) {
	params := NewDefaultParams()
	params.ReleaseSeconds = 0.05

	v := NewVoice(48000, 60, 100, params)
	exciteVoice(v, 1)
	v.Process(480)
	v.Release()

	// Release budget is 0.05 s = 2400 samples; allow one extra block.
	remaining := 2400 + 128
	for remaining > 0 && v.active {
		v.Process(128)
		remaining -= 128
	}
	if v.active {
		t.Fatalf("voice still active after release budget elapsed")
	}
}

func TestVoiceSustainPedalDefersRelease(t *testing.T) {
	v := NewVoice(48000, 60, 100, NewDefaultParams())
	exciteVoice(v, 1)

	v.SetSustain(true)
	v.Release()
	if v.envelope.Phase() == PhaseRelease {
		t.Fatalf("release should be deferred while the pedal is down")
	}
	if !v.released {
		t.Fatalf("voice should remember the pending release")
	}

	v.SetSustain(false)
	if v.envelope.Phase() != PhaseRelease && !v.envelope.Idle() {
		t.Fatalf("raising the pedal should perform the deferred release, got %v", v.envelope.Phase())
	}
}

func TestVoiceOutputBoundedAndFinite(t *testing.T) {
	params := NewDefaultParams()
	params.HarmonicsEnabled = true

	v := NewVoice(48000, 60, 127, params)
	exciteVoice(v, 1)

	for block := 0; block < 100; block++ {
		out := v.Process(480)
		for i, s := range out {
			if !isFinite(s) {
				t.Fatalf("non-finite sample at block %d index %d", block, i)
			}
			if math.Abs(float64(s)) > 16.0 {
				t.Fatalf("runaway amplitude %g at block %d index %d", s, block, i)
			}
		}
	}
}

func TestVoiceKillSilencesImmediately(t *testing.T) {
	v := NewVoice(48000, 60, 100, NewDefaultParams())
	exciteVoice(v, 1)
	v.Process(128)

	v.Kill()
	if v.active {
		t.Fatalf("killed voice still active")
	}
	if !v.envelope.Idle() {
		t.Fatalf("killed voice envelope not idle: %v", v.envelope.Phase())
	}
}
