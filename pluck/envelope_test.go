package pluck

import "testing"

func TestEnvelopePhaseSequence(t *testing.T) {
	env := NewEnvelope(10, 20, 0.5, 30)
	if env.Phase() != PhaseIdle {
		t.Fatalf("new envelope should be idle, got %v", env.Phase())
	}

	env.Trigger()
	if env.Phase() != PhaseAttack {
		t.Fatalf("expected attack after trigger, got %v", env.Phase())
	}

	for i := 0; i < 10; i++ {
		env.Advance()
	}
	if env.Phase() != PhaseDecay {
		t.Fatalf("expected decay after attack completes, got %v", env.Phase())
	}

	for i := 0; i < 20; i++ {
		env.Advance()
	}
	if env.Phase() != PhaseSustain {
		t.Fatalf("expected sustain after decay completes, got %v", env.Phase())
	}
	if lvl := env.Level(); lvl != 0.5 {
		t.Fatalf("sustain level %g, want 0.5", lvl)
	}

	// Sustain holds indefinitely.
	for i := 0; i < 1000; i++ {
		if env.Advance() != 0.5 {
			t.Fatalf("sustain level drifted at step %d", i)
		}
	}

	env.Release()
	if env.Phase() != PhaseRelease {
		t.Fatalf("expected release, got %v", env.Phase())
	}
	for i := 0; i < 30; i++ {
		env.Advance()
	}
	if !env.Idle() {
		t.Fatalf("expected idle after release completes, got %v", env.Phase())
	}
	if env.Level() != 0 {
		t.Fatalf("idle level %g, want 0", env.Level())
	}
}

func TestEnvelopeAmplitudeAlwaysInUnitRange(t *testing.T) {
	env := NewEnvelope(3, 5, 0.8, 7)
	env.Trigger()
	for i := 0; i < 50; i++ {
		if i == 20 {
			env.Release()
		}
		amp := env.Advance()
		if amp < 0 || amp > 1 {
			t.Fatalf("amplitude %g out of [0,1] at step %d", amp, i)
		}
	}
}

func TestEnvelopeAttackReachesFullLevel(t *testing.T) {
	env := NewEnvelope(48, 0, 1.0, 48)
	env.Trigger()
	for i := 0; i < 48; i++ {
		env.Advance()
	}
	if env.Level() != 1.0 {
		t.Fatalf("level after attack %g, want 1.0", env.Level())
	}
	if env.Phase() != PhaseSustain {
		t.Fatalf("sustain=1.0 should skip decay, got %v", env.Phase())
	}
}

func TestEnvelopeReleaseReachesZeroWithinDuration(t *testing.T) {
	env := NewEnvelope(0, 0, 0.7, 100)
	env.Trigger()
	env.Advance()
	env.Release()

	steps := 0
	for !env.Idle() {
		env.Advance()
		steps++
		if steps > 101 {
			t.Fatalf("release did not reach zero within %d steps", steps)
		}
	}
	if steps > 101 {
		t.Fatalf("release took %d steps, budget was 100", steps)
	}
}

func TestEnvelopeZeroDurations(t *testing.T) {
	env := NewEnvelope(0, 0, 0.6, 0)
	env.Trigger()
	if env.Phase() != PhaseSustain {
		t.Fatalf("zero attack+decay should land in sustain, got %v", env.Phase())
	}
	if env.Level() != 0.6 {
		t.Fatalf("level %g, want sustain 0.6", env.Level())
	}
	env.Release()
	if !env.Idle() || env.Level() != 0 {
		t.Fatalf("zero release should go idle immediately: phase=%v level=%g", env.Phase(), env.Level())
	}
}

func TestEnvelopeRetriggerDuringReleaseIsContinuous(t *testing.T) {
	env := NewEnvelope(100, 0, 1.0, 200)
	env.Trigger()
	for i := 0; i < 100; i++ {
		env.Advance()
	}
	env.Release()
	for i := 0; i < 50; i++ {
		env.Advance()
	}
	before := env.Level()
	if before <= 0 || before >= 1 {
		t.Fatalf("expected mid-release level, got %g", before)
	}

	env.Trigger()
	after := env.Advance()
	// A retrigger ramps up from the current level; one step moves at most
	// (1-before)/nAttack.
	maxStep := (1.0 - before) / 100.0
	if diff := after - before; diff < 0 || diff > maxStep*1.01 {
		t.Fatalf("retrigger discontinuity: before=%g after=%g", before, after)
	}
}

func TestEnvelopeKillGoesIdle(t *testing.T) {
	env := NewEnvelope(10, 10, 0.5, 10)
	env.Trigger()
	env.Advance()
	env.Kill()
	if !env.Idle() || env.Level() != 0 {
		t.Fatalf("kill should force idle at zero: phase=%v level=%g", env.Phase(), env.Level())
	}
}

func TestEnvelopeSanitizesConstructorInputs(t *testing.T) {
	env := NewEnvelope(-5, -5, 1.7, -5)
	env.Trigger()
	amp := env.Advance()
	if amp != 1.0 {
		t.Fatalf("sustain should clamp to 1.0, got %g", amp)
	}
	env.Release()
	if !env.Idle() {
		t.Fatalf("negative release should behave as zero, got %v", env.Phase())
	}
}
