package dsp

import (
	"math"
	"testing"
)

func sineRMS(f *Biquad, freq, sampleRate float64, n int) float64 {
	// Skip the first half while the filter settles.
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		in := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
		out := float64(f.Process(in))
		if i >= n/2 {
			sum += out * out
			count++
		}
	}
	return math.Sqrt(sum / float64(count))
}

func TestLowpassAttenuatesHighFrequencies(t *testing.T) {
	const sampleRate = 48000

	low := sineRMS(NewLowpass(1000, sampleRate, 0.707), 100, sampleRate, 9600)
	high := sineRMS(NewLowpass(1000, sampleRate, 0.707), 10000, sampleRate, 9600)

	if high >= low*0.5 {
		t.Fatalf("10 kHz not attenuated relative to 100 Hz: high=%.4f low=%.4f", high, low)
	}
}

func TestBandpassPeaksAtCenter(t *testing.T) {
	const sampleRate = 48000
	const center = 880.0

	at := sineRMS(NewBandpass(center, sampleRate, 10), center, sampleRate, 19200)
	below := sineRMS(NewBandpass(center, sampleRate, 10), center/2, sampleRate, 19200)
	above := sineRMS(NewBandpass(center, sampleRate, 10), center*2, sampleRate, 19200)

	if at <= below || at <= above {
		t.Fatalf("bandpass response not peaked at center: at=%.4f below=%.4f above=%.4f", at, below, above)
	}
}

func TestBiquadResetClearsState(t *testing.T) {
	f := NewLowpass(1000, 48000, 0.707)
	for i := 0; i < 100; i++ {
		f.Process(1.0)
	}
	f.Reset()
	if out := f.Process(0); out != 0 {
		t.Fatalf("state survived reset: %g", out)
	}
}

func TestDelayLineRoundTrip(t *testing.T) {
	d := NewDelayLine(8)
	for i := 1; i <= 8; i++ {
		d.Write(float32(i))
	}
	// The oldest sample is 8 steps behind the write position.
	if got := d.Read(8); got != 1 {
		t.Fatalf("Read(8) = %g, want 1", got)
	}
	if got := d.Read(1); got != 8 {
		t.Fatalf("Read(1) = %g, want 8", got)
	}
}

func TestDelayLineFractionalInterpolation(t *testing.T) {
	d := NewDelayLine(8)
	for i := 1; i <= 8; i++ {
		d.Write(float32(i))
	}
	// Halfway between Read(2)=7 and Read(3)=6.
	if got := d.ReadFractional(2.5); math.Abs(float64(got)-6.5) > 1e-6 {
		t.Fatalf("ReadFractional(2.5) = %g, want 6.5", got)
	}
}

func TestDelayLineFillMatchesWrites(t *testing.T) {
	// Fill must leave the line exactly as the equivalent Write sequence.
	filled := NewDelayLine(8)
	filled.Fill([]float32{10, 20, 30})

	written := NewDelayLine(8)
	for _, s := range []float32{10, 20, 30} {
		written.Write(s)
	}

	for delay := 1; delay <= 3; delay++ {
		if filled.Read(delay) != written.Read(delay) {
			t.Fatalf("Read(%d): fill=%g write=%g", delay, filled.Read(delay), written.Read(delay))
		}
	}
	if got := filled.Read(3); got != 10 {
		t.Fatalf("oldest sample = %g, want 10", got)
	}
	if got := filled.Read(1); got != 30 {
		t.Fatalf("newest sample = %g, want 30", got)
	}
	// The unfilled remainder stays zero.
	if got := filled.Read(5); got != 0 {
		t.Fatalf("unfilled region = %g, want 0", got)
	}

	// Long fills truncate instead of panicking.
	d := NewDelayLine(4)
	d.Fill([]float32{1, 2, 3, 4, 5, 6})
	if got := d.Read(4); got != 1 {
		t.Fatalf("read after long fill = %g, want 1", got)
	}
}

func TestDelayLineAddAccumulates(t *testing.T) {
	d := NewDelayLine(4)
	d.Write(1)
	d.Add(1, 0.5)
	if got := d.Read(1); got != 1.5 {
		t.Fatalf("Read(1) after Add = %g, want 1.5", got)
	}
}
