package pluck

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// pitchBendFactor converts a 14-bit MIDI pitch-bend value (0..16383,
// 8192 = neutral) to a frequency ratio spanning +/- one semitone.
func pitchBendFactor(bend int) float32 {
	if bend < 0 {
		bend = 0
	}
	if bend > 16383 {
		bend = 16383
	}
	return pow2Approx((float32(bend-8192) / 8192.0) / 12.0)
}

func clampNote(note int) int {
	if note < 0 {
		return 0
	}
	if note > 127 {
		return 127
	}
	return note
}

func clampVelocity(velocity int) int {
	if velocity < 0 {
		return 0
	}
	if velocity > 127 {
		return 127
	}
	return velocity
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// overlapAddBlock combines a full convolution result with the retained tail
// of the previous block and splits off the new tail.
func overlapAddBlock(convOut []float64, tail []float64, blockLen int) ([]float64, []float64) {
	if len(convOut) < blockLen {
		out := make([]float64, blockLen)
		copy(out, convOut)
		return out, nil
	}

	full := make([]float64, len(convOut))
	copy(full, convOut)
	n := len(tail)
	if n > len(full) {
		n = len(full)
	}
	for i := 0; i < n; i++ {
		full[i] += tail[i]
	}

	out := make([]float64, blockLen)
	copy(out, full[:blockLen])
	newTail := make([]float64, len(full)-blockLen)
	copy(newTail, full[blockLen:])
	return out, newTail
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func maxf(a float32, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a float32, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
