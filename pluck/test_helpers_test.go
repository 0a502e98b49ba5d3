package pluck

import (
	"math"
	"math/cmplx"
	"testing"

	algofft "github.com/cwbudde/algo-fft"
)

// measureFundamentalFreq estimates pitch by counting zero crossings,
// skipping the noisy onset.
func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func windowRMS(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// leftChannel extracts the left channel of an interleaved stereo block.
func leftChannel(stereo []float32) []float32 {
	mono := make([]float32, len(stereo)/2)
	for i := range mono {
		mono[i] = stereo[2*i]
	}
	return mono
}

// spectralPeakNear returns the frequency of the strongest FFT bin within
// centerHz +/- spanHz, using a Hann-windowed 8192-point transform over the
// start of samples.
func spectralPeakNear(t *testing.T, samples []float32, sampleRate int, centerHz, spanHz float64) float64 {
	t.Helper()
	const fftSize = 8192
	if len(samples) < fftSize {
		t.Fatalf("need at least %d samples for spectral analysis, got %d", fftSize, len(samples))
	}

	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		t.Fatalf("fft plan: %v", err)
	}
	buf := make([]float64, fftSize)
	for i := 0; i < fftSize; i++ {
		hann := 0.5 - 0.5*math.Cos(2.0*math.Pi*float64(i)/float64(fftSize-1))
		buf[i] = float64(samples[i]) * hann
	}
	spec := make([]complex128, fftSize/2+1)
	plan.Forward(spec, buf)

	minBin := int((centerHz - spanHz) * fftSize / float64(sampleRate))
	maxBin := int((centerHz + spanHz) * fftSize / float64(sampleRate))
	if minBin < 1 {
		minBin = 1
	}
	if maxBin > fftSize/2-1 {
		maxBin = fftSize/2 - 1
	}

	bestBin := minBin
	bestMag := 0.0
	for k := minBin; k <= maxBin; k++ {
		mag := cmplx.Abs(spec[k])
		if mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}
	return float64(bestBin) * float64(sampleRate) / float64(fftSize)
}

// renderEngine pulls numFrames of stereo audio from an engine in fixed-size
// blocks, mirroring how the callbacks drive it.
func renderEngine(e *Engine, numFrames int) []float32 {
	const blockSize = 128
	out := make([]float32, 0, numFrames*2)
	for rendered := 0; rendered < numFrames; {
		frames := blockSize
		if rendered+frames > numFrames {
			frames = numFrames - rendered
		}
		out = append(out, e.Process(frames)...)
		rendered += frames
	}
	return out
}
