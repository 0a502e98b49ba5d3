package pluck

import (
	"fmt"
	"os"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
)

// BodyConvolver runs the mono mix bus through a partitioned convolution
// with an instrument-body impulse response and produces stereo output.
// The default IR is a unit impulse, i.e. passthrough.
type BodyConvolver struct {
	sampleRate int
	partSize   int
	irLen      int

	leftOLA  *dspconv.OverlapAdd
	rightOLA *dspconv.OverlapAdd

	tailLeft  []float64
	tailRight []float64
}

// NewBodyConvolver creates a passthrough convolver.
func NewBodyConvolver(sampleRate int) *BodyConvolver {
	c := &BodyConvolver{
		sampleRate: sampleRate,
		partSize:   128,
	}
	// Unit impulse cannot fail.
	_ = c.SetIR([]float32{1.0}, []float32{1.0})
	return c
}

// Process convolves mono input with the IR and returns interleaved stereo.
// The convolution tail of each block is carried into the next one.
func (c *BodyConvolver) Process(input []float32) []float32 {
	output := make([]float32, len(input)*2)
	if len(input) == 0 {
		return output
	}

	in64 := toFloat64(input)

	leftFull, errL := c.leftOLA.Process(in64)
	rightFull, errR := c.rightOLA.Process(in64)
	if errL != nil || errR != nil {
		// Fail-safe passthrough for this block.
		for i, s := range input {
			output[i*2] = s
			output[i*2+1] = s
		}
		return output
	}

	outL, newTailL := overlapAddBlock(leftFull, c.tailLeft, len(input))
	outR, newTailR := overlapAddBlock(rightFull, c.tailRight, len(input))
	c.tailLeft = newTailL
	c.tailRight = newTailR

	for i := 0; i < len(input); i++ {
		output[i*2] = float32(outL[i])
		output[i*2+1] = float32(outR[i])
	}
	return output
}

// SetIR configures left/right impulse responses. Empty slices fall back to
// a unit impulse on that channel.
func (c *BodyConvolver) SetIR(leftIR []float32, rightIR []float32) error {
	if len(leftIR) == 0 {
		leftIR = []float32{1.0}
	}
	if len(rightIR) == 0 {
		rightIR = []float32{1.0}
	}

	leftOLA, err := dspconv.NewOverlapAdd(toFloat64(leftIR), c.partSize)
	if err != nil {
		return fmt.Errorf("left ir: %w", err)
	}
	rightOLA, err := dspconv.NewOverlapAdd(toFloat64(rightIR), c.partSize)
	if err != nil {
		return fmt.Errorf("right ir: %w", err)
	}
	c.leftOLA = leftOLA
	c.rightOLA = rightOLA
	c.irLen = len(leftIR)
	if len(rightIR) > c.irLen {
		c.irLen = len(rightIR)
	}

	c.Reset()
	return nil
}

// SetIRFromWAV loads a mono or stereo body IR from a WAV file, resampling
// it when its rate differs from the convolver rate.
func (c *BodyConvolver) SetIRFromWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return fmt.Errorf("invalid wav sample-rate: %d", srcRate)
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return fmt.Errorf("empty wav data: %s", path)
	}

	left := make([]float32, frames)
	right := make([]float32, frames)
	if numCh == 1 {
		for i := range frames {
			v := buf.Data[i]
			left[i] = v
			right[i] = v
		}
	} else {
		for i := range frames {
			left[i] = buf.Data[i*numCh]
			right[i] = buf.Data[i*numCh+1]
		}
	}

	left, err = c.resampleIfNeeded(left, srcRate)
	if err != nil {
		return err
	}
	right, err = c.resampleIfNeeded(right, srcRate)
	if err != nil {
		return err
	}
	return c.SetIR(left, right)
}

// Reset clears convolver history and overlap buffers.
func (c *BodyConvolver) Reset() {
	if c.leftOLA != nil {
		c.leftOLA.Reset()
	}
	if c.rightOLA != nil {
		c.rightOLA.Reset()
	}
	tailLen := c.irLen - 1
	if tailLen < 0 {
		tailLen = 0
	}
	c.tailLeft = make([]float64, tailLen)
	c.tailRight = make([]float64, tailLen)
}

func (c *BodyConvolver) resampleIfNeeded(in []float32, inRate int) ([]float32, error) {
	if inRate == c.sampleRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(inRate),
		float64(c.sampleRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}

	out64 := r.Process(toFloat64(in))
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}
