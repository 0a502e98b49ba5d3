package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dkoerner/pluck/event"
	"github.com/dkoerner/pluck/pluck"
	"github.com/dkoerner/pluck/preset"
)

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127)")
	duration := flag.Float64("duration", 2.0, "Render duration in seconds")
	releaseAfter := flag.Float64("release-after", 0.5, "Send NoteOff after this many seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	polyphony := flag.Int("polyphony", 16, "Maximum simultaneous voices")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	midiPath := flag.String("midi", "", "Standard MIDI file to render instead of a single note")
	tail := flag.Float64("tail", 1.5, "Extra seconds rendered after the last MIDI file event")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	params := pluck.NewDefaultParams()
	if *presetPath != "" {
		var err error
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	engine, err := pluck.NewEngine(*sampleRate, *polyphony, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating engine: %v\n", err)
		os.Exit(1)
	}

	var samples []float32
	if *midiPath != "" {
		samples, err = renderSMF(engine, *midiPath, *sampleRate, *tail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering %q: %v\n", *midiPath, err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Rendering note %d, velocity %d, for %.2f seconds at %d Hz...\n",
			*note, *velocity, *duration, *sampleRate)
		samples = renderNote(engine, *note, *velocity, *duration, *releaseAfter, *sampleRate)
	}

	if err := writeWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(samples)/2)
}

func renderNote(engine *pluck.Engine, note, velocity int, duration, releaseAfter float64, sampleRate int) []float32 {
	totalFrames := int(duration * float64(sampleRate))
	if totalFrames < 1 {
		totalFrames = 1
	}
	releaseAtFrame := int(releaseAfter * float64(sampleRate))

	engine.NoteOn(note, velocity)

	const blockSize = 128
	samples := make([]float32, 0, totalFrames*2)
	released := false
	for rendered := 0; rendered < totalFrames; {
		frames := blockSize
		if rendered+frames > totalFrames {
			frames = totalFrames - rendered
		}
		if !released && rendered >= releaseAtFrame {
			engine.NoteOff(note)
			released = true
		}
		samples = append(samples, engine.Process(frames)...)
		rendered += frames
	}
	return samples
}

type timedEvent struct {
	frame int
	ev    event.Event
}

// renderSMF plays every track of a standard MIDI file through the engine
// and renders until tail seconds past the last event.
func renderSMF(engine *pluck.Engine, path string, sampleRate int, tail float64) ([]float32, error) {
	var events []timedEvent
	rd := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		frame := int(te.AbsMicroSeconds * int64(sampleRate) / 1e6)
		var channel, key, vel, cc, val uint8
		var rel int16
		var abs uint16
		switch {
		case te.Message.GetNoteStart(&channel, &key, &vel):
			events = append(events, timedEvent{frame, event.NoteOn(int(key), int(vel))})
		case te.Message.GetNoteEnd(&channel, &key):
			events = append(events, timedEvent{frame, event.NoteOff(int(key))})
		case te.Message.GetControlChange(&channel, &cc, &val):
			events = append(events, timedEvent{frame, event.ControlChange(int(cc), int(val))})
		case te.Message.GetPitchBend(&channel, &rel, &abs):
			events = append(events, timedEvent{frame, event.PitchBend(int(abs))})
		}
	})
	if err := rd.Error(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no playable events in %s", path)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].frame < events[j].frame })

	totalFrames := events[len(events)-1].frame + int(tail*float64(sampleRate))
	fmt.Printf("Rendering %d events from %s (%.2fs at %d Hz)...\n",
		len(events), path, float64(totalFrames)/float64(sampleRate), sampleRate)

	const blockSize = 128
	samples := make([]float32, 0, totalFrames*2)
	next := 0
	for rendered := 0; rendered < totalFrames; {
		for next < len(events) && events[next].frame <= rendered {
			applyEvent(engine, events[next].ev)
			next++
		}
		frames := blockSize
		if next < len(events) && events[next].frame-rendered < frames {
			frames = events[next].frame - rendered
		}
		if rendered+frames > totalFrames {
			frames = totalFrames - rendered
		}
		if frames < 1 {
			frames = 1
		}
		samples = append(samples, engine.Process(frames)...)
		rendered += frames
	}
	return samples, nil
}

func applyEvent(sink event.Sink, ev event.Event) {
	switch ev.Kind {
	case event.KindNoteOn:
		sink.NoteOn(ev.Note, ev.Velocity)
	case event.KindNoteOff:
		sink.NoteOff(ev.Note)
	case event.KindControlChange:
		sink.ControlChange(ev.Controller, ev.Value)
	case event.KindPitchBend:
		sink.PitchBend(ev.Bend)
	}
}

func writeWAV(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	const numChannels = 2
	encoder := wav.NewEncoder(file, sampleRate, 16, numChannels, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return encoder.Write(buf)
}
