// pluck-live is the live instrument: MIDI input drives the synthesis
// engine, audio goes to the default output device. Note events and frame
// rendering run on separate timelines joined by a bounded dispatcher, so a
// burst of MIDI traffic can never stall the audio callback.
package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/dkoerner/pluck/event"
	"github.com/dkoerner/pluck/pluck"
	"github.com/dkoerner/pluck/preset"
)

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	polyphony := flag.Int("polyphony", 16, "Maximum simultaneous voices")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	watchPreset := flag.Bool("watch-preset", false, "Reload the preset file on change")
	portName := flag.String("port", "", "Substring of the MIDI input port to use (default: first port)")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	params := pluck.NewDefaultParams()
	if *presetPath != "" {
		params, err = preset.LoadJSON(*presetPath)
		if err != nil {
			logger.Fatal("load preset", zap.String("path", *presetPath), zap.Error(err))
		}
	}

	engine, err := pluck.NewEngine(*sampleRate, *polyphony, params)
	if err != nil {
		logger.Fatal("create engine", zap.Error(err))
	}

	dispatcher := event.NewDispatcher(256)
	var mu sync.Mutex // guards engine across callback and reload paths

	source, err := newMIDISource(*portName, logger)
	if err != nil {
		logger.Fatal("midi input", zap.Error(err))
	}
	if err := source.Start(dispatcher.Push); err != nil {
		logger.Fatal("midi listen", zap.Error(err))
	}
	defer source.Stop()

	if err := portaudio.Initialize(); err != nil {
		logger.Fatal("portaudio init", zap.Error(err))
	}
	defer portaudio.Terminate()

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(*sampleRate),
		portaudio.FramesPerBufferUnspecified, func(out []float32) {
			mu.Lock()
			dispatcher.Dispatch(engine)
			block := engine.Process(len(out) / 2)
			copy(out, block)
			mu.Unlock()
		})
	if err != nil {
		logger.Fatal("open stream", zap.Error(err))
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		logger.Fatal("start stream", zap.Error(err))
	}
	logger.Info("instrument running",
		zap.Int("sample_rate", *sampleRate),
		zap.Int("polyphony", *polyphony),
		zap.String("midi_port", source.Name()))

	done := make(chan struct{})
	errs := make(chan error, 1)
	paramsCh := make(chan *pluck.Params, 1)
	if *watchPreset && *presetPath != "" {
		if err := preset.Watch(*presetPath, paramsCh, errs, done); err != nil {
			logger.Fatal("watch preset", zap.Error(err))
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case p := <-paramsCh:
			// IR loading and convolver setup happen here, outside the
			// lock the audio callback takes; only the swap is locked.
			prepared, err := pluck.PrepareParams(*sampleRate, p)
			if err != nil {
				logger.Warn("preset rejected", zap.Error(err))
				continue
			}
			mu.Lock()
			engine.ApplyParams(prepared)
			mu.Unlock()
			logger.Info("preset reloaded", zap.String("path", *presetPath))
		case err := <-errs:
			logger.Warn("preset watch", zap.Error(err))
		case <-signals:
			logger.Info("shutting down")
			close(done)

			// Fade the engine out instead of truncating the stream.
			mu.Lock()
			dispatcher.Close(engine)
			engine.Stop()
			mu.Unlock()
			for i := 0; i < 100; i++ {
				mu.Lock()
				stopped := engine.Stopped()
				mu.Unlock()
				if stopped {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			if err := stream.Stop(); err != nil {
				logger.Warn("stop stream", zap.Error(err))
			}
			if dropped := dispatcher.Dropped(); dropped > 0 {
				logger.Warn("events dropped under load", zap.Uint64("count", dropped))
			}
			return
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
