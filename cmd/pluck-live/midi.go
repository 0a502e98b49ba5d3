package main

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/dkoerner/pluck/event"
)

// Ports matching any of these are virtual/system ports and never picked
// automatically.
var excludedPortPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// midiSource feeds events from a hardware MIDI input into a push function.
// It implements the event.Source contract for the rtmidi transport.
type midiSource struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	stopFn func()
	logger *zap.Logger
}

// newMIDISource opens the rtmidi driver and selects an input port. An
// empty name picks the first non-excluded port.
func newMIDISource(name string, logger *zap.Logger) (*midiSource, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	var in drivers.In
	for _, candidate := range ins {
		pn := candidate.String()
		if excludedPort(pn) {
			continue
		}
		if name == "" || strings.Contains(strings.ToLower(pn), strings.ToLower(name)) {
			in = candidate
			break
		}
	}
	if in == nil {
		drv.Close()
		return nil, fmt.Errorf("no MIDI input port matching %q", name)
	}

	return &midiSource{drv: drv, in: in, logger: logger}, nil
}

// Name returns the selected port name.
func (m *midiSource) Name() string {
	return m.in.String()
}

// Start opens the port and begins translating incoming messages. push is
// called from the rtmidi callback goroutine and must not block.
func (m *midiSource) Start(push func(event.Event)) error {
	if err := m.in.Open(); err != nil {
		return fmt.Errorf("open %q: %w", m.in.String(), err)
	}

	stop, err := midi.ListenTo(m.in, func(msg midi.Message, _ int32) {
		var channel, key, vel, cc, val uint8
		var rel int16
		var abs uint16
		switch {
		case msg.GetNoteStart(&channel, &key, &vel):
			m.logger.Debug("note on", zap.Uint8("key", key), zap.Uint8("vel", vel))
			push(event.NoteOn(int(key), int(vel)))
		case msg.GetNoteEnd(&channel, &key):
			m.logger.Debug("note off", zap.Uint8("key", key))
			push(event.NoteOff(int(key)))
		case msg.GetControlChange(&channel, &cc, &val):
			push(event.ControlChange(int(cc), int(val)))
		case msg.GetPitchBend(&channel, &rel, &abs):
			push(event.PitchBend(int(abs)))
		}
	}, midi.HandleError(func(err error) {
		m.logger.Warn("midi listener", zap.Error(err))
	}))
	if err != nil {
		m.in.Close()
		return fmt.Errorf("listen %q: %w", m.in.String(), err)
	}
	m.stopFn = stop
	return nil
}

// Stop ends listening and releases the driver.
func (m *midiSource) Stop() error {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.in != nil {
		_ = m.in.Close()
	}
	return m.drv.Close()
}

func excludedPort(name string) bool {
	for _, pat := range excludedPortPatterns {
		if strings.Contains(strings.ToLower(name), strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
