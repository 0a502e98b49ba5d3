// Package event defines the MIDI-side event model and the dispatcher that
// hands events from the arrival timeline to the render timeline.
package event

import "time"

// Kind tags the event variants the engine understands.
type Kind uint8

const (
	KindNoteOn Kind = iota + 1
	KindNoteOff
	KindControlChange
	KindPitchBend
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindControlChange:
		return "control-change"
	case KindPitchBend:
		return "pitch-bend"
	}
	return "unknown"
}

// Event is one tagged MIDI event. Fields not relevant to the Kind are zero.
// Ordering is arrival order; Timestamp is informational.
type Event struct {
	Kind       Kind
	Note       int
	Velocity   int
	Controller int
	Value      int
	Bend       int
	Timestamp  time.Time
}

// NoteOn builds a note-on event.
func NoteOn(note, velocity int) Event {
	return Event{Kind: KindNoteOn, Note: note, Velocity: velocity}
}

// NoteOff builds a note-off event.
func NoteOff(note int) Event {
	return Event{Kind: KindNoteOff, Note: note}
}

// ControlChange builds a control-change event.
func ControlChange(controller, value int) Event {
	return Event{Kind: KindControlChange, Controller: controller, Value: value}
}

// PitchBend builds a pitch-bend event from a 14-bit value (8192 = neutral).
func PitchBend(bend int) Event {
	return Event{Kind: KindPitchBend, Bend: bend}
}

// Sink receives translated events on the render timeline. The synthesis
// engine implements this.
type Sink interface {
	NoteOn(note, velocity int)
	NoteOff(note int)
	ControlChange(controller, value int)
	PitchBend(bend int)
}

// Source produces a live stream of events. Implementations wrap a concrete
// MIDI transport; push must be safe to call from the transport's callback
// goroutine and must not block.
type Source interface {
	// Start begins delivering events through push until Stop is called.
	Start(push func(Event)) error
	Stop() error
}
