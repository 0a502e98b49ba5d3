package event

import (
	"sync"
	"time"
)

// Dispatcher is a bounded hand-off queue between the event-arrival timeline
// and the render timeline. Push never blocks: when the queue is full the
// oldest pending event is dropped and counted. Dispatch is meant to be
// called from the render side between audio blocks; a slightly delayed
// note-on is acceptable, a blocked render callback is not.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []Event
	head    int
	count   int
	dropped uint64
	closed  bool
}

// NewDispatcher creates a dispatcher holding at most capacity pending
// events. Capacities below 1 are raised to 64.
func NewDispatcher(capacity int) *Dispatcher {
	if capacity < 1 {
		capacity = 64
	}
	return &Dispatcher{
		queue: make([]Event, capacity),
	}
}

// Push enqueues an event, stamping it with the arrival time if unset.
// On overflow the oldest pending event is discarded. Push after Close is a
// no-op.
func (d *Dispatcher) Push(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.count == len(d.queue) {
		d.head = (d.head + 1) % len(d.queue)
		d.count--
		d.dropped++
	}
	tail := (d.head + d.count) % len(d.queue)
	d.queue[tail] = ev
	d.count++
}

// Dispatch applies all pending events to the sink in arrival order and
// returns how many were applied.
func (d *Dispatcher) Dispatch(sink Sink) int {
	d.mu.Lock()
	pending := make([]Event, 0, d.count)
	for d.count > 0 {
		pending = append(pending, d.queue[d.head])
		d.head = (d.head + 1) % len(d.queue)
		d.count--
	}
	d.mu.Unlock()

	for _, ev := range pending {
		switch ev.Kind {
		case KindNoteOn:
			sink.NoteOn(ev.Note, ev.Velocity)
		case KindNoteOff:
			sink.NoteOff(ev.Note)
		case KindControlChange:
			sink.ControlChange(ev.Controller, ev.Value)
		case KindPitchBend:
			sink.PitchBend(ev.Bend)
		}
	}
	return len(pending)
}

// Dropped returns the number of events discarded due to overflow.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close drains remaining events into the sink (if non-nil) and rejects
// further pushes.
func (d *Dispatcher) Close(sink Sink) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	if sink != nil {
		d.Dispatch(sink)
	}
}
