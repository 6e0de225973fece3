package messaging

import "sync"

// Fanout delivers each event to every registered publisher. A sink error
// does not stop delivery to the remaining sinks; the first error is
// returned.
type Fanout struct {
	sinks []Publisher
}

// NewFanout builds a fanout over the given sinks. Nil sinks are skipped.
func NewFanout(sinks ...Publisher) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish sends the event to all sinks.
func (f *Fanout) Publish(evt Event) error {
	var first error
	for _, s := range f.sinks {
		if err := s.Publish(evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder is an in-memory Publisher used in tests and as a ring buffer for
// the websocket feed's catch-up reads.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event.
func (r *Recorder) Publish(evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// BySubject returns recorded events matching the subject.
func (r *Recorder) BySubject(subject string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, evt := range r.events {
		if evt.Subject == subject {
			out = append(out, evt)
		}
	}
	return out
}
