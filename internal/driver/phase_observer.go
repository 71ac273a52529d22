package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a phase boundary of one unit.
type PhaseEvent struct {
	Unit    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events. Units compile in parallel, so it
// must be safe for concurrent use.
type PhaseObserver func(PhaseEvent)

// phase starts a named phase of unit on the session's timer and observer
// and returns the function that ends it.
func (s *Session) phase(unit, name string) func(note string) {
	end := s.opts.Timer.Track(unit + ": " + name)
	start := time.Now()
	if s.opts.Observer != nil {
		s.opts.Observer(PhaseEvent{Unit: unit, Name: name, Status: PhaseStart})
	}
	return func(note string) {
		end(note)
		if s.opts.Observer != nil {
			s.opts.Observer(PhaseEvent{Unit: unit, Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
		}
	}
}
