package engine

import "github.com/roach88/turbine/internal/ir"

// EventKind identifies what happened in an Event.
type EventKind string

const (
	EventPassStarted  EventKind = "pass_started"
	EventDispatch     EventKind = "dispatch"
	EventSkipped      EventKind = "skipped"
	EventDeferred     EventKind = "deferred"
	EventFault        EventKind = "fault"
	EventFatal        EventKind = "fatal"
	EventPromoted     EventKind = "promoted"
	EventFinalized    EventKind = "finalized"
	EventPassFinished EventKind = "pass_finished"
)

// Event is one observable step of the engine. Events are emitted in Seq
// order from the goroutine calling RunPass.
type Event struct {
	Seq       int64
	Kind      EventKind
	Pass      int
	Generator string
	Tag       ir.Tag
	Decls     []ir.DeclID
	Message   string
}

// Observer receives engine events.
type Observer interface {
	OnEvent(ev Event)
}

// Recorder is an Observer that keeps every event.
type Recorder struct {
	Events []Event
}

// OnEvent appends ev.
func (r *Recorder) OnEvent(ev Event) {
	r.Events = append(r.Events, ev)
}

// OfKind returns the recorded events of the given kind.
func (r *Recorder) OfKind(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func declIDs(decls []ir.Declaration) []ir.DeclID {
	ids := make([]ir.DeclID, len(decls))
	for i, d := range decls {
		ids[i] = d.ID()
	}
	return ids
}
