package routine

import (
	"errors"
	"log"
	"sync"
	"time"
)

// A Step holds one named output state for a fixed duration.
type Step struct {
	Label string
	Hold  time.Duration
}

// A Routine is an ordered, non-empty, timed sequence of steps,
// replayed Cycles times. Catalog entries are immutable.
type Routine struct {
	Name   string
	Cycles int
	Steps  []Step
}

// DefaultCycles is used for routines registered without a count.
const DefaultCycles = 10

// Handler applies a step's named state. Apply must return before the
// engine starts the step's hold, so every step is acknowledged in
// order even though the holds run on a background goroutine.
type Handler interface {
	Apply(label string) error
}

type EventType string

const (
	EventStep      EventType = "step"
	EventCompleted EventType = "completed"
	EventAborted   EventType = "aborted"
)

// Event is the observer feed: one per applied step plus a terminal
// completed/aborted event. A cancelled run emits nothing further.
type Event struct {
	Type    EventType
	Routine string
	Label   string
}

var (
	ErrBusy           = errors.New("a routine is already running")
	ErrUnknownRoutine = errors.New("unknown routine")
)

type run struct {
	routine   Routine
	cancelled bool // guarded by the engine mutex
}

// Engine executes at most one routine at a time. Each run lives on
// its own goroutine; the engine mutex only guards the active-run slot
// and cancel flags, so starting, cancelling and status queries never
// wait on a hold.
type Engine struct {
	h       Handler
	catalog map[string]Routine
	order   []string

	mx     sync.Mutex
	active *run

	events chan Event
}

func NewEngine(h Handler, routines []Routine) *Engine {
	e := &Engine{
		h:       h,
		catalog: make(map[string]Routine, len(routines)),
		events:  make(chan Event, 64),
	}
	for _, r := range routines {
		if r.Cycles <= 0 {
			r.Cycles = DefaultCycles
		}
		e.catalog[r.Name] = r
		e.order = append(e.order, r.Name)
	}
	return e
}

// Routines returns the catalog names in registration order.
func (e *Engine) Routines() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Events delivers step and terminal events to observers. Delivery is
// best-effort: a slow observer drops events rather than stalling a
// run. The Handler, not this channel, is the acknowledged path.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Running reports the active routine name, if any.
func (e *Engine) Running() (string, bool) {
	e.mx.Lock()
	defer e.mx.Unlock()
	if e.active == nil {
		return "", false
	}
	return e.active.routine.Name, true
}

// Start begins the named routine on a background goroutine. It fails
// with ErrBusy while any run is active, whichever routine it is;
// callers that want to supersede must Cancel first.
func (e *Engine) Start(name string) error {
	e.mx.Lock()
	defer e.mx.Unlock()
	r, ok := e.catalog[name]
	if !ok {
		return ErrUnknownRoutine
	}
	if e.active != nil {
		return ErrBusy
	}
	rn := &run{routine: r}
	e.active = rn
	go e.execute(rn)
	return nil
}

// Cancel flags the active run, if any, and frees the active slot so
// a new Start is accepted immediately. The old run stops at its next
// step boundary; an in-flight hold is not interrupted.
func (e *Engine) Cancel() {
	e.mx.Lock()
	defer e.mx.Unlock()
	if e.active == nil {
		return
	}
	e.active.cancelled = true
	e.active = nil
}

func (e *Engine) execute(rn *run) {
	name := rn.routine.Name
	for c := 0; c < rn.routine.Cycles; c++ {
		for _, st := range rn.routine.Steps {
			e.mx.Lock()
			cancelled := rn.cancelled
			e.mx.Unlock()
			if cancelled {
				return
			}
			if err := e.h.Apply(st.Label); err != nil {
				log.Printf("ERROR: routine %s step %s: %v", name, st.Label, err)
				e.finish(rn, Event{Type: EventAborted, Routine: name, Label: st.Label})
				return
			}
			e.notify(rn, Event{Type: EventStep, Routine: name, Label: st.Label})
			time.Sleep(st.Hold)
		}
	}
	e.finish(rn, Event{Type: EventCompleted, Routine: name})
}

// notify pushes an observer event unless the run was cancelled in
// the meantime; nothing is delivered after cancellation is observed.
func (e *Engine) notify(rn *run, ev Event) {
	e.mx.Lock()
	cancelled := rn.cancelled
	e.mx.Unlock()
	if cancelled {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) finish(rn *run, ev Event) {
	e.mx.Lock()
	if e.active == rn {
		e.active = nil
	}
	cancelled := rn.cancelled
	e.mx.Unlock()
	if cancelled {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}
