// internal/sched/event.go

package sched

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventAdmit EventKind = iota
	EventReject
	EventStart
	EventQuantum
	EventTerminate
	EventWait
	EventInterrupt
)

// Event is emitted on every admission decision and every execution step.
type Event struct {
	Time      int64 // clock reading when the event was emitted
	Kind      EventKind
	ProcessID int
	Remaining int
	Slice     int   // units executed, set on EventQuantum
	Block     int   // table position, set on EventAdmit
	Err       error // set on EventInterrupt
}

func (k EventKind) String() string {
	switch k {
	case EventAdmit:
		return "Admit"
	case EventReject:
		return "Reject"
	case EventStart:
		return "Start"
	case EventQuantum:
		return "Quantum"
	case EventTerminate:
		return "Terminate"
	case EventWait:
		return "Wait"
	case EventInterrupt:
		return "Interrupt"
	default:
		return "Unknown"
	}
}

// Notifier receives events synchronously, in emission order.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// Notifiers fans an event out to every member.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ev Event) {
	for _, n := range ns {
		n.Notify(ev)
	}
}
