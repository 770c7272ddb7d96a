// internal/sched/metrics.go

package sched

import "github.com/uber-go/tally/v4"

// Metrics tracks admission and execution counters for a scheduler.
type Metrics struct {
	AdmissionSuccess tally.Counter
	AdmissionFail    tally.Counter

	Dispatched       tally.Counter
	Quanta           tally.Counter
	Terminated       tally.Counter
	ArrivalWaits     tally.Counter
	InterruptedWaits tally.Counter

	QueueLength tally.Gauge
	FreeMemory  tally.Gauge
}

// NewMetrics returns a new instance of sched.Metrics.
func NewMetrics(scope tally.Scope) *Metrics {
	successScope := scope.Tagged(map[string]string{"result": "success"})
	failScope := scope.Tagged(map[string]string{"result": "fail"})
	execScope := scope.SubScope("exec")

	return &Metrics{
		AdmissionSuccess: successScope.Counter("admission"),
		AdmissionFail:    failScope.Counter("admission"),

		Dispatched:       execScope.Counter("dispatched"),
		Quanta:           execScope.Counter("quanta"),
		Terminated:       execScope.Counter("terminated"),
		ArrivalWaits:     execScope.Counter("arrival_waits"),
		InterruptedWaits: execScope.Counter("interrupted_waits"),

		QueueLength: scope.Gauge("queue_length"),
		FreeMemory:  scope.Gauge("free_memory"),
	}
}

// Notify counts events. Dispatches and gauges are updated by the scheduler.
func (m *Metrics) Notify(ev Event) {
	switch ev.Kind {
	case EventAdmit:
		m.AdmissionSuccess.Inc(1)
	case EventReject:
		m.AdmissionFail.Inc(1)
	case EventQuantum:
		m.Quanta.Inc(1)
	case EventTerminate:
		m.Terminated.Inc(1)
	case EventWait:
		m.ArrivalWaits.Inc(1)
	case EventInterrupt:
		m.InterruptedWaits.Inc(1)
	}
}
