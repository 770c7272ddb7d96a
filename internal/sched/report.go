// internal/sched/report.go

package sched

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ProcessStats summarises one terminated process. Times are clock readings.
type ProcessStats struct {
	ID         int
	Priority   int
	Arrival    int
	Burst      int
	Quanta     int
	StartedAt  int64
	FinishedAt int64
	Turnaround int64
	Waiting    int64
}

// Report summarises a run in dispatch order.
type Report struct {
	Processes      []ProcessStats
	MeanTurnaround float64
	MeanWaiting    float64
}

// NewReport builds a report for the terminated processes among procs,
// ordered as in order (ids in first-dispatch order).
func NewReport(order []int, procs []*Process) Report {
	byID := make(map[int]*Process, len(procs))
	for _, p := range procs {
		byID[p.ID()] = p
	}

	var (
		r           Report
		turnarounds []float64
		waits       []float64
	)
	for _, id := range order {
		p, ok := byID[id]
		if !ok || p.State() != StateTerminated {
			continue
		}
		turnaround := p.FinishedAt() - int64(p.Arrival())
		waiting := turnaround - int64(p.Burst())
		if waiting < 0 {
			waiting = 0
		}
		r.Processes = append(r.Processes, ProcessStats{
			ID:         p.ID(),
			Priority:   p.Priority(),
			Arrival:    p.Arrival(),
			Burst:      p.Burst(),
			Quanta:     p.Quanta(),
			StartedAt:  p.StartedAt(),
			FinishedAt: p.FinishedAt(),
			Turnaround: turnaround,
			Waiting:    waiting,
		})
		turnarounds = append(turnarounds, float64(turnaround))
		waits = append(waits, float64(waiting))
	}

	if len(r.Processes) > 0 {
		r.MeanTurnaround = stat.Mean(turnarounds, nil)
		r.MeanWaiting = stat.Mean(waits, nil)
	}
	return r
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %8s %6s %6s %6s %8s %8s %10s %8s\n",
		"PID", "PRIORITY", "ARRIVE", "BURST", "QUANTA", "START", "FINISH", "TURNAROUND", "WAITING")
	for _, p := range r.Processes {
		fmt.Fprintf(&b, "%-8d %8d %6d %6d %6d %8d %8d %10d %8d\n",
			p.ID, p.Priority, p.Arrival, p.Burst, p.Quanta, p.StartedAt, p.FinishedAt, p.Turnaround, p.Waiting)
	}
	fmt.Fprintf(&b, "mean turnaround %.2f, mean waiting %.2f\n", r.MeanTurnaround, r.MeanWaiting)
	return b.String()
}
