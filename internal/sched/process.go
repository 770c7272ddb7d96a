// internal/sched/process.go

package sched

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"memsched/internal/ident"
)

// DefaultQuantum is the largest slice a process runs before its next wait.
const DefaultQuantum = 2

// State is the lifecycle position of a process.
type State int

const (
	StateNew State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrNotNew is returned when starting a process that was already started.
	ErrNotNew = errors.New("process is not in NEW state")
	// ErrUnfinished is returned when terminating a process with time left.
	ErrUnfinished = errors.New("process still has remaining time")
	// ErrTerminated is returned when terminating a process twice.
	ErrTerminated = errors.New("process already terminated")
)

// Env is what a process needs from its host while it executes.
type Env struct {
	Clock    Clock
	Notifier Notifier
	Quantum  int
	Log      *logrus.Entry
}

// Process is one unit of schedulable work that needs Memory units of
// contiguous capacity before it can be admitted.
type Process struct {
	id        int
	priority  int // recorded only, dispatch order ignores it
	arrival   int
	burst     int
	memory    int
	remaining int
	state     State

	quanta     int
	startedAt  int64
	finishedAt int64
}

// NewProcess validates the parameters and draws a fresh identifier from ids.
func NewProcess(ids *ident.Allocator, priority, arrival, burst, memory int) (*Process, error) {
	switch {
	case priority < 0:
		return nil, fmt.Errorf("negative priority %d", priority)
	case arrival < 0:
		return nil, fmt.Errorf("negative arrival time %d", arrival)
	case burst < 0:
		return nil, fmt.Errorf("negative burst time %d", burst)
	case memory < 0:
		return nil, fmt.Errorf("negative memory requirement %d", memory)
	}

	return &Process{
		id:        ids.NewID(),
		priority:  priority,
		arrival:   arrival,
		burst:     burst,
		memory:    memory,
		remaining: burst,
		state:     StateNew,
	}, nil
}

func (p *Process) ID() int          { return p.id }
func (p *Process) Priority() int    { return p.priority }
func (p *Process) Arrival() int     { return p.arrival }
func (p *Process) Burst() int       { return p.burst }
func (p *Process) Memory() int      { return p.memory }
func (p *Process) Remaining() int   { return p.remaining }
func (p *Process) State() State     { return p.state }
func (p *Process) Quanta() int      { return p.quanta }
func (p *Process) StartedAt() int64 { return p.startedAt }

// FinishedAt is the clock reading at termination, zero before that.
func (p *Process) FinishedAt() int64 { return p.finishedAt }

func (p *Process) String() string {
	return fmt.Sprintf("process %d [%s] priority=%d arrival=%d remaining=%d/%d memory=%d",
		p.id, p.state, p.priority, p.arrival, p.remaining, p.burst, p.memory)
}

// Start moves a NEW process to RUNNING.
func (p *Process) Start(env Env) error {
	if p.state != StateNew {
		return fmt.Errorf("start %d: %w", p.id, ErrNotNew)
	}
	p.state = StateRunning
	p.startedAt = env.Clock.Now()
	env.Notifier.Notify(Event{
		Time:      p.startedAt,
		Kind:      EventStart,
		ProcessID: p.id,
		Remaining: p.remaining,
	})
	return nil
}

// RunQuantum executes at most one quantum and waits for the slice it ran.
// It returns the remaining time. A process that is not RUNNING is left alone.
func (p *Process) RunQuantum(ctx context.Context, env Env) int {
	if p.state != StateRunning || p.remaining == 0 {
		return p.remaining
	}

	quantum := env.Quantum
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	slice := min(p.remaining, quantum)
	p.remaining -= slice
	p.quanta++

	env.Notifier.Notify(Event{
		Time:      env.Clock.Now(),
		Kind:      EventQuantum,
		ProcessID: p.id,
		Remaining: p.remaining,
		Slice:     slice,
	})

	if err := env.Clock.Sleep(ctx, int64(slice)); err != nil {
		env.Log.WithError(err).WithField("process_id", p.id).Warn("quantum wait interrupted")
		env.Notifier.Notify(Event{
			Time:      env.Clock.Now(),
			Kind:      EventInterrupt,
			ProcessID: p.id,
			Remaining: p.remaining,
			Err:       err,
		})
	}
	return p.remaining
}

// Terminate moves a RUNNING process with no remaining time to TERMINATED.
func (p *Process) Terminate(env Env) error {
	switch {
	case p.state == StateTerminated:
		return fmt.Errorf("terminate %d: %w", p.id, ErrTerminated)
	case p.remaining > 0:
		return fmt.Errorf("terminate %d: %w", p.id, ErrUnfinished)
	}
	p.state = StateTerminated
	p.finishedAt = env.Clock.Now()
	env.Notifier.Notify(Event{
		Time:      p.finishedAt,
		Kind:      EventTerminate,
		ProcessID: p.id,
	})
	return nil
}

// Run starts the process and drives it quantum by quantum to termination
// without returning control in between.
func (p *Process) Run(ctx context.Context, env Env) error {
	if err := p.Start(env); err != nil {
		return err
	}
	for p.remaining > 0 {
		p.RunQuantum(ctx, env)
	}
	return p.Terminate(env)
}
