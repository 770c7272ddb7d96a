// internal/sched/scheduler.go

package sched

import (
	"context"
	"fmt"
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mode selects how a dispatched process is executed.
type Mode string

const (
	// ModeFCFS runs every dispatched process to completion. The scheduler's
	// arrival clock only moves while waiting for the head of the queue.
	ModeFCFS Mode = "fcfs"
	// ModeRoundRobin runs one quantum per dispatch and re-enqueues the
	// process while it has time left. The arrival clock also moves by each
	// executed slice.
	ModeRoundRobin Mode = "round-robin"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeFCFS || m == ModeRoundRobin
}

// Allocator decides memory admission.
type Allocator interface {
	Allocate(size int) (int, bool)
	Free() int
}

// Scheduler admits processes against an Allocator and dispatches them from a
// FIFO ready queue.
type Scheduler struct {
	mu          sync.Mutex             // protects queue, order and currentTime
	mode        Mode                   // execution discipline
	quantum     int                    // largest slice per quantum
	mem         Allocator              // admission gate
	clock       Clock                  // suspension and timestamps
	queue       *linkedlistqueue.Queue // admitted processes awaiting dispatch
	order       []int                  // ids in first-dispatch order
	currentTime int64                  // arrival gate

	notifier Notifiers
	metrics  *Metrics
	tracer   trace.Tracer
	log      *logrus.Entry
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMode sets the dispatch mode. Unknown modes fall back to ModeFCFS.
func WithMode(m Mode) Option {
	return func(s *Scheduler) {
		if m.Valid() {
			s.mode = m
		}
	}
}

// WithQuantum sets the quantum. Non-positive values are ignored.
func WithQuantum(q int) Option {
	return func(s *Scheduler) {
		if q > 0 {
			s.quantum = q
		}
	}
}

// WithClock replaces the default virtual clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithNotifier adds an event consumer.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = append(s.notifier, n) }
}

// WithLogger sets the logger, every entry carries the run id.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Scheduler) { s.log = l.WithField("run_id", s.log.Data["run_id"]) }
}

// WithScope reports metrics to scope.
func WithScope(scope tally.Scope) Option {
	return func(s *Scheduler) { s.metrics = NewMetrics(scope) }
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// New creates a Scheduler admitting against mem.
func New(mem Allocator, opts ...Option) *Scheduler {
	s := &Scheduler{
		mode:    ModeFCFS,
		quantum: DefaultQuantum,
		mem:     mem,
		clock:   NewVirtualClock(),
		queue:   linkedlistqueue.New(),
		tracer:  otel.Tracer("memsched/internal/sched"),
		log:     logrus.StandardLogger().WithField("run_id", uuid.NewString()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(tally.NoopScope)
	}
	return s
}

// Mode returns the dispatch mode in use.
func (s *Scheduler) Mode() Mode { return s.mode }

// Len is the number of processes waiting in the ready queue.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Size()
}

// CurrentTime is the arrival clock used to gate the head of the queue.
func (s *Scheduler) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

// DispatchOrder returns process ids in the order they were first dispatched.
func (s *Scheduler) DispatchOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.order...)
}

// AddProcess asks the allocator for p's memory. On success p joins the back
// of the ready queue. On failure p is dropped for good.
func (s *Scheduler) AddProcess(p *Process) bool {
	s.mu.Lock()
	block, ok := s.mem.Allocate(p.Memory())
	if ok {
		s.queue.Enqueue(p)
	}
	size := s.queue.Size()
	s.mu.Unlock()

	s.metrics.QueueLength.Update(float64(size))
	s.metrics.FreeMemory.Update(float64(s.mem.Free()))

	if !ok {
		s.emit(Event{Time: s.clock.Now(), Kind: EventReject, ProcessID: p.ID(), Remaining: p.Remaining(), Block: -1})
		return false
	}
	s.emit(Event{Time: s.clock.Now(), Kind: EventAdmit, ProcessID: p.ID(), Remaining: p.Remaining(), Block: block})
	return true
}

// ExecuteProcesses drains the ready queue. A head that has not arrived yet is
// rotated to the back while the arrival clock advances one unit.
func (s *Scheduler) ExecuteProcesses(ctx context.Context) {
	env := Env{
		Clock:    s.clock,
		Notifier: NotifierFunc(s.emit),
		Quantum:  s.quantum,
		Log:      s.log,
	}

	for {
		p, ok := s.dequeue()
		if !ok {
			return
		}

		if int64(p.Arrival()) <= s.CurrentTime() {
			s.dispatch(ctx, env, p)
			if p.Remaining() > 0 {
				s.enqueue(p)
			}
			continue
		}

		s.enqueue(p)
		s.mu.Lock()
		s.currentTime++
		now := s.currentTime
		s.mu.Unlock()

		s.emit(Event{Time: s.clock.Now(), Kind: EventWait, ProcessID: p.ID(), Remaining: p.Remaining()})
		if err := s.clock.Sleep(ctx, 1); err != nil {
			s.log.WithError(err).WithField("current_time", now).Warn("arrival wait interrupted")
			s.emit(Event{Time: s.clock.Now(), Kind: EventInterrupt, ProcessID: p.ID(), Remaining: p.Remaining(), Err: err})
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, env Env, p *Process) {
	ctx, span := s.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.Int("process.id", p.ID()),
		attribute.Int("process.priority", p.Priority()),
		attribute.Int("process.remaining", p.Remaining()),
		attribute.String("sched.mode", string(s.mode)),
	))
	defer span.End()

	s.metrics.Dispatched.Inc(1)
	if p.State() == StateNew {
		s.mu.Lock()
		s.order = append(s.order, p.ID())
		s.mu.Unlock()
	}

	var err error
	switch s.mode {
	case ModeRoundRobin:
		err = s.runQuantum(ctx, env, p)
	default:
		err = p.Run(ctx, env)
	}
	if err != nil {
		span.RecordError(err)
		s.log.WithError(err).WithField("process_id", p.ID()).Error("dispatch failed")
	}
	span.SetAttributes(attribute.Int("process.remaining_after", p.Remaining()))
}

// runQuantum gives p a single quantum and charges it to the arrival clock.
func (s *Scheduler) runQuantum(ctx context.Context, env Env, p *Process) error {
	if p.State() == StateNew {
		if err := p.Start(env); err != nil {
			return err
		}
	}
	before := p.Remaining()
	after := p.RunQuantum(ctx, env)

	s.mu.Lock()
	s.currentTime += int64(before - after)
	s.mu.Unlock()

	if after == 0 {
		return p.Terminate(env)
	}
	return nil
}

func (s *Scheduler) dequeue() (*Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.queue.Dequeue()
	if !ok {
		return nil, false
	}
	s.metrics.QueueLength.Update(float64(s.queue.Size()))
	return v.(*Process), true
}

func (s *Scheduler) enqueue(p *Process) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Enqueue(p)
	s.metrics.QueueLength.Update(float64(s.queue.Size()))
}

func (s *Scheduler) emit(ev Event) {
	s.metrics.Notify(ev)
	s.notifier.Notify(ev)
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler mode=%s quantum=%d queued=%d time=%d", s.mode, s.quantum, s.Len(), s.CurrentTime())
}
