package sched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"memsched/internal/ident"
	"memsched/internal/memory"
)

type fixture struct {
	sched *Scheduler
	rec   *Recorder
	clock *VirtualClock
	procs []*Process
}

// newFixture admits P1(burst=5,arrival=0), P2(burst=3,arrival=2), P3(burst=4,arrival=1) in that order.
func newFixture(t *testing.T, opts ...Option) *fixture {
	mem, err := memory.NewBestFit(memory.DefaultBlocks)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	f := &fixture{rec: &Recorder{}, clock: NewVirtualClock()}
	opts = append([]Option{WithClock(f.clock), WithNotifier(f.rec), WithLogger(logger)}, opts...)
	f.sched = New(mem, opts...)

	ids := ident.New(11)
	for _, args := range [][4]int{{2, 0, 5, 512}, {1, 2, 3, 256}, {3, 1, 4, 128}} {
		p, err := NewProcess(ids, args[0], args[1], args[2], args[3])
		require.NoError(t, err)
		require.True(t, f.sched.AddProcess(p))
		f.procs = append(f.procs, p)
	}
	return f
}

func (f *fixture) ids(idx ...int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = f.procs[j].ID()
	}
	return out
}

func eventIDs(events []Event) []int {
	out := make([]int, len(events))
	for i, ev := range events {
		out[i] = ev.ProcessID
	}
	return out
}

func TestExecuteFCFSDispatchOrder(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 3, f.sched.Len())

	f.sched.ExecuteProcesses(context.Background())

	assert.Equal(t, 0, f.sched.Len())
	for _, p := range f.procs {
		assert.Equal(t, StateTerminated, p.State())
		assert.Equal(t, 0, p.Remaining())
	}
	assert.Equal(t, f.ids(0, 2, 1), f.sched.DispatchOrder())
	assert.Equal(t, f.ids(0, 2, 1), eventIDs(f.rec.Filter(EventStart)))
	assert.Equal(t, f.ids(0, 2, 1), eventIDs(f.rec.Filter(EventTerminate)))
	assert.Len(t, f.rec.Filter(EventWait), 2)
	assert.Equal(t, int64(2), f.sched.CurrentTime())
	assert.Equal(t, int64(14), f.clock.Now())
}

func TestExecuteFCFSRunsEachProcessToCompletion(t *testing.T) {
	f := newFixture(t)
	f.sched.ExecuteProcesses(context.Background())

	// between a start and the matching terminate only that process runs
	var running int
	for _, ev := range f.rec.Events() {
		switch ev.Kind {
		case EventStart:
			require.Zero(t, running)
			running = ev.ProcessID
		case EventQuantum:
			require.Equal(t, running, ev.ProcessID)
		case EventTerminate:
			require.Equal(t, running, ev.ProcessID)
			running = 0
		}
	}
}

func TestExecuteRoundRobinInterleaves(t *testing.T) {
	f := newFixture(t, WithMode(ModeRoundRobin))
	f.sched.ExecuteProcesses(context.Background())

	for _, p := range f.procs {
		assert.Equal(t, StateTerminated, p.State())
	}
	assert.Equal(t, f.ids(0, 1, 2), f.sched.DispatchOrder())
	assert.Equal(t, f.ids(1, 2, 0), eventIDs(f.rec.Filter(EventTerminate)))
	assert.Equal(t, f.ids(0, 1, 2, 0, 1, 2, 0), eventIDs(f.rec.Filter(EventQuantum)))
	assert.Empty(t, f.rec.Filter(EventWait))
	assert.Equal(t, int64(12), f.sched.CurrentTime())
	assert.Equal(t, int64(12), f.clock.Now())
}

func TestAddProcessRejectsWhenNoBlockFits(t *testing.T) {
	mem, err := memory.NewBestFit([]int{100, 50})
	require.NoError(t, err)
	rec := &Recorder{}
	s := New(mem, WithNotifier(rec))

	ids := ident.New(5)
	big, err := NewProcess(ids, 0, 0, 2, 200)
	require.NoError(t, err)
	small, err := NewProcess(ids, 0, 0, 2, 60)
	require.NoError(t, err)

	assert.False(t, s.AddProcess(big))
	assert.True(t, s.AddProcess(small))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []int{40, 50}, mem.Status())

	require.Len(t, rec.Filter(EventReject), 1)
	assert.Equal(t, big.ID(), rec.Filter(EventReject)[0].ProcessID)
	require.Len(t, rec.Filter(EventAdmit), 1)
	assert.Equal(t, 0, rec.Filter(EventAdmit)[0].Block)

	s.ExecuteProcesses(context.Background())
	assert.Equal(t, StateNew, big.State())
	assert.Equal(t, StateTerminated, small.State())
}

func TestExecuteWaitsForLateArrival(t *testing.T) {
	mem, err := memory.NewBestFit([]int{10})
	require.NoError(t, err)
	rec := &Recorder{}
	clock := NewVirtualClock()
	s := New(mem, WithNotifier(rec), WithClock(clock))

	p, err := NewProcess(ident.New(5), 0, 3, 1, 1)
	require.NoError(t, err)
	require.True(t, s.AddProcess(p))

	s.ExecuteProcesses(context.Background())
	assert.Len(t, rec.Filter(EventWait), 3)
	assert.Equal(t, int64(3), p.StartedAt())
	assert.Equal(t, int64(4), p.FinishedAt())
}

func TestExecuteEmptyQueue(t *testing.T) {
	mem, err := memory.NewBestFit(nil)
	require.NoError(t, err)
	s := New(mem)
	s.ExecuteProcesses(context.Background())
	assert.Equal(t, int64(0), s.CurrentTime())
}

func TestExecuteWithCancelledContextStillCompletes(t *testing.T) {
	logger, hook := test.NewNullLogger()
	f := newFixture(t, WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.sched.ExecuteProcesses(ctx)

	for _, p := range f.procs {
		assert.Equal(t, StateTerminated, p.State())
	}
	assert.Equal(t, f.ids(0, 2, 1), f.sched.DispatchOrder())
	// 7 quanta and 2 arrival waits, none of which could sleep
	assert.Len(t, f.rec.Filter(EventInterrupt), 9)
	assert.Equal(t, int64(0), f.clock.Now())

	var warns int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warns++
		}
	}
	assert.Equal(t, 9, warns)
}

func counterValue(snapshot tally.Snapshot, name string, tags map[string]string) int64 {
	var total int64
	for _, c := range snapshot.Counters() {
		if c.Name() != name {
			continue
		}
		match := true
		for k, v := range tags {
			if c.Tags()[k] != v {
				match = false
			}
		}
		if match {
			total += c.Value()
		}
	}
	return total
}

func TestMetrics(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	f := newFixture(t, WithScope(scope))

	mem, err := memory.NewBestFit([]int{1})
	require.NoError(t, err)
	f.sched.mem = mem
	p, err := NewProcess(ident.New(2), 0, 0, 1, 5)
	require.NoError(t, err)
	require.False(t, f.sched.AddProcess(p))

	f.sched.ExecuteProcesses(context.Background())

	snap := scope.Snapshot()
	assert.Equal(t, int64(3), counterValue(snap, "admission", map[string]string{"result": "success"}))
	assert.Equal(t, int64(1), counterValue(snap, "admission", map[string]string{"result": "fail"}))
	assert.Equal(t, int64(3), counterValue(snap, "exec.dispatched", nil))
	assert.Equal(t, int64(7), counterValue(snap, "exec.quanta", nil))
	assert.Equal(t, int64(3), counterValue(snap, "exec.terminated", nil))
	assert.Equal(t, int64(2), counterValue(snap, "exec.arrival_waits", nil))
	assert.Equal(t, int64(0), counterValue(snap, "exec.interrupted_waits", nil))

	for _, g := range snap.Gauges() {
		if g.Name() == "queue_length" {
			assert.Equal(t, float64(0), g.Value())
		}
	}
}

func TestDispatchSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t, WithTracer(tp.Tracer("test")), WithMode(ModeRoundRobin))
	f.sched.ExecuteProcesses(context.Background())

	spans := sr.Ended()
	require.Len(t, spans, 7)
	for _, span := range spans {
		assert.Equal(t, "dispatch", span.Name())
	}
	first := spans[0].Attributes()
	var gotID int64
	for _, kv := range first {
		if kv.Key == "process.id" {
			gotID = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(f.procs[0].ID()), gotID)
}

func TestAddProcessConcurrent(t *testing.T) {
	mem, err := memory.NewBestFit([]int{1000})
	require.NoError(t, err)
	s := New(mem)
	ids := ident.New(9)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		p, err := NewProcess(ids, 0, 0, 1, 10)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddProcess(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	assert.Equal(t, 500, mem.Free())
}

func TestExecuteOnTickClock(t *testing.T) {
	mem, err := memory.NewBestFit([]int{10})
	require.NoError(t, err)
	clock := NewTickClock(0)
	clock.Start(time.Millisecond)
	defer clock.Stop()

	s := New(mem, WithClock(clock))
	p, err := NewProcess(ident.New(5), 0, 1, 3, 5)
	require.NoError(t, err)
	require.True(t, s.AddProcess(p))

	s.ExecuteProcesses(context.Background())
	assert.Equal(t, StateTerminated, p.State())
	assert.GreaterOrEqual(t, clock.Count(), int64(4))
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	mem, err := memory.NewBestFit(nil)
	require.NoError(t, err)
	s := New(mem, WithMode("lottery"), WithQuantum(0))
	assert.Equal(t, ModeFCFS, s.Mode())
	assert.Equal(t, DefaultQuantum, s.quantum)
}
