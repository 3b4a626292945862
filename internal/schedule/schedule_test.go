package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"momo/internal/eventbus"
	"momo/internal/executor"
	"momo/internal/ledger"
	"momo/internal/model"
	"momo/internal/store"
)

func newTestSchedule(t *testing.T) *Schedule {
	t.Helper()

	s := store.NewMemoryStore()
	l := ledger.NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.AddSchedule(ctx, "sched-1", "main"))

	exec := executor.New(s, l, eventbus.NoopPublisher{}, "sched-1", zap.NewNop())
	return New("sched-1", s, l, exec, zap.NewNop())
}

// Scenario 1: define then run once.
func TestDefineJobThenRun_Finishes(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name:        "j",
		IntervalRaw: "one minute",
		Concurrency: 1,
		Handler: func(context.Context, model.Job) error {
			return nil
		},
	}))

	outcome, err := sched.Run(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFinished, outcome)

	desc, err := sched.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, 0, desc.Job.Running)
	require.NotNil(t, desc.Job.ExecutionInfo.LastFinished)
}

// Scenario 4: unparseable interval rejects before anything persists.
func TestDefineJob_RejectsUnparsableInterval(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	err := sched.DefineJob(ctx, Definition{
		Name:        "j",
		IntervalRaw: "every blue moon",
		Concurrency: 1,
		Handler:     func(context.Context, model.Job) error { return nil },
	})
	require.Error(t, err)

	_, err = sched.Get(ctx, "j")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestDefineJob_RejectsInvalidConcurrencyAndMaxRunning(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	err := sched.DefineJob(ctx, Definition{Name: "j", IntervalRaw: "one minute", Concurrency: 0})
	assert.ErrorIs(t, err, model.ErrInvalidConcurrency)

	err = sched.DefineJob(ctx, Definition{Name: "j", IntervalRaw: "one minute", Concurrency: 1, MaxRunning: -1})
	assert.ErrorIs(t, err, model.ErrInvalidMaxRunning)
}

// DefineJob is a full replace: redefining stops the previous
// scheduler before the new one is callable.
func TestDefineJob_ReplacesPriorScheduler(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	var firstCalls int32
	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name: "j", IntervalRaw: "one minute", Concurrency: 1,
		Handler: func(context.Context, model.Job) error {
			atomic.AddInt32(&firstCalls, 1)
			return nil
		},
	}))
	require.NoError(t, sched.Start(ctx, "j"))

	var secondCalls int32
	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name: "j", IntervalRaw: "one minute", Concurrency: 1,
		Handler: func(context.Context, model.Job) error {
			atomic.AddInt32(&secondCalls, 1)
			return nil
		},
	}))

	outcome, err := sched.Run(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFinished, outcome)
	assert.Equal(t, int32(0), atomic.LoadInt32(&firstCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalls))
}

// Scenario 2: max running enforced across a pre-seeded ledger count.
func TestScenario_MaxRunningEnforced(t *testing.T) {
	s := store.NewMemoryStore()
	l := ledger.NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.AddSchedule(ctx, "sched-1", "main"))
	require.NoError(t, l.AddSchedule(ctx, "sched-2", "main"))
	require.NoError(t, l.IncrementExecution(ctx, "sched-2", "j"))

	exec := executor.New(s, l, eventbus.NoopPublisher{}, "sched-1", zap.NewNop())
	sched := New("sched-1", s, l, exec, zap.NewNop())

	var running, calls int32
	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name: "j", IntervalRaw: "one minute", Concurrency: 5, MaxRunning: 2, Immediate: true,
		Handler: func(context.Context, model.Job) error {
			atomic.AddInt32(&calls, 1)
			atomic.AddInt32(&running, 1)
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		},
	}))

	// Save keeps the stored Running count of an existing job, so the
	// pre-seeded running invocation is recorded through the counter.
	_, err := s.IncrementRunning(ctx, "j")
	require.NoError(t, err)
	desc, err := sched.Get(ctx, "j")
	require.NoError(t, err)
	require.Equal(t, 1, desc.Job.Running)

	require.NoError(t, sched.Start(ctx, "j"))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, sched.Stop("j"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&running), int32(0))
}

func TestRemoveJob_StopsAndDeletesDefinition(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name: "j", IntervalRaw: "one minute", Concurrency: 1,
		Handler: func(context.Context, model.Job) error { return nil },
	}))
	require.NoError(t, sched.Start(ctx, "j"))
	require.NoError(t, sched.RemoveJob(ctx, "j"))

	_, err := sched.Get(ctx, "j")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
	assert.Equal(t, 0, sched.Count(false))
}

func TestCancel_RemovesLocallyWithoutDeletingDefinition(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	require.NoError(t, sched.DefineJob(ctx, Definition{
		Name: "j", IntervalRaw: "one minute", Concurrency: 1,
		Handler: func(context.Context, model.Job) error { return nil },
	}))
	require.NoError(t, sched.Cancel("j"))

	assert.Equal(t, 0, sched.Count(false))

	desc, err := sched.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, "j", desc.Job.Name)
}

func TestCount_FiltersToStartedJobs(t *testing.T) {
	sched := newTestSchedule(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		require.NoError(t, sched.DefineJob(ctx, Definition{
			Name: name, IntervalRaw: "one minute", Concurrency: 1,
			Handler: func(context.Context, model.Job) error { return nil },
		}))
	}
	require.NoError(t, sched.Start(ctx, "a"))

	assert.Equal(t, 2, sched.Count(false))
	assert.Equal(t, 1, sched.Count(true))
}
