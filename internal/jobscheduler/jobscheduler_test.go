package jobscheduler

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

func newTestScheduler(t *testing.T, job model.Job, handler model.Handler) (*JobScheduler, store.JobStore) {
	t.Helper()

	s := store.NewMemoryStore()
	l := ledger.NewMemoryLedger()
	require.NoError(t, l.AddSchedule(context.Background(), "sched-1", "main"))
	require.NoError(t, s.Save(context.Background(), job))

	exec := executor.New(s, l, eventbus.NoopPublisher{}, "sched-1", zap.NewNop())
	hasHandler := handler != nil
	sched := New(job.Name, s, exec, func() (model.Handler, bool) {
		return handler, hasHandler
	}, zap.NewNop())

	return sched, s
}

func TestExecuteOnce_RunsHandlerAndSettlesCounters(t *testing.T) {
	var calls int32
	sched, s := newTestScheduler(t, model.Job{Name: "j", IntervalMS: 60_000, Concurrency: 1}, func(context.Context, model.Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	outcome, err := sched.ExecuteOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFinished, outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	job, err := s.FindOne(context.Background(), "j")
	require.NoError(t, err)
	assert.Equal(t, 0, job.Running)
}

func TestExecuteOnce_MissingJobReturnsNotFound(t *testing.T) {
	sched, st := newTestScheduler(t, model.Job{Name: "j", IntervalMS: 60_000, Concurrency: 1}, func(context.Context, model.Job) error {
		return nil
	})

	ctx := context.Background()
	require.NoError(t, st.Delete(ctx, "j"))

	outcome, err := sched.ExecuteOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotFound, outcome)
}

func TestStart_FiresAccordingToInterval(t *testing.T) {
	var calls int32
	sched, _ := newTestScheduler(t, model.Job{Name: "j", IntervalMS: 20, Concurrency: 1, Immediate: true}, func(context.Context, model.Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, sched.Start(context.Background()))
	time.Sleep(70 * time.Millisecond)
	sched.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestStop_DrainsPendingBeforeReturning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	sched, _ := newTestScheduler(t, model.Job{Name: "j", IntervalMS: 10, Concurrency: 1, Immediate: true}, func(context.Context, model.Job) error {
		close(started)
		<-release
		return nil
	})

	require.NoError(t, sched.Start(context.Background()))
	<-started

	stopped := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight invocation settled")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	<-stopped
}

func TestExecuteConcurrently_ClampsToHeadroomWhenMaxRunningSet(t *testing.T) {
	var running int32
	var maxObserved int32

	block := make(chan struct{})
	sched, _ := newTestScheduler(t, model.Job{Name: "j", IntervalMS: 10, Concurrency: 5, MaxRunning: 2}, func(context.Context, model.Job) error {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxObserved)
			if cur <= old || atomic.CompareAndSwapInt32(&maxObserved, old, cur) {
				break
			}
		}
		<-block
		atomic.AddInt32(&running, -1)
		return nil
	})

	sched.executeConcurrently()
	time.Sleep(20 * time.Millisecond)
	close(block)
	sched.pending.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxObserved), int32(2))
}
