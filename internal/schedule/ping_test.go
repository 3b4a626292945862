package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"momo/internal/ledger"
)

// Scenario 3 variant for Ping: starting claims activeness immediately
// and invokes startAllJobs exactly once.
func TestPing_StartClaimsActivenessAndInvokesStartAllJobsOnce(t *testing.T) {
	l := ledger.NewMemoryLedger()
	var calls int32

	p := NewPing("a", "main", 20*time.Millisecond, l, func(context.Context) {
		atomic.AddInt32(&calls, 1)
	}, zap.NewNop())

	require.NoError(t, p.Start(context.Background()))
	time.Sleep(60 * time.Millisecond)
	p.Stop(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, p.IsActive())
}

// Scenario 6: ping takeover. A goes silent, B observes A as dead and
// becomes active, invoking startAllJobs exactly once for that
// transition.
func TestPing_TakeoverWhenPeerGoesStale(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()

	pingInterval := 15 * time.Millisecond

	var aCalls, bCalls int32
	a := NewPing("a", "main", pingInterval, l, func(context.Context) {
		atomic.AddInt32(&aCalls, 1)
	}, zap.NewNop())
	b := NewPing("b", "main", pingInterval, l, func(context.Context) {
		atomic.AddInt32(&bCalls, 1)
	}, zap.NewNop())

	require.NoError(t, a.Start(ctx))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, b.Start(ctx))

	assert.Equal(t, int32(1), atomic.LoadInt32(&aCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&bCalls))

	// Silence A without going through its own Stop, to simulate a crash
	// rather than a graceful shutdown.
	a.stopOnce.Do(func() { close(a.done) })
	a.wg.Wait()

	time.Sleep(5 * pingInterval)

	assert.Equal(t, int32(1), atomic.LoadInt32(&bCalls))

	b.Stop(ctx)
}

func TestPing_StopIsIdempotentAndRemovesOwnEntry(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()

	p := NewPing("a", "main", 10*time.Millisecond, l, func(context.Context) {}, zap.NewNop())
	require.NoError(t, p.Start(ctx))
	time.Sleep(20 * time.Millisecond)

	p.Stop(ctx)
	p.Stop(ctx) // idempotent

	active, err := l.IsActiveSchedule(ctx, "b", "main", 10)
	require.NoError(t, err)
	assert.True(t, active, "schedule a's entry should have been removed on Stop, leaving b to claim")
}
