package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStart_FiresOnceThenPeriodically(t *testing.T) {
	var fires atomic.Int32
	h := Start(0, 20*time.Millisecond, func() {
		fires.Add(1)
	})
	defer h.Stop()

	time.Sleep(70 * time.Millisecond)
	h.Stop()

	got := fires.Load()
	assert.GreaterOrEqual(t, got, int32(2))
	assert.LessOrEqual(t, got, int32(5))
}

func TestStop_IsIdempotentAndPreventsFutureFires(t *testing.T) {
	var fires atomic.Int32
	h := Start(5*time.Millisecond, 5*time.Millisecond, func() {
		fires.Add(1)
	})
	time.Sleep(10 * time.Millisecond)
	h.Stop()
	h.Stop() // must not panic
	seenAtStop := fires.Load()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seenAtStop, fires.Load())
}

func TestStart_InitialDelayIsRespected(t *testing.T) {
	started := time.Now()
	fired := make(chan time.Time, 1)
	h := Start(40*time.Millisecond, time.Hour, func() {
		fired <- time.Now()
	})
	defer h.Stop()

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(started), 35*time.Millisecond)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer did not fire")
	}
}
