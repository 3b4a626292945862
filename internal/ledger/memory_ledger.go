package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"momo/internal/model"
)

// ErrScheduleNotRegistered is returned by Ping, IncrementExecution and
// DecrementExecution when the caller never registered via AddSchedule
// (or was already cleaned up by a peer as dead). DeleteOne does not
// return it for an unknown scheduleID.
var ErrScheduleNotRegistered = errors.New("schedule not registered in executions ledger")

// MemoryLedger is an in-process ExecutionsLedger, grounded in the same
// mutex-guarded-map pattern as store.MemoryStore. It implements the
// active-schedule election as read-then-write, not an atomic claim:
// per the design's resolved Open Question, a race can make two peers
// both observe themselves as active during a single transition, and
// that is tolerated because Start is idempotent.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]model.ScheduleEntry // keyed by scheduleID
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]model.ScheduleEntry)}
}

func (l *MemoryLedger) AddSchedule(_ context.Context, scheduleID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[scheduleID] = model.ScheduleEntry{
		ScheduleID: scheduleID,
		Name:       name,
		LastAlive:  time.Now(),
		Executions: make(map[string]int),
	}
	return nil
}

func (l *MemoryLedger) IsActiveSchedule(_ context.Context, scheduleID, name string, pingIntervalMS int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	pingInterval := time.Duration(pingIntervalMS) * time.Millisecond

	live := make([]model.ScheduleEntry, 0)
	for _, e := range l.entries {
		if e.Name == name && !e.IsDeadAt(now, pingInterval) {
			live = append(live, e)
		}
	}

	if len(live) == 0 {
		e, ok := l.entries[scheduleID]
		if !ok {
			e = model.ScheduleEntry{ScheduleID: scheduleID, Name: name, Executions: make(map[string]int)}
		}
		e.LastAlive = now
		l.entries[scheduleID] = e
		return true, nil
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].LastAlive.Equal(live[j].LastAlive) {
			return live[i].LastAlive.Before(live[j].LastAlive)
		}
		return live[i].ScheduleID < live[j].ScheduleID
	})

	return live[0].ScheduleID == scheduleID, nil
}

func (l *MemoryLedger) Ping(_ context.Context, scheduleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[scheduleID]
	if !ok {
		return ErrScheduleNotRegistered
	}
	e.LastAlive = time.Now()
	l.entries[scheduleID] = e
	return nil
}

func (l *MemoryLedger) DeleteOne(_ context.Context, scheduleID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, scheduleID)
	return nil
}

func (l *MemoryLedger) DeleteDead(_ context.Context, name string, olderThanMS int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Duration(olderThanMS) * time.Millisecond
	now := time.Now()
	deleted := 0
	for id, e := range l.entries {
		if e.Name == name && now.Sub(e.LastAlive) > threshold {
			delete(l.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (l *MemoryLedger) CountRunning(_ context.Context, jobName string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, e := range l.entries {
		total += e.Executions[jobName]
	}
	return total, nil
}

func (l *MemoryLedger) IncrementExecution(_ context.Context, scheduleID, jobName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[scheduleID]
	if !ok {
		return ErrScheduleNotRegistered
	}
	if e.Executions == nil {
		e.Executions = make(map[string]int)
	}
	e.Executions[jobName]++
	l.entries[scheduleID] = e
	return nil
}

func (l *MemoryLedger) DecrementExecution(_ context.Context, scheduleID, jobName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[scheduleID]
	if !ok {
		return ErrScheduleNotRegistered
	}
	if e.Executions[jobName] > 0 {
		e.Executions[jobName]--
	}
	l.entries[scheduleID] = e
	return nil
}
