package model

import "time"

// ScheduleEntry is a schedule instance's row in the Executions Ledger:
// its liveness heartbeat plus the running counts it is contributing
// per job name.
type ScheduleEntry struct {
	ScheduleID string
	Name       string
	LastAlive  time.Time
	Executions map[string]int
}

// IsDeadAt reports whether the entry's heartbeat has aged past the
// liveness window as of now.
func (e ScheduleEntry) IsDeadAt(now time.Time, pingInterval time.Duration) bool {
	return now.Sub(e.LastAlive) > 2*pingInterval
}
