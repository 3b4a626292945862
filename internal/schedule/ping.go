package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"momo/internal/ledger"
)

// pingState is the Schedule Ping's state machine, per §4.6.
type pingState int

const (
	pingIdle pingState = iota
	pingActive
	pingDraining
)

// Ping is the liveness beacon: it periodically claims or reaffirms
// activeness in the Executions Ledger and cleans up dead peers,
// triggering job takeover on an idle-to-active transition.
type Ping struct {
	scheduleID   string
	name         string
	pingInterval time.Duration
	ledger       ledger.ExecutionsLedger
	startAllJobs func(ctx context.Context)
	log          *zap.Logger

	mu       sync.Mutex
	state    pingState
	isActive bool
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewPing builds a Ping for scheduleID/name. startAllJobs is invoked,
// exactly once per activation transition, with no back-reference to
// the owning Schedule — per the design's resolution of the
// Schedule/Ping cyclic-reference problem.
func NewPing(scheduleID, name string, pingInterval time.Duration, executionsLedger ledger.ExecutionsLedger, startAllJobs func(ctx context.Context), log *zap.Logger) *Ping {
	return &Ping{
		scheduleID:   scheduleID,
		name:         name,
		pingInterval: pingInterval,
		ledger:       executionsLedger,
		startAllJobs: startAllJobs,
		log:          log,
		state:        pingIdle,
	}
}

// Start registers this schedule in the ledger and arms the ping loop.
// idle -> active.
func (p *Ping) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != pingIdle {
		return nil
	}

	if err := p.ledger.AddSchedule(ctx, p.scheduleID, p.name); err != nil {
		return err
	}

	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	p.state = pingActive

	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop cancels the ping loop, deletes this schedule's own ledger
// entry, and awaits settlement. active -> draining -> idle.
func (p *Ping) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.state != pingActive {
		p.mu.Unlock()
		return
	}
	p.state = pingDraining
	done := p.done
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		close(done)
	})
	p.wg.Wait()

	if err := p.ledger.DeleteOne(ctx, p.scheduleID); err != nil {
		p.log.Warn("failed deleting own ledger entry on stop", zap.String("scheduleId", p.scheduleID), zap.Error(err))
	}

	p.mu.Lock()
	p.state = pingIdle
	p.isActive = false
	p.mu.Unlock()
}

func (p *Ping) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()

	p.tick()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick implements one iteration of §4.6's loop. Every store error is
// caught and logged; the loop never throws.
func (p *Ping) tick() {
	ctx := context.Background()

	active, err := p.ledger.IsActiveSchedule(ctx, p.scheduleID, p.name, p.pingInterval.Milliseconds())
	if err != nil {
		p.log.Error("pinging or cleaning the schedules repository failed", zap.String("scheduleId", p.scheduleID), zap.Error(err))
		return
	}

	p.mu.Lock()
	wasActive := p.isActive
	p.isActive = active
	p.mu.Unlock()

	if active && !wasActive {
		p.startAllJobs(ctx)
	}

	if err := p.ledger.Ping(ctx, p.scheduleID); err != nil {
		p.log.Error("pinging or cleaning the schedules repository failed", zap.String("scheduleId", p.scheduleID), zap.Error(err))
		return
	}

	if _, err := p.ledger.DeleteDead(ctx, p.name, 2*p.pingInterval.Milliseconds()); err != nil {
		p.log.Error("pinging or cleaning the schedules repository failed", zap.String("scheduleId", p.scheduleID), zap.Error(err))
	}
}

// IsActive reports whether the last tick observed this schedule as
// the active holder of its name. Exposed for observability and tests.
func (p *Ping) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isActive
}
