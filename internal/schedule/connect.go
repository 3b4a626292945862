package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"momo/internal/eventbus"
	"momo/internal/executor"
	"momo/internal/ledger"
	"momo/internal/store"
)

// ConnectOptions configures Connect. It carries no global state: every
// dependency a Schedule needs is constructed here and injected
// explicitly, per the design's resolution of the original's
// process-wide store handles.
type ConnectOptions struct {
	// Name is the schedule name multiple instances may share and
	// compete for liveness under.
	Name string
	// PostgresDSN, if non-empty, backs the Job Store and Executions
	// Ledger with Postgres/JSONB persistence. If empty, in-memory
	// implementations are used instead.
	PostgresDSN string
	// NATSURL, if non-empty, backs the execution event bus with
	// JetStream. If empty, published events are simply discarded.
	NATSURL string
	// PingInterval is the Schedule Ping's heartbeat period. Defaults
	// to 30s if zero.
	PingInterval time.Duration
	Logger       *zap.Logger
}

// Connected bundles a Schedule with the Ping and resources Connect
// opened on its behalf, so Disconnect can release everything.
type Connected struct {
	Schedule *Schedule
	Ping     *Ping

	scheduleID string
	pool       *pgxpool.Pool
	events     eventbus.Publisher
}

// Connect is the convenience constructor analogous to the original's
// MongoSchedule.connect: it wires storage, the ledger, the event bus,
// a Schedule, and its Ping, then starts the Ping. It owns no
// implicit globals — every dependency is either passed in via opts or
// constructed fresh here.
func Connect(ctx context.Context, opts ConnectOptions) (*Connected, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	scheduleID := uuid.NewString()

	var (
		jobStore store.JobStore
		execLdgr ledger.ExecutionsLedger
		pool     *pgxpool.Pool
	)

	if opts.PostgresDSN != "" {
		var err error
		pool, err = pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed connecting to postgres: %w", err)
		}

		pgStore, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed initializing job store: %w", err)
		}
		pgLedger, err := ledger.NewPostgresLedger(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed initializing executions ledger: %w", err)
		}

		jobStore = pgStore
		execLdgr = pgLedger
	} else {
		jobStore = store.NewMemoryStore()
		execLdgr = ledger.NewMemoryLedger()
	}

	var events eventbus.Publisher
	if opts.NATSURL != "" {
		pub, err := eventbus.NewNATSPublisher(ctx, log, opts.NATSURL)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("failed initializing event bus: %w", err)
		}
		events = pub
	} else {
		events = eventbus.NoopPublisher{}
	}

	exec := executor.New(jobStore, execLdgr, events, scheduleID, log)
	sched := New(scheduleID, jobStore, execLdgr, exec, log)

	ping := NewPing(scheduleID, opts.Name, pingInterval, execLdgr, func(ctx context.Context) {
		sched.StartAll(ctx)
	}, log)

	if err := ping.Start(ctx); err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("failed starting schedule ping: %w", err)
	}

	return &Connected{
		Schedule:   sched,
		Ping:       ping,
		scheduleID: scheduleID,
		pool:       pool,
		events:     events,
	}, nil
}

// Disconnect stops the Ping, stops every job, and releases the
// Postgres pool and event bus connection, if any were opened.
func (c *Connected) Disconnect(ctx context.Context) error {
	c.Ping.Stop(ctx)

	err := c.Schedule.Disconnect(ctx)

	if closeErr := c.events.Close(); closeErr != nil {
		err = closeErr
	}
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}
