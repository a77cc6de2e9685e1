package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/lock"
	"github.com/AdamBeresnev/bracket-engine/internal/metrics"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Notifier receives bracket changes after they are committed.
type Notifier interface {
	Publish(tournamentID string, event any)
}

const (
	EventBracketBuilt   = "bracket_built"
	EventResultReported = "result_reported"
)

// Event is what subscribers of a tournament see after a build or a report.
type Event struct {
	Type         string                   `json:"type"`
	TournamentID uuid.UUID                `json:"tournament_id"`
	Status       bracket.TournamentStatus `json:"status"`
	WinnerID     string                   `json:"winner_id,omitempty"`
	Held         bool                     `json:"held,omitempty"`
	Matches      []bracket.Match          `json:"matches"`
}

type engine struct {
	db            *sqlx.DB
	store         *store.TournamentStore
	locks         *lock.Manager
	notifier      Notifier
	metrics       *metrics.Metrics
	lockWait      time.Duration
	matchInterval time.Duration
	now           func() time.Time
}

type Option func(*engine)

func WithNotifier(n Notifier) Option {
	return func(e *engine) { e.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *engine) { e.metrics = m }
}

// WithLockWait bounds lock acquisition when the caller's context has no deadline.
func WithLockWait(d time.Duration) Option {
	return func(e *engine) { e.lockWait = d }
}

func WithMatchInterval(d time.Duration) Option {
	return func(e *engine) { e.matchInterval = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

func newEngine(db *sqlx.DB, store *store.TournamentStore, locks *lock.Manager, opts []Option) engine {
	e := engine{
		db:            db,
		store:         store,
		locks:         locks,
		lockWait:      5 * time.Second,
		matchInterval: 30 * time.Minute,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e *engine) acquire(ctx context.Context, op string, req lock.Request) (func(), error) {
	if _, ok := ctx.Deadline(); !ok && e.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lockWait)
		defer cancel()
	}

	start := time.Now()
	release, err := e.locks.Acquire(ctx, req)
	e.metrics.LockWait(op, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bracket.ErrLockTimeout, err)
	}
	return release, nil
}

func (e *engine) publish(tournamentID uuid.UUID, event Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Publish(tournamentID.String(), event)
}
