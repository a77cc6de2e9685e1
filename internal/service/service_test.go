package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/lock"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// every new connection would get its own empty in-memory database
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(_ string, event any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event.(Event))
}

func (n *recordingNotifier) last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	locks       *lock.Manager
	notifier    *recordingNotifier
	tournaments *TournamentService
	matches     *MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		store:    store.NewTournamentStore(db),
		locks:    lock.NewManager(),
		notifier: &recordingNotifier{},
	}
	opts := []Option{
		WithNotifier(f.notifier),
		WithClock(func() time.Time { return testNow }),
		WithLockWait(time.Second),
	}
	f.tournaments = NewTournamentService(db, f.store, f.locks, opts...)
	f.matches = NewMatchService(db, f.store, f.locks, opts...)
	return f
}

func (f *fixture) createTournament(t *testing.T, maxTeams, maxPlayers int) *bracket.Tournament {
	t.Helper()

	start := testNow.Add(24 * time.Hour)
	tournament, err := f.tournaments.CreateTournament(context.Background(), CreateTournamentRequest{
		ActorID:    "organizer",
		Organizer:  true,
		Name:       "Test Tournament",
		MaxTeams:   maxTeams,
		MaxPlayers: maxPlayers,
		StartDate:  &start,
	})
	require.NoError(t, err)
	return tournament
}

// approve registers and approves p1..pn.
func (f *fixture) approve(t *testing.T, tournamentID uuid.UUID, n int) {
	t.Helper()

	ctx := context.Background()
	for i := 1; i <= n; i++ {
		reg, err := f.tournaments.Register(ctx, tournamentID, RegisterRequest{PlayerID: fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
		_, err = f.tournaments.SetRegistrationStatus(ctx, reg.ID, bracket.RegistrationApproved, true)
		require.NoError(t, err)
	}
}

// built creates a solo tournament with n approved players and builds its bracket.
func (f *fixture) built(t *testing.T, n int) (*bracket.Tournament, *bracket.Bracket) {
	t.Helper()

	tournament := f.createTournament(t, 64, 1)
	f.approve(t, tournament.ID, n)

	b, err := f.tournaments.BuildBracket(context.Background(), tournament.ID, BuildRequest{Organizer: true, ActorID: "organizer"})
	require.NoError(t, err)
	return tournament, b
}

func (f *fixture) report(t *testing.T, matchID uuid.UUID, winner string, authoritative bool) *bracket.Match {
	t.Helper()

	m, err := f.matches.ReportResult(context.Background(), ReportRequest{
		MatchID:       matchID,
		WinnerID:      winner,
		Scores:        bracket.Scores{A: 2, B: 1},
		ReporterID:    "referee",
		Authoritative: authoritative,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) match(t *testing.T, id uuid.UUID) *bracket.Match {
	t.Helper()

	m, err := f.matches.GetMatch(context.Background(), id)
	require.NoError(t, err)
	return m
}

func lockRequestFor(tournamentID uuid.UUID) lock.Request {
	return lock.Request{Tournament: tournamentID.String(), Exclusive: true}
}
