package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/lock"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	engine
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, locks *lock.Manager, opts ...Option) *TournamentService {
	return &TournamentService{engine: newEngine(db, store, locks, opts)}
}

type CreateTournamentRequest struct {
	ActorID              string
	Organizer            bool
	Name                 string
	Game                 string
	MaxTeams             int
	MaxPlayers           int
	StartDate            *time.Time
	RegistrationDeadline *time.Time
}

func (s *TournamentService) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*bracket.Tournament, error) {
	if !req.Organizer {
		return nil, bracket.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", bracket.ErrInvalidInput)
	}
	if req.MaxTeams < 2 {
		return nil, fmt.Errorf("%w: max_teams must be at least 2", bracket.ErrInvalidInput)
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 1
	}
	if req.MaxPlayers < 0 {
		return nil, fmt.Errorf("%w: max_players must be positive", bracket.ErrInvalidInput)
	}

	tournament := &bracket.Tournament{
		ID:                   uuid.New(),
		OrganizerID:          req.ActorID,
		Name:                 name,
		Game:                 strings.TrimSpace(req.Game),
		MaxTeams:             req.MaxTeams,
		MaxPlayers:           req.MaxPlayers,
		Status:               bracket.TournamentUpcoming,
		StartDate:            req.StartDate,
		RegistrationDeadline: req.RegistrationDeadline,
		CreatedAt:            s.now(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("Tournament created", "tournament_id", tournament.ID, "organizer", req.ActorID, "kind", tournament.Kind())
	return tournament, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return s.store.GetTournament(ctx, id)
}

type RegisterRequest struct {
	PlayerID string
	TeamID   string
}

// Register adds a pending registration. Solo tournaments take a player id,
// team tournaments a team id.
func (s *TournamentService) Register(ctx context.Context, tournamentID uuid.UUID, req RegisterRequest) (*bracket.Registration, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !tournament.RegistrationOpen(now) {
		return nil, fmt.Errorf("tournament %s: %w", tournamentID, bracket.ErrRegistrationClosed)
	}

	if err := s.checkCapacity(ctx, tx, tournament); err != nil {
		return nil, err
	}

	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.TeamID = strings.TrimSpace(req.TeamID)

	reg := &bracket.Registration{
		TournamentID: tournamentID,
		Status:       bracket.RegistrationPending,
		RegisteredAt: now,
	}
	switch tournament.Kind() {
	case bracket.KindTeam:
		if req.TeamID == "" || req.PlayerID != "" {
			return nil, fmt.Errorf("%w: team tournaments take a team id only", bracket.ErrInvalidRegistration)
		}
		reg.TeamID = req.TeamID
	default:
		if req.PlayerID == "" || req.TeamID != "" {
			return nil, fmt.Errorf("%w: solo tournaments take a player id only", bracket.ErrInvalidRegistration)
		}
		reg.PlayerID = req.PlayerID
	}

	if err := s.store.CreateRegistration(ctx, tx, reg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("Registration received", "tournament_id", tournamentID, "registration_id", reg.ID)
	return reg, nil
}

// SetRegistrationStatus approves or rejects a registration. The participant
// list is frozen once the tournament leaves upcoming.
func (s *TournamentService) SetRegistrationStatus(ctx context.Context, registrationID int64, status bracket.RegistrationStatus, organizer bool) (*bracket.Registration, error) {
	if !organizer {
		return nil, bracket.ErrForbidden
	}
	switch status {
	case bracket.RegistrationPending, bracket.RegistrationApproved, bracket.RegistrationRejected:
	default:
		return nil, fmt.Errorf("%w: unknown registration status %q", bracket.ErrInvalidInput, status)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	reg, err := s.store.GetRegistration(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.store.GetTournamentTx(ctx, tx, reg.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != bracket.TournamentUpcoming {
		return nil, fmt.Errorf("tournament %s is %s: %w", tournament.ID, tournament.Status, bracket.ErrRegistrationClosed)
	}
	if status == bracket.RegistrationApproved && reg.Status != bracket.RegistrationApproved {
		if err := s.checkCapacity(ctx, tx, tournament); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateRegistrationStatus(ctx, tx, registrationID, status); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	reg.Status = status
	return reg, nil
}

// checkCapacity fails once the approved registrations fill max_teams.
func (s *TournamentService) checkCapacity(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	approved, err := s.store.CountApprovedRegistrations(ctx, tx, tournament.ID)
	if err != nil {
		return err
	}
	if approved >= tournament.MaxTeams {
		return fmt.Errorf("tournament %s is full: %w: %d approved, capacity %d", tournament.ID, bracket.ErrCapacityExceeded, approved, tournament.MaxTeams)
	}
	return nil
}

type BuildRequest struct {
	Force     bool
	Organizer bool
	ActorID   string
}

// BuildBracket replaces the tournament's bracket with one built from the
// current approved registrations. Everything is validated before the old
// matches are deleted, and the replace happens in a single transaction.
func (s *TournamentService) BuildBracket(ctx context.Context, tournamentID uuid.UUID, req BuildRequest) (*bracket.Bracket, error) {
	if !req.Organizer {
		return nil, bracket.ErrForbidden
	}

	release, err := s.acquire(ctx, "build", lock.Request{Tournament: tournamentID.String(), Exclusive: true})
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.Force {
		if tournament.Status != bracket.TournamentUpcoming {
			return nil, fmt.Errorf("%w: tournament is %s", bracket.ErrRebuildRejected, tournament.Status)
		}
		if tournament.RegistrationDeadline != nil && now.Before(*tournament.RegistrationDeadline) {
			return nil, fmt.Errorf("tournament %s: %w until %s", tournamentID, bracket.ErrRegistrationOpen, tournament.RegistrationDeadline.Format(time.RFC3339))
		}
	}

	reported, err := s.store.CountResults(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	if reported > 0 && !req.Force {
		return nil, fmt.Errorf("%w: %d matches already have results", bracket.ErrRebuildRejected, reported)
	}

	regs, err := s.store.GetRegistrations(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}

	participants, err := bracket.ResolveParticipants(regs, tournament.MaxPlayers)
	if err != nil {
		return nil, err
	}
	if len(participants) > tournament.MaxTeams {
		return nil, fmt.Errorf("%w: %d approved, capacity %d", bracket.ErrCapacityExceeded, len(participants), tournament.MaxTeams)
	}

	opts := bracket.BuildOptions{Interval: s.matchInterval}
	if tournament.StartDate != nil {
		opts.StartAt = *tournament.StartDate
	}
	tree, err := bracket.Build(tournamentID, participants, opts)
	if err != nil {
		return nil, err
	}

	matches := tree.Matches()
	info := bracket.InfoFor(tournamentID, len(participants), req.Force, now)

	if err := s.store.DeleteMatches(ctx, tx, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to delete previous bracket: %w", err)
	}
	if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if err := s.store.SaveBracketInfo(ctx, tx, info); err != nil {
		return nil, fmt.Errorf("failed to save bracket: %w", err)
	}
	if err := s.store.UpdateTournamentOutcome(ctx, tx, tournamentID, bracket.TournamentOngoing, ""); err != nil {
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if req.Force {
		slog.Warn("Bracket force rebuilt", "tournament_id", tournamentID, "actor", req.ActorID,
			"previous_status", tournament.Status, "discarded_results", reported)
	}
	slog.Info("Bracket built", "tournament_id", tournamentID, "participants", len(participants), "size", info.Size, "rounds", info.RoundCount)
	s.metrics.Build(req.Force)

	b := bracket.Assemble(info, matches)
	b.Status = bracket.TournamentOngoing

	s.publish(tournamentID, Event{Type: EventBracketBuilt, TournamentID: tournamentID, Status: b.Status, Matches: matches})
	return b, nil
}

// GetBracket returns the current bracket with rounds and matches in order.
func (s *TournamentService) GetBracket(ctx context.Context, tournamentID uuid.UUID) (*bracket.Bracket, error) {
	var (
		tournament *bracket.Tournament
		info       *bracket.Info
		matches    []bracket.Match
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := s.store.GetTournament(gCtx, tournamentID)
		if err != nil {
			return err
		}
		tournament = t
		return nil
	})

	g.Go(func() error {
		i, err := s.store.GetBracketInfo(gCtx, s.db, tournamentID)
		if err != nil {
			return err
		}
		info = i
		return nil
	})

	// matches and results must come from the same snapshot
	g.Go(func() error {
		tx, err := s.db.BeginTxx(gCtx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		ms, err := s.store.GetMatches(gCtx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get matches: %w", err)
		}
		results, err := s.store.GetResults(gCtx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get results: %w", err)
		}
		bracket.AttachResults(ms, results)
		matches = ms
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := bracket.Assemble(*info, matches)
	b.Status = tournament.Status
	b.WinnerID = tournament.WinnerID
	return b, nil
}

// IsComplete reports whether the tournament has a champion, and who it is.
func (s *TournamentService) IsComplete(ctx context.Context, tournamentID uuid.UUID) (bool, string, error) {
	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return false, "", err
	}
	if tournament.Status != bracket.TournamentCompleted {
		return false, "", nil
	}
	return true, tournament.WinnerID, nil
}
