package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

type tournamentRow struct {
	ID                   uuid.UUID  `db:"id"`
	OrganizerID          string     `db:"organizer_id"`
	Name                 string     `db:"name"`
	Game                 string     `db:"game"`
	MaxTeams             int        `db:"max_teams"`
	MaxPlayers           int        `db:"max_players"`
	Status               string     `db:"status"`
	StartDate            *time.Time `db:"start_date"`
	RegistrationDeadline *time.Time `db:"registration_deadline"`
	WinnerID             *string    `db:"winner_id"`
	CreatedAt            time.Time  `db:"created_at"`
}

func toTournamentRow(t *bracket.Tournament) tournamentRow {
	return tournamentRow{
		ID:                   t.ID,
		OrganizerID:          t.OrganizerID,
		Name:                 t.Name,
		Game:                 t.Game,
		MaxTeams:             t.MaxTeams,
		MaxPlayers:           t.MaxPlayers,
		Status:               string(t.Status),
		StartDate:            t.StartDate,
		RegistrationDeadline: t.RegistrationDeadline,
		WinnerID:             utils.StringOrNil(t.WinnerID),
		CreatedAt:            t.CreatedAt,
	}
}

func (r tournamentRow) toTournament() *bracket.Tournament {
	return &bracket.Tournament{
		ID:                   r.ID,
		OrganizerID:          r.OrganizerID,
		Name:                 r.Name,
		Game:                 r.Game,
		MaxTeams:             r.MaxTeams,
		MaxPlayers:           r.MaxPlayers,
		Status:               bracket.TournamentStatus(r.Status),
		StartDate:            r.StartDate,
		RegistrationDeadline: r.RegistrationDeadline,
		WinnerID:             utils.OrZero(r.WinnerID),
		CreatedAt:            r.CreatedAt,
	}
}

type registrationRow struct {
	ID           int64     `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	PlayerID     *string   `db:"player_id"`
	TeamID       *string   `db:"team_id"`
	Status       string    `db:"status"`
	RegisteredAt time.Time `db:"registered_at"`
}

func (r registrationRow) toRegistration() bracket.Registration {
	return bracket.Registration{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		PlayerID:     utils.OrZero(r.PlayerID),
		TeamID:       utils.OrZero(r.TeamID),
		Status:       bracket.RegistrationStatus(r.Status),
		RegisteredAt: r.RegisteredAt,
	}
}

type bracketRow struct {
	TournamentID     uuid.UUID `db:"tournament_id"`
	Size             int       `db:"size"`
	RoundCount       int       `db:"round_count"`
	ParticipantCount int       `db:"participant_count"`
	Forced           bool      `db:"forced"`
	BuiltAt          time.Time `db:"built_at"`
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, bracket.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, organizer_id, name, game, max_teams, max_players, status, start_date, registration_deadline, winner_id, created_at)
        VALUES (:id, :organizer_id, :name, :game, :max_teams, :max_players, :status, :start_date, :registration_deadline, :winner_id, :created_at)`, toTournamentRow(tournament))
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var row tournamentRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return row.toTournament(), nil
}

// GetTournamentTx reads the tournament inside tx so it sees the tx's own writes.
func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	var row tournamentRow
	if err := tx.GetContext(ctx, &row, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return row.toTournament(), nil
}

// UpdateTournamentOutcome writes the lifecycle status and champion.
func (s *TournamentStore) UpdateTournamentOutcome(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status bracket.TournamentStatus, winnerID string) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ?, winner_id = ? WHERE id = ?", string(status), utils.StringOrNil(winnerID), id)
	return err
}

// CreateRegistration inserts reg and fills in its generated id.
func (s *TournamentStore) CreateRegistration(ctx context.Context, tx *sqlx.Tx, reg *bracket.Registration) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO registrations (tournament_id, player_id, team_id, status, registered_at)
        VALUES (?, ?, ?, ?, ?)`,
		reg.TournamentID, utils.StringOrNil(reg.PlayerID), utils.StringOrNil(reg.TeamID), string(reg.Status), reg.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tournament %s: %w", reg.TournamentID, bracket.ErrAlreadyRegistered)
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = id
	return nil
}

func (s *TournamentStore) GetRegistration(ctx context.Context, tx *sqlx.Tx, id int64) (*bracket.Registration, error) {
	var row registrationRow
	if err := tx.GetContext(ctx, &row, "SELECT * FROM registrations WHERE id = ?", id); err != nil {
		return nil, notFound(err, "registration", id)
	}
	reg := row.toRegistration()
	return &reg, nil
}

func (s *TournamentStore) UpdateRegistrationStatus(ctx context.Context, tx *sqlx.Tx, id int64, status bracket.RegistrationStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE registrations SET status = ? WHERE id = ?", string(status), id)
	return err
}

// GetRegistrations lists every registration of a tournament in registration order.
func (s *TournamentStore) GetRegistrations(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Registration, error) {
	var rows []registrationRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM registrations WHERE tournament_id = ? ORDER BY registered_at ASC, id ASC", tournamentID)
	if err != nil {
		return nil, err
	}

	regs := make([]bracket.Registration, len(rows))
	for i, r := range rows {
		regs[i] = r.toRegistration()
	}
	return regs, nil
}

// CountApprovedRegistrations returns how many registrations hold a seat.
func (s *TournamentStore) CountApprovedRegistrations(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM registrations WHERE tournament_id = ? AND status = ?", tournamentID, bracket.RegistrationApproved)
	return n, err
}

// SaveBracketInfo replaces the bracket header for a tournament.
func (s *TournamentStore) SaveBracketInfo(ctx context.Context, tx *sqlx.Tx, info bracket.Info) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO brackets (tournament_id, size, round_count, participant_count, forced, built_at)
        VALUES (:tournament_id, :size, :round_count, :participant_count, :forced, :built_at)
        ON CONFLICT(tournament_id) DO UPDATE SET
            size = excluded.size,
            round_count = excluded.round_count,
            participant_count = excluded.participant_count,
            forced = excluded.forced,
            built_at = excluded.built_at`, bracketRow(info))
	return err
}

func (s *TournamentStore) GetBracketInfo(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) (*bracket.Info, error) {
	var row bracketRow
	if err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM brackets WHERE tournament_id = ?", tournamentID); err != nil {
		return nil, notFound(err, "bracket for tournament", tournamentID)
	}
	info := bracket.Info(row)
	return &info, nil
}
