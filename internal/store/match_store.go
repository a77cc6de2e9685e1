package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type matchRow struct {
	ID           uuid.UUID `db:"id"`
	TournamentID uuid.UUID `db:"tournament_id"`
	RoundNumber  int       `db:"round_number"`
	MatchOrder   int       `db:"match_order"`

	SlotAState         string     `db:"slot_a_state"`
	SlotAParticipantID *string    `db:"slot_a_participant_id"`
	SlotASourceMatchID *uuid.UUID `db:"slot_a_source_match_id"`
	SlotBState         string     `db:"slot_b_state"`
	SlotBParticipantID *string    `db:"slot_b_participant_id"`
	SlotBSourceMatchID *uuid.UUID `db:"slot_b_source_match_id"`

	Status   string  `db:"status"`
	WinnerID *string `db:"winner_id"`

	WinnerNextMatchID *uuid.UUID `db:"winner_next_match_id"`
	WinnerNextSlot    *int       `db:"winner_next_slot"`

	ScheduledAt *time.Time `db:"scheduled_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

func toMatchRow(m bracket.Match, createdAt time.Time) matchRow {
	return matchRow{
		ID:                 m.ID,
		TournamentID:       m.TournamentID,
		RoundNumber:        m.RoundNumber,
		MatchOrder:         m.MatchOrder,
		SlotAState:         string(m.SlotA.State),
		SlotAParticipantID: utils.StringOrNil(m.SlotA.ParticipantID),
		SlotASourceMatchID: m.SlotA.SourceMatchID,
		SlotBState:         string(m.SlotB.State),
		SlotBParticipantID: utils.StringOrNil(m.SlotB.ParticipantID),
		SlotBSourceMatchID: m.SlotB.SourceMatchID,
		Status:             string(m.Status),
		WinnerID:           utils.StringOrNil(m.WinnerID),
		WinnerNextMatchID:  m.WinnerNextMatchID,
		WinnerNextSlot:     utils.PtrOrNil(m.WinnerNextSlot),
		ScheduledAt:        utils.UTC(m.ScheduledAt),
		CreatedAt:          createdAt,
	}
}

func (r matchRow) toMatch() bracket.Match {
	return bracket.Match{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		RoundNumber:  r.RoundNumber,
		MatchOrder:   r.MatchOrder,
		SlotA: bracket.Slot{
			State:         bracket.SlotState(r.SlotAState),
			ParticipantID: utils.OrZero(r.SlotAParticipantID),
			SourceMatchID: r.SlotASourceMatchID,
		},
		SlotB: bracket.Slot{
			State:         bracket.SlotState(r.SlotBState),
			ParticipantID: utils.OrZero(r.SlotBParticipantID),
			SourceMatchID: r.SlotBSourceMatchID,
		},
		Status:            bracket.MatchStatus(r.Status),
		WinnerID:          utils.OrZero(r.WinnerID),
		WinnerNextMatchID: r.WinnerNextMatchID,
		WinnerNextSlot:    utils.OrZero(r.WinnerNextSlot),
		ScheduledAt:       utils.UTC(r.ScheduledAt),
	}
}

type resultRow struct {
	MatchID    uuid.UUID `db:"match_id"`
	WinnerID   string    `db:"winner_id"`
	ScoreA     int       `db:"score_a"`
	ScoreB     int       `db:"score_b"`
	Details    string    `db:"details"`
	ReportedBy string    `db:"reported_by"`
	VerifiedBy *string   `db:"verified_by"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func toResultRow(r bracket.MatchResult) resultRow {
	return resultRow{
		MatchID:    r.MatchID,
		WinnerID:   r.WinnerID,
		ScoreA:     r.ScoreA,
		ScoreB:     r.ScoreB,
		Details:    r.Details,
		ReportedBy: r.ReportedBy,
		VerifiedBy: utils.StringOrNil(r.VerifiedBy),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r resultRow) toResult() bracket.MatchResult {
	return bracket.MatchResult{
		MatchID:    r.MatchID,
		WinnerID:   r.WinnerID,
		ScoreA:     r.ScoreA,
		ScoreB:     r.ScoreB,
		Details:    r.Details,
		ReportedBy: r.ReportedBy,
		VerifiedBy: utils.OrZero(r.VerifiedBy),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]matchRow, len(matches))
	for i, m := range matches {
		rows[i] = toMatchRow(m, now)
	}

	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, round_number, match_order,
            slot_a_state, slot_a_participant_id, slot_a_source_match_id,
            slot_b_state, slot_b_participant_id, slot_b_source_match_id,
            status, winner_id, winner_next_match_id, winner_next_slot, scheduled_at, created_at)
        VALUES (:id, :tournament_id, :round_number, :match_order,
            :slot_a_state, :slot_a_participant_id, :slot_a_source_match_id,
            :slot_b_state, :slot_b_participant_id, :slot_b_source_match_id,
            :status, :winner_id, :winner_next_match_id, :winner_next_slot, :scheduled_at, :created_at)`, rows)
	return err
}

// UpdateMatches writes the mutable columns of each match. Structure columns
// (round, order, successor edge) never change after a build.
func (s *TournamentStore) UpdateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	for _, m := range matches {
		_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
                slot_a_state = :slot_a_state, slot_a_participant_id = :slot_a_participant_id,
                slot_b_state = :slot_b_state, slot_b_participant_id = :slot_b_participant_id,
                status = :status, winner_id = :winner_id
            WHERE id = :id`, toMatchRow(m, time.Time{}))
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteMatches drops every match of a tournament. Results go with them.
func (s *TournamentStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Match, error) {
	var row matchRow
	if err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, notFound(err, "match", id)
	}
	m := row.toMatch()
	return &m, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var rows []matchRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number ASC, match_order ASC", tournamentID)
	if err != nil {
		return nil, err
	}

	matches := make([]bracket.Match, len(rows))
	for i, r := range rows {
		matches[i] = r.toMatch()
	}
	return matches, nil
}

func (s *TournamentStore) CountResults(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM match_results r
        JOIN matches m ON m.id = r.match_id
        WHERE m.tournament_id = ?`, tournamentID)
	return n, err
}

func (s *TournamentStore) GetResults(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.MatchResult, error) {
	var rows []resultRow
	err := sqlx.SelectContext(ctx, q, &rows, `SELECT r.* FROM match_results r
        JOIN matches m ON m.id = r.match_id
        WHERE m.tournament_id = ?
        ORDER BY m.round_number ASC, m.match_order ASC`, tournamentID)
	if err != nil {
		return nil, err
	}

	results := make([]bracket.MatchResult, len(rows))
	for i, r := range rows {
		results[i] = r.toResult()
	}
	return results, nil
}

// UpsertResult keeps a single result per match, created_at survives updates.
func (s *TournamentStore) UpsertResult(ctx context.Context, tx *sqlx.Tx, result bracket.MatchResult) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO match_results (match_id, winner_id, score_a, score_b, details, reported_by, verified_by, created_at, updated_at)
        VALUES (:match_id, :winner_id, :score_a, :score_b, :details, :reported_by, :verified_by, :created_at, :updated_at)
        ON CONFLICT(match_id) DO UPDATE SET
            winner_id = excluded.winner_id,
            score_a = excluded.score_a,
            score_b = excluded.score_b,
            details = excluded.details,
            reported_by = excluded.reported_by,
            verified_by = excluded.verified_by,
            updated_at = excluded.updated_at`, toResultRow(result))
	return err
}

func (s *TournamentStore) DeleteResults(ctx context.Context, tx *sqlx.Tx, matchIDs []uuid.UUID) error {
	if len(matchIDs) == 0 {
		return nil
	}

	ids := make([]string, len(matchIDs))
	for i, id := range matchIDs {
		ids[i] = id.String()
	}

	query, args, err := sqlx.In("DELETE FROM match_results WHERE match_id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}
