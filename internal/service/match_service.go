package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/lock"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	engine
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, locks *lock.Manager, opts ...Option) *MatchService {
	return &MatchService{engine: newEngine(db, store, locks, opts)}
}

type ReportRequest struct {
	MatchID       uuid.UUID
	WinnerID      string
	Scores        bracket.Scores
	ReporterID    string
	Authoritative bool
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*bracket.Match, error) {
	return s.store.GetMatch(ctx, s.db, matchID)
}

// ReportResult records a finalized result and moves the winner forward.
// Corrections of a different winner need Authoritative and take the whole
// tournament exclusively; plain reports only lock the match and the matches
// its winner can reach.
func (s *MatchService) ReportResult(ctx context.Context, req ReportRequest) (*bracket.Match, error) {
	if req.ReporterID == "" {
		return nil, fmt.Errorf("%w: reporter is required", bracket.ErrInvalidInput)
	}

	match, err := s.store.GetMatch(ctx, s.db, req.MatchID)
	if err != nil {
		return nil, err
	}
	tournamentID := match.TournamentID

	lockReq := lock.Request{Tournament: tournamentID.String(), Exclusive: req.Authoritative}
	if !req.Authoritative {
		matches, err := s.store.GetMatches(ctx, s.db, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get matches: %w", err)
		}
		lockReq.Matches = reach(matches, req.MatchID)
	}

	release, err := s.acquire(ctx, "report", lockReq)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	matches, err := s.store.GetMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	results, err := s.store.GetResults(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	tree := bracket.NewTree(matches, results)
	out, err := tree.Report(bracket.ReportInput{
		MatchID:       req.MatchID,
		WinnerID:      req.WinnerID,
		Scores:        req.Scores,
		ReporterID:    req.ReporterID,
		Authoritative: req.Authoritative,
		At:            s.now(),
	})
	if err != nil {
		s.metrics.Report("rejected")
		return nil, err
	}
	if out.Unchanged {
		s.metrics.Report("unchanged")
		return &out.Match, nil
	}

	if err := s.store.UpdateMatches(ctx, tx, tree.Changed()); err != nil {
		return nil, fmt.Errorf("failed to update matches: %w", err)
	}
	if err := s.store.DeleteResults(ctx, tx, tree.DeletedResults()); err != nil {
		return nil, fmt.Errorf("failed to delete invalidated results: %w", err)
	}
	if err := s.store.UpsertResult(ctx, tx, out.Result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	tournament, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	status, winnerID := tournament.Status, tournament.WinnerID
	champion, done := tree.Champion()
	switch {
	case done && (status != bracket.TournamentCompleted || winnerID != champion):
		status, winnerID = bracket.TournamentCompleted, champion
	case !done && status == bracket.TournamentCompleted:
		status, winnerID = bracket.TournamentOngoing, ""
	}
	statusChanged := status != tournament.Status || winnerID != tournament.WinnerID
	if statusChanged {
		if err := s.store.UpdateTournamentOutcome(ctx, tx, tournamentID, status, winnerID); err != nil {
			return nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("Result reported", "tournament_id", tournamentID, "match_id", req.MatchID,
		"winner", req.WinnerID, "reporter", req.ReporterID, "authoritative", req.Authoritative)

	switch {
	case out.Corrected:
		s.metrics.Report("corrected")
	default:
		s.metrics.Report("applied")
	}
	if len(out.Invalidated) > 0 {
		slog.Warn("Correction invalidated downstream results", "tournament_id", tournamentID,
			"match_id", req.MatchID, "invalidated", len(out.Invalidated), "held", out.Held)
		s.metrics.Invalidated(len(out.Invalidated))
	}
	if statusChanged {
		if status == bracket.TournamentCompleted {
			slog.Info("Tournament completed", "tournament_id", tournamentID, "winner", winnerID)
			s.metrics.Completed()
		} else {
			slog.Warn("Tournament reopened after correction", "tournament_id", tournamentID)
		}
	}

	s.publish(tournamentID, Event{
		Type:         EventResultReported,
		TournamentID: tournamentID,
		Status:       status,
		WinnerID:     winnerID,
		Held:         out.Held,
		Matches:      touched(tree, req.MatchID),
	})

	return &out.Match, nil
}

// reach lists the match and every match its outcome can be written into: the
// successor, and further successors while byes carry the winner through.
func reach(matches []bracket.Match, matchID uuid.UUID) []string {
	byID := make(map[uuid.UUID]*bracket.Match, len(matches))
	for i := range matches {
		byID[matches[i].ID] = &matches[i]
	}

	ids := []string{matchID.String()}
	cur, ok := byID[matchID]
	for ok && cur.WinnerNextMatchID != nil {
		next, found := byID[*cur.WinnerNextMatchID]
		if !found {
			break
		}
		ids = append(ids, next.ID.String())

		other := bracket.SideA
		if cur.WinnerNextSlot == bracket.SideA {
			other = bracket.SideB
		}
		if next.Slot(other).State != bracket.SlotBye {
			break
		}
		cur = next
	}
	return ids
}

// touched returns the reported match and every match the report changed, with
// results attached.
func touched(tree *bracket.Tree, reported uuid.UUID) []bracket.Match {
	changed := tree.Changed()
	out := make([]bracket.Match, 0, len(changed)+1)
	seen := false
	for _, m := range changed {
		seen = seen || m.ID == reported
		if snap, ok := tree.Match(m.ID); ok {
			out = append(out, snap)
		}
	}
	if !seen {
		if snap, ok := tree.Match(reported); ok {
			out = append(out, snap)
		}
	}
	return out
}
