package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchBye       MatchStatus = "bye"
	MatchReady     MatchStatus = "ready"
	MatchCompleted MatchStatus = "completed"
)

type SlotState string

const (
	SlotParticipant SlotState = "participant"
	SlotAwaiting    SlotState = "awaiting"
	SlotBye         SlotState = "bye"
)

// Side numbers a match slot in the successor links, 1 for slot A and 2 for slot B.
const (
	SideA = 1
	SideB = 2
)

// Slot is one input position of a match. SourceMatchID is the structural link to
// the previous-round match feeding it and stays set after the slot resolves.
type Slot struct {
	State         SlotState  `json:"state"`
	ParticipantID string     `json:"participant_id,omitempty"`
	SourceMatchID *uuid.UUID `json:"source_match_id,omitempty"`
}

func (s Slot) Resolved() bool {
	return s.State == SlotParticipant
}

func participantSlot(id string) Slot {
	return Slot{State: SlotParticipant, ParticipantID: id}
}

func awaitingSlot(source uuid.UUID) Slot {
	return Slot{State: SlotAwaiting, SourceMatchID: &source}
}

type Match struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`

	// Position in the bracket
	RoundNumber int `json:"round"`
	MatchOrder  int `json:"match_number"`

	SlotA Slot `json:"slot_a"`
	SlotB Slot `json:"slot_b"`

	Status   MatchStatus `json:"status"`
	WinnerID string      `json:"winner_id,omitempty"`

	// Successor edge, nil for the final
	WinnerNextMatchID *uuid.UUID `json:"next_match_id,omitempty"`
	WinnerNextSlot    int        `json:"next_slot,omitempty"`

	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
	Result      *MatchResult `json:"result,omitempty"`

	// Held marks a completed match whose winner is not in the successor yet.
	// It is derived from the successor's slot and never stored; reporting the
	// same winner again releases it.
	Held bool `json:"held,omitempty"`
}

// Slot returns a pointer to slot A for SideA and slot B otherwise.
func (m *Match) Slot(side int) *Slot {
	if side == SideA {
		return &m.SlotA
	}
	return &m.SlotB
}

func (m *Match) HasParticipant(id string) bool {
	if id == "" {
		return false
	}
	return (m.SlotA.Resolved() && m.SlotA.ParticipantID == id) ||
		(m.SlotB.Resolved() && m.SlotB.ParticipantID == id)
}

// Decided reports whether the match has a final outcome, reported or by bye.
func (m *Match) Decided() bool {
	return m.Status == MatchCompleted || m.Status == MatchBye
}

func (m *Match) IsFinal() bool {
	return m.WinnerNextMatchID == nil
}

// Scores is the payload attached to a reported result.
type Scores struct {
	A       int    `json:"a"`
	B       int    `json:"b"`
	Details string `json:"details,omitempty"`
}

type MatchResult struct {
	MatchID    uuid.UUID `json:"match_id"`
	WinnerID   string    `json:"winner_id"`
	ScoreA     int       `json:"score_a"`
	ScoreB     int       `json:"score_b"`
	Details    string    `json:"details,omitempty"`
	ReportedBy string    `json:"reported_by"`
	VerifiedBy string    `json:"verified_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *MatchResult) sameAs(winnerID string, scores Scores) bool {
	return r.WinnerID == winnerID && r.ScoreA == scores.A && r.ScoreB == scores.B && r.Details == scores.Details
}
