package bracket

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Info is the persisted bracket header. Size is fixed until the next rebuild.
type Info struct {
	TournamentID     uuid.UUID `json:"tournament_id"`
	Size             int       `json:"size"`
	RoundCount       int       `json:"round_count"`
	ParticipantCount int       `json:"participant_count"`
	Forced           bool      `json:"forced"`
	BuiltAt          time.Time `json:"built_at"`
}

type Round struct {
	Number  int     `json:"number"`
	Matches []Match `json:"matches"`
}

// Bracket is the read view handed to callers, rounds and matches in order.
type Bracket struct {
	Info
	Status   TournamentStatus `json:"status"`
	WinnerID string           `json:"winner_id,omitempty"`
	Rounds   []Round          `json:"rounds"`
}

// Assemble groups matches into ordered rounds and marks held winners.
func Assemble(info Info, matches []Match) *Bracket {
	byID := make(map[uuid.UUID]Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}

	byRound := make(map[int][]Match)
	var roundNums []int

	for _, m := range matches {
		if m.Status == MatchCompleted && m.WinnerNextMatchID != nil {
			next, ok := byID[*m.WinnerNextMatchID]
			m.Held = ok && next.Slot(m.WinnerNextSlot).State == SlotAwaiting
		}
		if _, exists := byRound[m.RoundNumber]; !exists {
			roundNums = append(roundNums, m.RoundNumber)
		}
		byRound[m.RoundNumber] = append(byRound[m.RoundNumber], m)
	}

	sort.Ints(roundNums)

	b := &Bracket{Info: info, Rounds: make([]Round, 0, len(roundNums))}
	for _, r := range roundNums {
		ms := byRound[r]
		sort.Slice(ms, func(i, j int) bool {
			return ms[i].MatchOrder < ms[j].MatchOrder
		})
		b.Rounds = append(b.Rounds, Round{Number: r, Matches: ms})
	}
	return b
}

// AttachResults sets each match's Result from results keyed by match id.
func AttachResults(matches []Match, results []MatchResult) {
	byMatch := make(map[uuid.UUID]MatchResult, len(results))
	for _, r := range results {
		byMatch[r.MatchID] = r
	}
	for i := range matches {
		if r, ok := byMatch[matches[i].ID]; ok {
			rc := r
			matches[i].Result = &rc
		}
	}
}

// InfoFor describes a freshly built tree.
func InfoFor(tournamentID uuid.UUID, participants int, forced bool, builtAt time.Time) Info {
	size := Size(participants)
	return Info{
		TournamentID:     tournamentID,
		Size:             size,
		RoundCount:       RoundCount(size),
		ParticipantCount: participants,
		Forced:           forced,
		BuiltAt:          builtAt,
	}
}
