package bracket

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BuildOptions controls match scheduling. A zero StartAt leaves matches unscheduled.
type BuildOptions struct {
	StartAt  time.Time
	Interval time.Duration
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func Size(count int) int {
	if count <= 2 {
		return 2
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

func RoundCount(size int) int {
	return int(math.Log2(float64(size)))
}

// Build lays out the full single elimination tree for participants in seed
// order. Round 1 pairs positions 2i and 2i+1, with byes filling the tail, and
// every bye is resolved before the tree is returned.
func Build(tournamentID uuid.UUID, participants []Participant, opts BuildOptions) (*Tree, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientParticipants, n)
	}

	size := Size(n)
	totalRounds := RoundCount(size)

	rounds := make([][]*Match, totalRounds+1)
	var all []*Match

	for r := 1; r <= totalRounds; r++ {
		matchesInRound := size >> r
		rounds[r] = make([]*Match, 0, matchesInRound)

		for i := 0; i < matchesInRound; i++ {
			m := &Match{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				RoundNumber:  r,
				MatchOrder:   i + 1,
				Status:       MatchPending,
			}

			if r == 1 {
				m.SlotA = seedSlot(participants, 2*i)
				m.SlotB = seedSlot(participants, 2*i+1)
			} else {
				// Match m of round r takes the winners of matches 2m-1 and 2m
				left, right := rounds[r-1][2*i], rounds[r-1][2*i+1]
				m.SlotA = awaitingSlot(left.ID)
				m.SlotB = awaitingSlot(right.ID)

				left.WinnerNextMatchID = &m.ID
				left.WinnerNextSlot = SideA
				right.WinnerNextMatchID = &m.ID
				right.WinnerNextSlot = SideB
			}

			rounds[r] = append(rounds[r], m)
			all = append(all, m)
		}
	}

	if !opts.StartAt.IsZero() {
		for k, m := range all {
			at := opts.StartAt.Add(time.Duration(k) * opts.Interval)
			m.ScheduledAt = &at
		}
	}

	t := newTree(all, nil)
	for _, m := range rounds[1] {
		t.settle(m)
	}
	// Structure is new, so everything is written regardless of what settled
	t.resetChanges()

	return t, nil
}

func seedSlot(participants []Participant, pos int) Slot {
	if pos < len(participants) {
		return participantSlot(participants[pos].ID)
	}
	return Slot{State: SlotBye}
}
