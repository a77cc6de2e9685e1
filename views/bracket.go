package views

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

//go:generate templ generate -f bracket.templ

func roundTitle(number, total int) string {
	switch total - number {
	case 0:
		return "Final"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Round %d", number)
	}
}

func bracketSummary(b *bracket.Bracket) string {
	return fmt.Sprintf("%d participants, bracket of %d", b.ParticipantCount, b.Size)
}

func scoreLine(r *bracket.MatchResult) string {
	return fmt.Sprintf("%d : %d", r.ScoreA, r.ScoreB)
}
