package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is owned by the surrounding application. The engine reads its
// capacity and mode and moves Status through upcoming, ongoing and completed.
type Tournament struct {
	ID                   uuid.UUID        `json:"id"`
	OrganizerID          string           `json:"organizer_id"`
	Name                 string           `json:"name"`
	Game                 string           `json:"game,omitempty"`
	MaxTeams             int              `json:"max_teams"`
	MaxPlayers           int              `json:"max_players"`
	Status               TournamentStatus `json:"status"`
	StartDate            *time.Time       `json:"start_date,omitempty"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty"`
	WinnerID             string           `json:"winner_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// Kind derives the participant kind from the roster size.
func (t *Tournament) Kind() ParticipantKind {
	if t.MaxPlayers > 1 {
		return KindTeam
	}
	return KindSolo
}

func (t *Tournament) RegistrationOpen(now time.Time) bool {
	if t.Status != TournamentUpcoming {
		return false
	}
	return t.RegistrationDeadline == nil || now.Before(*t.RegistrationDeadline)
}
