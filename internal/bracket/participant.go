package bracket

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type ParticipantKind string

const (
	KindSolo ParticipantKind = "solo"
	KindTeam ParticipantKind = "team"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Registration references either a team or a solo player, never both.
type Registration struct {
	ID           int64              `json:"id"`
	TournamentID uuid.UUID          `json:"tournament_id"`
	PlayerID     string             `json:"player_id,omitempty"`
	TeamID       string             `json:"team_id,omitempty"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
}

type Participant struct {
	ID             string          `json:"id"`
	Kind           ParticipantKind `json:"kind"`
	RegistrationID int64           `json:"registration_id"`
}

// ResolveParticipants turns approved registrations into the seed order used by
// Build: registration time ascending, ties broken by registration id.
func ResolveParticipants(regs []Registration, maxPlayers int) ([]Participant, error) {
	approved := make([]Registration, 0, len(regs))
	for _, r := range regs {
		if r.Status == RegistrationApproved {
			approved = append(approved, r)
		}
	}

	sort.SliceStable(approved, func(i, j int) bool {
		if !approved[i].RegisteredAt.Equal(approved[j].RegisteredAt) {
			return approved[i].RegisteredAt.Before(approved[j].RegisteredAt)
		}
		return approved[i].ID < approved[j].ID
	})

	kind := KindSolo
	if maxPlayers > 1 {
		kind = KindTeam
	}

	participants := make([]Participant, 0, len(approved))
	for _, r := range approved {
		id := r.PlayerID
		if kind == KindTeam {
			id = r.TeamID
		}
		if id == "" || (r.PlayerID != "" && r.TeamID != "") {
			return nil, fmt.Errorf("%w: registration %d does not reference a %s participant", ErrInvalidRegistration, r.ID, kind)
		}
		participants = append(participants, Participant{ID: id, Kind: kind, RegistrationID: r.ID})
	}

	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: %d approved", ErrInsufficientParticipants, len(participants))
	}

	return participants, nil
}
