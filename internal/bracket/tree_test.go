package bracket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func buildTree(t *testing.T, n int) (*Tree, map[int][]Match) {
	t.Helper()
	tree, err := Build(uuid.New(), makeParticipants(n), BuildOptions{})
	require.NoError(t, err)
	return tree, roundsOf(tree.Matches())
}

func report(t *testing.T, tree *Tree, matchID uuid.UUID, winner string, authoritative bool) *Outcome {
	t.Helper()
	out, err := tree.Report(ReportInput{
		MatchID:       matchID,
		WinnerID:      winner,
		Scores:        Scores{A: 2, B: 1},
		ReporterID:    "ref",
		Authoritative: authoritative,
		At:            reportedAt,
	})
	require.NoError(t, err)
	return out
}

func mustMatch(t *testing.T, tree *Tree, id uuid.UUID) Match {
	t.Helper()
	m, ok := tree.Match(id)
	require.True(t, ok)
	return m
}

func TestReportAdvancesWinner(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	m1, m2, final := rounds[1][0], rounds[1][1], rounds[2][0]

	out := report(t, tree, m1.ID, "p1", false)
	assert.Equal(t, MatchCompleted, out.Match.Status)
	assert.Equal(t, "p1", out.Match.WinnerID)
	assert.Equal(t, "p1", out.Result.WinnerID)
	assert.Equal(t, "ref", out.Result.ReportedBy)
	assert.Empty(t, out.Result.VerifiedBy)

	f := mustMatch(t, tree, final.ID)
	assert.Equal(t, "p1", f.SlotA.ParticipantID)
	assert.Equal(t, SlotAwaiting, f.SlotB.State)
	assert.Equal(t, MatchPending, f.Status)

	report(t, tree, m2.ID, "p4", false)
	f = mustMatch(t, tree, final.ID)
	assert.Equal(t, "p4", f.SlotB.ParticipantID)
	assert.Equal(t, MatchReady, f.Status)

	_, done := tree.Champion()
	assert.False(t, done)

	report(t, tree, final.ID, "p4", false)
	champ, done := tree.Champion()
	assert.True(t, done)
	assert.Equal(t, "p4", champ)

	changedIDs := make(map[uuid.UUID]bool)
	for _, m := range tree.Changed() {
		changedIDs[m.ID] = true
	}
	assert.True(t, changedIDs[m1.ID])
	assert.True(t, changedIDs[m2.ID])
	assert.True(t, changedIDs[final.ID])
}

func TestReportTwoParticipants(t *testing.T) {
	tree, rounds := buildTree(t, 2)
	require.Len(t, rounds, 1)

	final := rounds[1][0]
	assert.Equal(t, MatchReady, final.Status)

	report(t, tree, final.ID, "p2", false)
	champ, done := tree.Champion()
	assert.True(t, done)
	assert.Equal(t, "p2", champ)
}

func TestReportValidation(t *testing.T) {
	tree, rounds := buildTree(t, 3)
	ready, bye, final := rounds[1][0], rounds[1][1], rounds[2][0]

	testCases := []struct {
		name    string
		matchID uuid.UUID
		winner  string
		wantErr error
	}{
		{"unknown match", uuid.New(), "p1", ErrNotFound},
		{"pending match", final.ID, "p3", ErrMatchNotReady},
		{"bye match", bye.ID, "p3", ErrMatchNotReady},
		{"winner not in match", ready.ID, "p3", ErrInvalidWinner},
		{"empty winner", ready.ID, "", ErrInvalidWinner},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tree.Report(ReportInput{MatchID: tc.matchID, WinnerID: tc.winner, At: reportedAt})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Empty(t, tree.Changed())
	assert.False(t, tree.HasResults())
}

func TestReportIdempotent(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	m1 := rounds[1][0]

	report(t, tree, m1.ID, "p2", false)
	before := tree.Matches()

	out := report(t, tree, m1.ID, "p2", false)
	assert.True(t, out.Unchanged)
	assert.Equal(t, before, tree.Matches())
}

func TestReportSameWinnerNewScores(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	m1 := rounds[1][0]

	report(t, tree, m1.ID, "p1", false)
	out, err := tree.Report(ReportInput{MatchID: m1.ID, WinnerID: "p1", Scores: Scores{A: 3, B: 0}, ReporterID: "ref", At: reportedAt})
	require.NoError(t, err)

	assert.False(t, out.Unchanged)
	assert.Equal(t, 3, out.Result.ScoreA)
	assert.Equal(t, 0, out.Result.ScoreB)
}

func TestReportVerification(t *testing.T) {
	tests := []struct {
		name          string
		authoritative bool
		reporter      string
		wantVerified  string
	}{
		{name: "score update keeps verification", reporter: "player", wantVerified: "ref"},
		{name: "authoritative update replaces verifier", authoritative: true, reporter: "admin", wantVerified: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, rounds := buildTree(t, 4)
			m1 := rounds[1][0]

			first := report(t, tree, m1.ID, "p1", true)
			require.Equal(t, "ref", first.Result.VerifiedBy)

			out, err := tree.Report(ReportInput{
				MatchID:       m1.ID,
				WinnerID:      "p1",
				Scores:        Scores{A: 3, B: 1},
				ReporterID:    tt.reporter,
				Authoritative: tt.authoritative,
				At:            reportedAt,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.reporter, out.Result.ReportedBy)
			assert.Equal(t, tt.wantVerified, out.Result.VerifiedBy)

			stored := mustMatch(t, tree, m1.ID).Result
			require.NotNil(t, stored)
			assert.Equal(t, tt.wantVerified, stored.VerifiedBy)
		})
	}
}

func TestReportConflictWithoutAuthority(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	m1, final := rounds[1][0], rounds[2][0]

	report(t, tree, m1.ID, "p1", false)
	before := tree.Matches()

	_, err := tree.Report(ReportInput{MatchID: m1.ID, WinnerID: "p2", ReporterID: "someone", At: reportedAt})
	assert.ErrorIs(t, err, ErrResultConflict)

	assert.Equal(t, before, tree.Matches())
	assert.Equal(t, "p1", mustMatch(t, tree, final.ID).SlotA.ParticipantID)
}

func TestAuthoritativeCorrectionPropagates(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	m1, final := rounds[1][0], rounds[2][0]

	report(t, tree, m1.ID, "p1", false)

	out := report(t, tree, m1.ID, "p2", true)
	assert.True(t, out.Corrected)
	assert.False(t, out.Held)
	assert.Empty(t, out.Invalidated)
	assert.Equal(t, "ref", out.Result.VerifiedBy)

	f := mustMatch(t, tree, final.ID)
	assert.Equal(t, SlotParticipant, f.SlotA.State)
	assert.Equal(t, "p2", f.SlotA.ParticipantID)
	assert.Empty(t, tree.DeletedResults())
}

func TestAuthoritativeCorrectionCascades(t *testing.T) {
	// p1 beats p2, p3 beats p4, p1 wins the final.
	// Then m1 is corrected to p2: the final result must go and the final
	// must wait for m1 again.
	tree, rounds := buildTree(t, 4)
	m1, m2, final := rounds[1][0], rounds[1][1], rounds[2][0]

	report(t, tree, m1.ID, "p1", false)
	report(t, tree, m2.ID, "p3", false)
	report(t, tree, final.ID, "p1", false)

	out := report(t, tree, m1.ID, "p2", true)
	assert.True(t, out.Corrected)
	assert.True(t, out.Held)
	assert.Equal(t, []uuid.UUID{final.ID}, out.Invalidated)
	assert.Equal(t, []uuid.UUID{final.ID}, tree.DeletedResults())

	f := mustMatch(t, tree, final.ID)
	assert.Equal(t, MatchPending, f.Status)
	assert.Empty(t, f.WinnerID)
	assert.Nil(t, f.Result)
	assert.Equal(t, SlotAwaiting, f.SlotA.State)
	assert.Equal(t, "p3", f.SlotB.ParticipantID)

	_, done := tree.Champion()
	assert.False(t, done)

	corrected := mustMatch(t, tree, m1.ID)
	assert.Equal(t, "p2", corrected.WinnerID)
	assert.Equal(t, MatchCompleted, corrected.Status)
	assert.True(t, corrected.Held)

	// Re-reporting the corrected winner releases it into the final
	healed := report(t, tree, m1.ID, "p2", true)
	assert.False(t, healed.Unchanged)
	f = mustMatch(t, tree, final.ID)
	assert.Equal(t, "p2", f.SlotA.ParticipantID)
	assert.Equal(t, MatchReady, f.Status)
	assert.False(t, mustMatch(t, tree, m1.ID).Held)
}

func TestCorrectionThroughByeChain(t *testing.T) {
	// 6 entries: R1 p1-p2, p3-p4, p5-p6, bye-bye
	// R2 m2 = winner(m3) vs bye, decided as soon as m3 is.
	tree, rounds := buildTree(t, 6)
	m3, r2m2, final := rounds[1][2], rounds[2][1], rounds[3][0]

	assert.Equal(t, MatchPending, r2m2.Status)
	assert.Equal(t, SlotBye, r2m2.SlotB.State)

	report(t, tree, m3.ID, "p5", false)
	r2 := mustMatch(t, tree, r2m2.ID)
	assert.Equal(t, MatchBye, r2.Status)
	assert.Equal(t, "p5", r2.WinnerID)
	assert.Equal(t, "p5", mustMatch(t, tree, final.ID).SlotB.ParticipantID)

	// No results downstream, so the correction flows through the bye
	out := report(t, tree, m3.ID, "p6", true)
	assert.False(t, out.Held)
	assert.Empty(t, out.Invalidated)

	r2 = mustMatch(t, tree, r2m2.ID)
	assert.Equal(t, MatchBye, r2.Status)
	assert.Equal(t, "p6", r2.WinnerID)
	assert.Equal(t, "p6", mustMatch(t, tree, final.ID).SlotB.ParticipantID)
}

func TestNewTreeRoundTrip(t *testing.T) {
	tree, rounds := buildTree(t, 4)
	report(t, tree, rounds[1][0].ID, "p1", false)

	reloaded := NewTree(tree.Matches(), tree.Results())
	assert.Equal(t, tree.Matches(), reloaded.Matches())
	assert.Empty(t, reloaded.Changed())

	// reloaded trees keep enforcing conflicts
	_, err := reloaded.Report(ReportInput{MatchID: rounds[1][0].ID, WinnerID: "p2", At: reportedAt})
	assert.ErrorIs(t, err, ErrResultConflict)
}
