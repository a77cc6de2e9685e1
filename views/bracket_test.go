package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketPage(t *testing.T) {
	tree, err := bracket.Build(uuid.New(), []bracket.Participant{
		{ID: "p1"}, {ID: "p2"}, {ID: "<script>"},
	}, bracket.BuildOptions{})
	require.NoError(t, err)

	b := bracket.Assemble(bracket.InfoFor(uuid.New(), 3, false, testTime), tree.Matches())
	b.Status = bracket.TournamentOngoing

	var sb strings.Builder
	require.NoError(t, BracketPage("Spring Cup", b).Render(context.Background(), &sb))
	html := sb.String()

	assert.Contains(t, html, "<title>Spring Cup</title>")
	assert.Contains(t, html, "Semifinals")
	assert.Contains(t, html, "Final")
	assert.Contains(t, html, `class="slot bye"`)
	assert.Contains(t, html, `class="slot awaiting"`)
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
}

func TestBracketPageHeld(t *testing.T) {
	tree, err := bracket.Build(uuid.New(), []bracket.Participant{
		{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"},
	}, bracket.BuildOptions{})
	require.NoError(t, err)

	info := bracket.InfoFor(uuid.New(), 4, false, testTime)
	b := bracket.Assemble(info, tree.Matches())
	m1, m2, final := b.Rounds[0].Matches[0], b.Rounds[0].Matches[1], b.Rounds[1].Matches[0]

	render := func() string {
		var sb strings.Builder
		page := bracket.Assemble(info, tree.Matches())
		require.NoError(t, BracketPage("Held Cup", page).Render(context.Background(), &sb))
		return sb.String()
	}

	for _, r := range []struct {
		id     uuid.UUID
		winner string
	}{
		{m1.ID, "p1"},
		{m2.ID, "p3"},
		{final.ID, "p1"},
	} {
		_, err := tree.Report(bracket.ReportInput{MatchID: r.id, WinnerID: r.winner, ReporterID: "ref", At: testTime})
		require.NoError(t, err)
	}
	assert.NotContains(t, render(), `class="held"`)

	_, err = tree.Report(bracket.ReportInput{MatchID: m1.ID, WinnerID: "p2", ReporterID: "ref", Authoritative: true, At: testTime})
	require.NoError(t, err)
	assert.Contains(t, render(), `class="held"`)
}

var testTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRoundTitle(t *testing.T) {
	testCases := []struct {
		number, total int
		want          string
	}{
		{4, 4, "Final"},
		{3, 4, "Semifinals"},
		{2, 4, "Quarterfinals"},
		{1, 4, "Round 1"},
		{1, 1, "Final"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, roundTitle(tc.number, tc.total))
	}
}
