package bracket

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Tree is an in-memory working copy of one tournament's matches. Progression
// mutates the copy and records what changed so the caller can persist exactly
// those rows in one transaction.
type Tree struct {
	matches map[uuid.UUID]*Match
	order   []*Match
	results map[uuid.UUID]*MatchResult

	changed        map[uuid.UUID]bool
	deletedResults []uuid.UUID
}

// NewTree copies matches and results into a fresh working set.
func NewTree(matches []Match, results []MatchResult) *Tree {
	ms := make([]*Match, len(matches))
	for i := range matches {
		m := matches[i]
		m.Result = nil
		ms[i] = &m
	}

	rs := make([]*MatchResult, len(results))
	for i := range results {
		r := results[i]
		rs[i] = &r
	}
	return newTree(ms, rs)
}

func newTree(matches []*Match, results []*MatchResult) *Tree {
	t := &Tree{
		matches: make(map[uuid.UUID]*Match, len(matches)),
		order:   matches,
		results: make(map[uuid.UUID]*MatchResult, len(results)),
		changed: make(map[uuid.UUID]bool),
	}
	for _, m := range matches {
		t.matches[m.ID] = m
	}
	for _, r := range results {
		t.results[r.MatchID] = r
	}

	sort.SliceStable(t.order, func(i, j int) bool {
		if t.order[i].RoundNumber != t.order[j].RoundNumber {
			return t.order[i].RoundNumber < t.order[j].RoundNumber
		}
		return t.order[i].MatchOrder < t.order[j].MatchOrder
	})
	return t
}

// Matches returns copies of every match in round and match number order, with
// results attached.
func (t *Tree) Matches() []Match {
	out := make([]Match, 0, len(t.order))
	for _, m := range t.order {
		out = append(out, t.snapshot(m))
	}
	return out
}

func (t *Tree) Match(id uuid.UUID) (Match, bool) {
	m, ok := t.matches[id]
	if !ok {
		return Match{}, false
	}
	return t.snapshot(m), true
}

func (t *Tree) snapshot(m *Match) Match {
	c := *m
	c.Held = t.held(m)
	if r, ok := t.results[m.ID]; ok {
		rc := *r
		c.Result = &rc
	}
	return c
}

// Final is the single match of the last round.
func (t *Tree) Final() (Match, bool) {
	for i := len(t.order) - 1; i >= 0; i-- {
		if t.order[i].IsFinal() {
			return t.snapshot(t.order[i]), true
		}
	}
	return Match{}, false
}

// Champion returns the final's winner once the final is decided.
func (t *Tree) Champion() (string, bool) {
	final, ok := t.Final()
	if !ok || !final.Decided() || final.WinnerID == "" {
		return "", false
	}
	return final.WinnerID, true
}

// Changed returns the matches touched since the tree was loaded.
func (t *Tree) Changed() []Match {
	var out []Match
	for _, m := range t.order {
		if t.changed[m.ID] {
			out = append(out, *m)
		}
	}
	return out
}

func (t *Tree) DeletedResults() []uuid.UUID {
	return t.deletedResults
}

func (t *Tree) Results() []MatchResult {
	out := make([]MatchResult, 0, len(t.results))
	for _, m := range t.order {
		if r, ok := t.results[m.ID]; ok {
			out = append(out, *r)
		}
	}
	return out
}

func (t *Tree) HasResults() bool {
	return len(t.results) > 0
}

func (t *Tree) resetChanges() {
	t.changed = make(map[uuid.UUID]bool)
	t.deletedResults = nil
}

func (t *Tree) touch(m *Match) {
	t.changed[m.ID] = true
}

// ReportInput is one finalized result for a match.
type ReportInput struct {
	MatchID       uuid.UUID
	WinnerID      string
	Scores        Scores
	ReporterID    string
	Authoritative bool
	At            time.Time
}

// Outcome describes what a report did to the tree.
type Outcome struct {
	Match  Match
	Result MatchResult

	// Unchanged is set when the report repeated the stored result exactly.
	Unchanged bool
	// Corrected is set when an authoritative report replaced a different winner.
	Corrected bool
	// Invalidated lists downstream matches whose results were deleted.
	Invalidated []uuid.UUID
	// Held is set when the corrected winner was not propagated because
	// downstream results were invalidated.
	Held bool
}

// Report validates a result against the tree and applies it. Nothing is
// mutated when an error is returned.
func (t *Tree) Report(in ReportInput) (*Outcome, error) {
	m, ok := t.matches[in.MatchID]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", in.MatchID, ErrNotFound)
	}

	switch m.Status {
	case MatchPending:
		return nil, fmt.Errorf("%w: match %s is still awaiting a previous winner", ErrMatchNotReady, m.ID)
	case MatchBye:
		return nil, fmt.Errorf("%w: match %s was decided by a bye", ErrMatchNotReady, m.ID)
	}

	if !m.HasParticipant(in.WinnerID) {
		return nil, fmt.Errorf("%w: %q in match %s", ErrInvalidWinner, in.WinnerID, m.ID)
	}

	existing := t.results[m.ID]
	if m.Status == MatchCompleted && m.WinnerID != in.WinnerID && !in.Authoritative {
		return nil, fmt.Errorf("%w: match %s already won by %q", ErrResultConflict, m.ID, m.WinnerID)
	}

	out := &Outcome{}

	switch {
	case m.Status == MatchReady:
		m.Status = MatchCompleted
		m.WinnerID = in.WinnerID
		t.touch(m)
		t.advance(m)

	case m.WinnerID != in.WinnerID:
		out.Corrected = true
		out.Invalidated = t.retract(m)
		m.WinnerID = in.WinnerID
		t.touch(m)
		if len(out.Invalidated) == 0 {
			t.advance(m)
		} else {
			out.Held = true
		}

	default:
		// Same winner: repropagate a correction that was held back
		if t.held(m) {
			t.advance(m)
		} else if existing != nil && existing.sameAs(in.WinnerID, in.Scores) {
			out.Unchanged = true
			out.Match = t.snapshot(m)
			out.Result = *existing
			return out, nil
		}
	}

	out.Result = t.upsertResult(m, in)
	out.Match = t.snapshot(m)
	return out, nil
}

func (t *Tree) upsertResult(m *Match, in ReportInput) MatchResult {
	r, ok := t.results[m.ID]
	if !ok {
		r = &MatchResult{MatchID: m.ID, CreatedAt: in.At}
		t.results[m.ID] = r
	}
	r.WinnerID = in.WinnerID
	r.ScoreA = in.Scores.A
	r.ScoreB = in.Scores.B
	r.Details = in.Scores.Details
	r.ReportedBy = in.ReporterID
	if in.Authoritative {
		r.VerifiedBy = in.ReporterID
	}
	r.UpdatedAt = in.At
	return *r
}

func (t *Tree) held(m *Match) bool {
	next := t.successor(m)
	return m.Status == MatchCompleted && next != nil && next.Slot(m.WinnerNextSlot).State == SlotAwaiting
}

func (t *Tree) successor(m *Match) *Match {
	if m.WinnerNextMatchID == nil {
		return nil
	}
	return t.matches[*m.WinnerNextMatchID]
}

// settle recomputes the status of an undecided match from its slots and
// resolves byes, which may cascade forward through several rounds.
func (t *Tree) settle(m *Match) {
	if m.Decided() {
		return
	}

	a, b := m.SlotA, m.SlotB
	status := m.Status
	switch {
	case a.State == SlotAwaiting || b.State == SlotAwaiting:
		status = MatchPending
	case a.Resolved() && b.Resolved():
		status = MatchReady
	default:
		m.Status = MatchBye
		m.WinnerID = ""
		if a.Resolved() {
			m.WinnerID = a.ParticipantID
		} else if b.Resolved() {
			m.WinnerID = b.ParticipantID
		}
		t.touch(m)
		t.advance(m)
		return
	}

	if status != m.Status {
		m.Status = status
		t.touch(m)
	}
}

// advance writes a decided match's outcome into its successor slot. A match
// decided without any participant passes a bye forward.
func (t *Tree) advance(m *Match) {
	next := t.successor(m)
	if next == nil {
		return
	}

	slot := next.Slot(m.WinnerNextSlot)
	if m.WinnerID != "" {
		slot.State = SlotParticipant
		slot.ParticipantID = m.WinnerID
	} else {
		slot.State = SlotBye
		slot.ParticipantID = ""
	}
	t.touch(next)
	t.settle(next)
}

// retract pulls m's previous winner back out of the successor and resets every
// downstream match that had already been decided with it. It returns the ids
// of matches whose results were deleted.
func (t *Tree) retract(m *Match) []uuid.UUID {
	next := t.successor(m)
	if next == nil {
		return nil
	}

	var invalidated []uuid.UUID
	if next.Decided() {
		invalidated = t.retract(next)
		if _, ok := t.results[next.ID]; ok {
			delete(t.results, next.ID)
			t.deletedResults = append(t.deletedResults, next.ID)
			invalidated = append(invalidated, next.ID)
		}
		next.WinnerID = ""
	}

	slot := next.Slot(m.WinnerNextSlot)
	slot.State = SlotAwaiting
	slot.ParticipantID = ""
	next.Status = MatchPending
	t.touch(next)

	return invalidated
}
