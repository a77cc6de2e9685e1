package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// exclusiveWeight is the full capacity of a tournament semaphore. Shared holders
// take 1, so an exclusive holder waits for every shared holder to leave.
const exclusiveWeight = 1 << 30

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Manager hands out per-tournament reader/writer locks and per-match exclusive
// locks. Entries are created on demand and dropped once nobody references them.
type Manager struct {
	mu          sync.Mutex
	tournaments map[string]*entry
	matches     map[string]*entry
}

func NewManager() *Manager {
	return &Manager{
		tournaments: make(map[string]*entry),
		matches:     make(map[string]*entry),
	}
}

// Request names what a caller needs. Matches are always exclusive.
type Request struct {
	Tournament string
	Exclusive  bool
	Matches    []string
}

// Acquire takes the tournament lock first and then match locks in ascending id
// order, so two callers can never wait on each other in a cycle. On failure
// everything already held is released and the context error is returned.
func (m *Manager) Acquire(ctx context.Context, req Request) (func(), error) {
	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	if req.Tournament != "" {
		weight := int64(1)
		if req.Exclusive {
			weight = exclusiveWeight
		}
		rel, err := m.take(ctx, m.tournaments, req.Tournament, exclusiveWeight, weight)
		if err != nil {
			return nil, fmt.Errorf("tournament %s: %w", req.Tournament, err)
		}
		releases = append(releases, rel)
	}

	for _, id := range sortedUnique(req.Matches) {
		rel, err := m.take(ctx, m.matches, id, 1, 1)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("match %s: %w", id, err)
		}
		releases = append(releases, rel)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

func (m *Manager) take(ctx context.Context, set map[string]*entry, key string, capacity, weight int64) (func(), error) {
	m.mu.Lock()
	e, ok := set[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(capacity)}
		set[key] = e
	}
	e.refs++
	m.mu.Unlock()

	if err := e.sem.Acquire(ctx, weight); err != nil {
		m.unref(set, key, e)
		return nil, err
	}

	return func() {
		e.sem.Release(weight)
		m.unref(set, key, e)
	}, nil
}

func (m *Manager) unref(set map[string]*entry, key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(set, key)
	}
}

// Len reports how many lock entries are currently referenced.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tournaments) + len(m.matches)
}

func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
