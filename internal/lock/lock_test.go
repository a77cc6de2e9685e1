package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSharedHoldersCoexist(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	rel1, err := m.Acquire(ctx, Request{Tournament: "t1"})
	require.NoError(t, err)
	rel2, err := m.Acquire(ctx, Request{Tournament: "t1"})
	require.NoError(t, err)

	rel1()
	rel2()
	assert.Equal(t, 0, m.Len())
}

func TestExclusiveWaitsForShared(t *testing.T) {
	m := NewManager()

	rel, err := m.Acquire(context.Background(), Request{Tournament: "t1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, Request{Tournament: "t1", Exclusive: true})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	rel()

	rel, err = m.Acquire(context.Background(), Request{Tournament: "t1", Exclusive: true})
	require.NoError(t, err)
	rel()
	assert.Equal(t, 0, m.Len())
}

func TestMatchLocksAreExclusive(t *testing.T) {
	m := NewManager()

	rel, err := m.Acquire(context.Background(), Request{Tournament: "t1", Matches: []string{"m1", "m3"}})
	require.NoError(t, err)

	// Different matches in the same tournament do not block
	other, err := m.Acquire(context.Background(), Request{Tournament: "t1", Matches: []string{"m2"}})
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, Request{Tournament: "t1", Matches: []string{"m2", "m3"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	rel()
	assert.Equal(t, 0, m.Len())
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := NewManager()

	rel, err := m.Acquire(context.Background(), Request{Tournament: "t1", Exclusive: true, Matches: []string{"a", "a", ""}})
	require.NoError(t, err)
	rel()
	rel()

	rel, err = m.Acquire(context.Background(), Request{Tournament: "t1", Exclusive: true})
	require.NoError(t, err)
	rel()
}

func TestOverlappingRequestsSerialize(t *testing.T) {
	m := NewManager()
	var inside, maxInside int32

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		matches := []string{"m1", "m2"}
		if i%2 == 0 {
			matches = []string{"m2", "m1"}
		}
		g.Go(func() error {
			rel, err := m.Acquire(ctx, Request{Tournament: "t1", Matches: matches})
			if err != nil {
				return err
			}
			defer rel()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, m.Len())
}
