package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtrOrNil(t *testing.T) {
	assert.Nil(t, PtrOrNil(0))
	assert.Nil(t, PtrOrNil(""))
	require.NotNil(t, PtrOrNil(2))
	assert.Equal(t, 2, *PtrOrNil(2))
}

func TestOrZero(t *testing.T) {
	assert.Equal(t, "", OrZero[string](nil))
	assert.Equal(t, "p1", OrZero(Ptr("p1")))
}

func TestStringOrNil(t *testing.T) {
	testCases := []struct {
		in   string
		want *string
	}{
		{"", nil},
		{"   ", nil},
		{" team-7 ", Ptr("team-7")},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, StringOrNil(tc.in))
	}
}

func TestUTC(t *testing.T) {
	assert.Nil(t, UTC(nil))

	local := time.Date(2026, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	got := UTC(&local)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}
