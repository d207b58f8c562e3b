package rabbitmq

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentIDs_DetectsRedelivery(t *testing.T) {
	seen, err := newRecentIDs(4)
	require.NoError(t, err)

	require.False(t, seen.seenBefore("evt-1"))
	require.True(t, seen.seenBefore("evt-1"))

	seen.forget("evt-1")
	require.False(t, seen.seenBefore("evt-1"))
}

func TestRecentIDs_StaysWithinWindow(t *testing.T) {
	seen, err := newRecentIDs(8)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		require.False(t, seen.seenBefore(fmt.Sprintf("evt-%d", i)))
	}
	require.Equal(t, 8, seen.len())
	require.True(t, seen.seenBefore("evt-999"))
	require.False(t, seen.seenBefore("evt-0"))
}

func TestRecentIDs_RejectsEmptyWindow(t *testing.T) {
	_, err := newRecentIDs(0)
	require.Error(t, err)
}
