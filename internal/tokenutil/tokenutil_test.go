package tokenutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	require.Zero(t, Estimate(""))
	require.Zero(t, Estimate("   "))
	require.Equal(t, 1, Estimate("hi"))

	// runes/4 dominates long words, word count dominates short ones
	require.Equal(t, 5, Estimate(strings.Repeat("x", 20)))
	require.Equal(t, 6, Estimate("a b c d e f"))
}

func TestCountPositive(t *testing.T) {
	n := Count("The quick brown fox jumps over the lazy dog")
	require.Greater(t, n, 0)
	require.Less(t, n, 20)
}

func TestCountMonotonicOnRepetition(t *testing.T) {
	short := Count("hello world")
	long := Count(strings.Repeat("hello world ", 50))
	require.Greater(t, long, short)
}
