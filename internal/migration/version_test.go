package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.2.0", "1.0.9", 1},
		{"2.0.0", "1.9.9", 1},
		{"0.9.9", "1.0.0", -1},
		// A release outranks every prerelease of the same triple.
		{"2.1.0-rc10", "2.1.0", -1},
		{"2.1.0", "2.1.0-rc10", 1},
		{"2.0.0-rc0", "2.0.0-rc1", -1},
		{"2.0.0-rc2", "2.0.0-rc2", 0},
		// Prerelease of a later version still outranks an earlier release.
		{"2.1.0-rc1", "2.0.0", 1},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Compare(tc.a, tc.b), "Compare(%q, %q)", tc.a, tc.b)
	}
}

func TestRankTolerantOfShortVersions(t *testing.T) {
	require.Equal(t, 0, Compare("1.0", "1.0.0-rc99"))
	require.Equal(t, 1, Compare("1", "0.9.9"))
}
