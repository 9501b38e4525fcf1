package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want [3]int
		ok   bool
	}{
		{raw: "1.2.3", want: [3]int{1, 2, 3}, ok: true},
		{raw: "v1.2.3", want: [3]int{1, 2, 3}, ok: true},
		{raw: "^4.17.20", want: [3]int{4, 17, 20}, ok: true},
		{raw: "~2.6", want: [3]int{2, 6, 0}, ok: true},
		{raw: ">=7.0.0", want: [3]int{7, 0, 0}, ok: true},
		{raw: "1.0.0-beta.1", want: [3]int{1, 0, 0}, ok: true},
		{raw: "2", want: [3]int{2, 0, 0}, ok: true},
		{raw: "*", ok: false},
		{raw: "", ok: false},
		{raw: "dev-main", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseVersion(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, compareVersions([3]int{1, 2, 0}, [3]int{1, 10, 0}))
	assert.Equal(t, 1, compareVersions([3]int{2, 0, 0}, [3]int{1, 9, 9}))
	assert.Equal(t, 0, compareVersions([3]int{1, 0, 0}, [3]int{1, 0, 0}))
}

func TestVulnerableRangeMatches(t *testing.T) {
	below := VulnerableRange{Package: "lodash", Below: "4.17.21"}
	assert.True(t, below.Matches("4.17.20"))
	assert.True(t, below.Matches("^4.17.20"))
	assert.False(t, below.Matches("4.17.21"))
	assert.False(t, below.Matches("5.0.0"))

	banded := VulnerableRange{Package: "guzzlehttp/guzzle", AtLeast: "7.0.0", Below: "7.4.5"}
	assert.True(t, banded.Matches("7.4.4"))
	assert.True(t, banded.Matches("7.0.0"))
	assert.False(t, banded.Matches("6.5.7"))
	assert.False(t, banded.Matches("7.4.5"))

	unparsable := VulnerableRange{Package: "x", Below: "1.0.0"}
	assert.False(t, unparsable.Matches("dev-main"))
}

func TestLookupVulnerable(t *testing.T) {
	table := []VulnerableRange{
		{Ecosystem: "npm", Package: "lodash", Below: "4.17.21", Advisory: "a"},
		{Ecosystem: "composer", Package: "lodash", Below: "9.9.9", Advisory: "b"},
	}

	matches := LookupVulnerable(table, "npm", "lodash", "4.0.0")
	assert.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Advisory)

	assert.Empty(t, LookupVulnerable(table, "npm", "express", "4.0.0"))
	assert.Empty(t, LookupVulnerable(table, "npm", "lodash", "4.17.21"))
}
