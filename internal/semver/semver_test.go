// ABOUTME: Tests for lenient version parsing, ordering, and bumping
// ABOUTME: Covers ordering laws over well-formed triples and zero coercion of bad input

package semver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_Examples(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.4", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.x.0", "1.0.0", 0},
		{"1.10.0", "1.9.0", 1},
		{"", "0.0.0", 0},
		{"1.2.3.4", "1.2.3", 0},
		{"-1.0.0", "0.0.0", -1},
		{"1.-2.0", "1.0.0", -1},
		{"1.99999999999999999999.0", "1.5.0", 1},
		{"1.-99999999999999999999.0", "1.-5.0", -1},
		{" 1.2.3", "1.2.3", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestCompare_OrderLaws(t *testing.T) {
	var versions []string
	for major := 0; major < 3; major++ {
		for minor := 0; minor < 3; minor++ {
			for patch := 0; patch < 3; patch++ {
				versions = append(versions, fmt.Sprintf("%d.%d.%d", major, minor, patch))
			}
		}
	}

	for _, a := range versions {
		assert.Equal(t, 0, Compare(a, a), "reflexive for %s", a)
		for _, b := range versions {
			assert.Equal(t, -Compare(b, a), Compare(a, b), "antisymmetric for %s, %s", a, b)
			for _, c := range versions {
				if Compare(a, b) < 0 && Compare(b, c) < 0 {
					assert.Equal(t, -1, Compare(a, c), "transitive for %s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, Parse("1.2.3"))
	assert.Equal(t, Version{Major: 4}, Parse("4"))
	assert.Equal(t, Version{}, Parse("garbage"))
	assert.Equal(t, "1.0.7", Parse("1.foo.7").String())
}

func TestBump(t *testing.T) {
	tests := []struct {
		current string
		kind    Kind
		want    string
	}{
		{"1.2.3", KindPatch, "1.2.4"},
		{"1.2.3", KindMinor, "1.3.0"},
		{"1.2.3", KindMajor, "2.0.0"},
		{"1.9", KindPatch, "1.9.1"},
		{"0.0.0", KindMajor, "1.0.0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"_"+tt.current, func(t *testing.T) {
			got, err := Bump(tt.current, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBump_InvalidKind(t *testing.T) {
	_, err := Bump("1.0.0", Kind("hotfix"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKind))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("MINOR")
	require.NoError(t, err)
	assert.Equal(t, KindMinor, k)

	_, err = ParseKind("exit")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
