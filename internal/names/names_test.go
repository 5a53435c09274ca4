package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalComposesUnicode(t *testing.T) {
	// "é" as U+0065 U+0301 vs U+00E9.
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	a, err := Canonical(decomposed)
	require.NoError(t, err)
	b, err := Canonical(composed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalTrims(t *testing.T) {
	c, err := Canonical("  df1\t")
	require.NoError(t, err)
	assert.Equal(t, "df1", c)
}

func TestCanonicalRejects(t *testing.T) {
	_, err := Canonical("   ")
	require.ErrorIs(t, err, ErrEmpty)

	for _, bad := range []string{"a/b", `a\b`, "..", ".", "a\x00b", "a\nb", "\xff", strings.Repeat("x", MaxLen+1)} {
		_, err := Canonical(bad)
		require.ErrorIs(t, err, ErrInvalid, "name %q", bad)
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	f, err := FileName("df1")
	require.NoError(t, err)
	assert.Equal(t, "dfseg.df1", f)

	name, ok := FromFileName(f)
	require.True(t, ok)
	assert.Equal(t, "df1", name)

	_, ok = FromFileName("other.df1")
	assert.False(t, ok)
	_, ok = FromFileName(FilePrefix)
	assert.False(t, ok)
}
