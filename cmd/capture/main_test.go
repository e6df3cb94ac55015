package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	cols, rows, err := parsePattern("9x6")
	require.NoError(t, err)
	assert.Equal(t, 9, cols)
	assert.Equal(t, 6, rows)

	cols, rows, err = parsePattern("7X5")
	require.NoError(t, err)
	assert.Equal(t, 7, cols)
	assert.Equal(t, 5, rows)

	// A mistyped grid must be rejected, not silently fall back to the
	// defaults.
	for _, bad := range []string{"", "9", "9x", "x6", "axb", "9x6x3extra", "1x6"} {
		_, _, err := parsePattern(bad)
		assert.Error(t, err, "pattern %q", bad)
	}
}
