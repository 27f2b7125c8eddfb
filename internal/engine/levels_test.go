package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name     string
		xp       int64
		expected string
	}{
		{"zero xp", 0, "Lazy"},
		{"just under focused", 99, "Lazy"},
		{"focused threshold", 100, "Focused"},
		{"just under disciplined", 499, "Focused"},
		{"disciplined threshold", 500, "Disciplined"},
		{"just under top tier", 1499, "Disciplined"},
		{"top tier threshold", 1500, "Productivity God"},
		{"far past top tier", 1_000_000, "Productivity God"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFor(tt.xp).Name)
		})
	}
}

func TestLevelForMonotonic(t *testing.T) {
	// Levels never regress as XP grows.
	prev := 0
	for xp := int64(0); xp <= 2000; xp += 25 {
		lvl := LevelFor(xp)
		require.GreaterOrEqual(t, lvl.Level, prev, "xp=%d", xp)
		prev = lvl.Level
	}
}

func TestNextLevel(t *testing.T) {
	next, ok := NextLevel(0)
	require.True(t, ok)
	assert.Equal(t, "Focused", next.Name)
	assert.Equal(t, int64(100), next.MinXP)

	next, ok = NextLevel(750)
	require.True(t, ok)
	assert.Equal(t, "Productivity God", next.Name)

	_, ok = NextLevel(1500)
	assert.False(t, ok, "top tier has no next level")
}
