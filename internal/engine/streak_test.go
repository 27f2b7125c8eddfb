package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodayUTC(t *testing.T) {
	// 23:30 in UTC+5:30 is already the next day locally, but the streak
	// calendar is pinned to UTC.
	loc := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2026, 8, 27, 23, 30, 0, 0, loc)
	assert.Equal(t, "2026-08-27", TodayUTC(instant))
}

func TestAdvanceStreak(t *testing.T) {
	tests := []struct {
		name           string
		current        int
		longest        int
		lastActive     string
		today          string
		wantCurrent    int
		wantLongest    int
		wantLastActive string
	}{
		{
			name:  "first ever activity",
			today: "2026-08-28", wantCurrent: 1, wantLongest: 1, wantLastActive: "2026-08-28",
		},
		{
			name:    "same day is a no-op",
			current: 4, longest: 6, lastActive: "2026-08-28",
			today: "2026-08-28", wantCurrent: 4, wantLongest: 6, wantLastActive: "2026-08-28",
		},
		{
			name:    "consecutive day extends",
			current: 4, longest: 6, lastActive: "2026-08-27",
			today: "2026-08-28", wantCurrent: 5, wantLongest: 6, wantLastActive: "2026-08-28",
		},
		{
			name:    "extension can set a new longest",
			current: 6, longest: 6, lastActive: "2026-08-27",
			today: "2026-08-28", wantCurrent: 7, wantLongest: 7, wantLastActive: "2026-08-28",
		},
		{
			name:    "two-day gap resets",
			current: 9, longest: 12, lastActive: "2026-08-25",
			today: "2026-08-28", wantCurrent: 1, wantLongest: 12, wantLastActive: "2026-08-28",
		},
		{
			name:    "month boundary still counts as consecutive",
			current: 2, longest: 2, lastActive: "2026-07-31",
			today: "2026-08-01", wantCurrent: 3, wantLongest: 3, wantLastActive: "2026-08-01",
		},
		{
			name:    "garbage last-active resets",
			current: 5, longest: 5, lastActive: "not-a-date",
			today: "2026-08-28", wantCurrent: 1, wantLongest: 5, wantLastActive: "2026-08-28",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest, lastActive := AdvanceStreak(tt.current, tt.longest, tt.lastActive, tt.today)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantLongest, longest)
			assert.Equal(t, tt.wantLastActive, lastActive)
		})
	}
}

func TestAdvanceStreakIdempotentAfterExtension(t *testing.T) {
	current, longest, lastActive := AdvanceStreak(3, 3, "2026-08-27", "2026-08-28")
	assert.Equal(t, 4, current)

	// A second qualifying session on the same day changes nothing.
	current, longest, lastActive = AdvanceStreak(current, longest, lastActive, "2026-08-28")
	assert.Equal(t, 4, current)
	assert.Equal(t, 4, longest)
	assert.Equal(t, "2026-08-28", lastActive)
}
