package engine

import "time"

// dateLayout is the day-granularity UTC calendar format used for streaks.
const dateLayout = "2006-01-02"

// MinStreakFocusMinutes is the qualifying threshold: sessions measuring less
// focus than this never touch streaks, even when completed.
const MinStreakFocusMinutes = 5

// TodayUTC formats the instant as a UTC calendar date.
func TodayUTC(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// AdvanceStreak applies the day-over-day streak rule and returns the new
// streak state. Calling it twice with the same today is a no-op: a day is
// counted at most once. A one-day gap extends the streak; any other gap,
// including never having been active, resets it to 1.
func AdvanceStreak(current, longest int, lastActive, today string) (newCurrent, newLongest int, newLastActive string) {
	if lastActive == today {
		return current, longest, lastActive
	}

	newCurrent = 1
	if lastActive != "" {
		if last, err := time.ParseInLocation(dateLayout, lastActive, time.UTC); err == nil {
			todayDate, err := time.ParseInLocation(dateLayout, today, time.UTC)
			if err == nil && int(todayDate.Sub(last).Hours()/24) == 1 {
				newCurrent = current + 1
			}
		}
	}

	newLongest = longest
	if newCurrent > newLongest {
		newLongest = newCurrent
	}
	return newCurrent, newLongest, today
}
