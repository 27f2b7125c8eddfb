package engine

import "github.com/procrastino/procrastino/pkg/models"

// XP rules. Values mirror the product's published scoring table.
const (
	XPPerFocusMinute   = 2
	XPCompleteTask     = 10
	XPAllMicroTasks    = 20
	XPAbandonSession   = -10
	XPExcessiveSwitch  = -5
	TabSwitchThreshold = 5
)

// Settlement is the computed outcome of ending a session. The user's total
// is floor-clamped at zero when BaseDelta is applied; Bonus lands after the
// clamp. SessionXP is the raw value recorded on the session for audit and
// display, so a negative delta stays visible even when the floor absorbs it.
type Settlement struct {
	SessionXP      int64
	BaseDelta      int64
	Bonus          int64
	FocusMinutes   int64
	StreakEligible bool
}

// SettleComplete computes the settlement for a completed session.
func SettleComplete(focusSeconds int64, tabSwitches int, microTasks models.MicroTaskList) Settlement {
	minutes := focusSeconds / 60

	delta := minutes*XPPerFocusMinute + XPCompleteTask
	if tabSwitches > TabSwitchThreshold {
		delta += XPExcessiveSwitch
	}

	s := Settlement{
		BaseDelta:      delta,
		FocusMinutes:   minutes,
		StreakEligible: minutes >= MinStreakFocusMinutes,
	}

	s.SessionXP = delta
	if s.SessionXP < 0 {
		s.SessionXP = 0
	}

	if microTasks.AllCompleted() {
		s.Bonus = XPAllMicroTasks
		s.SessionXP += XPAllMicroTasks
	}
	return s
}

// SettleAbandon computes the flat settlement for an abandoned session. The
// penalty is independent of elapsed time and never streak-eligible.
func SettleAbandon() Settlement {
	return Settlement{
		SessionXP: XPAbandonSession,
		BaseDelta: XPAbandonSession,
	}
}

// ApplyToXP applies the base delta with the zero floor, then the bonus.
func (s Settlement) ApplyToXP(xp int64) int64 {
	xp += s.BaseDelta
	if xp < 0 {
		xp = 0
	}
	return xp + s.Bonus
}
