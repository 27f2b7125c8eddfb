// Package models contains domain models for procrastino.
package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// User is the identity and progression aggregate. Progression fields are
// mutated only by the session engine during settlement.
type User struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Email             string          `db:"email" json:"email"`
	PasswordHash      string          `db:"password_hash" json:"-"`
	XP                int64           `db:"xp" json:"xp"`
	CurrentStreak     int             `db:"current_streak" json:"currentStreak"`
	LongestStreak     int             `db:"longest_streak" json:"longestStreak"`
	LastActiveDate    string          `db:"last_active_date" json:"lastActiveDate"` // YYYY-MM-DD UTC, empty if never active
	TotalFocusMinutes int64           `db:"total_focus_minutes" json:"totalFocusMinutes"`
	PunishmentPrefs   PunishmentPrefs `db:"punishment_prefs" json:"punishmentPrefs"`
	CreatedAt         string          `db:"created_at" json:"createdAt"`
	CreatedAtEpoch    int64           `db:"created_at_epoch" json:"-"`
}

// PunishmentPrefs are cosmetic punishment toggles. They are persisted and
// surfaced to clients but never consulted by the XP settlement policy.
type PunishmentPrefs struct {
	LoseStreak     bool `json:"loseStreak"`
	DeductPoints   bool `json:"deductPoints"`
	Roast          bool `json:"roast"`
	AnnoyingEffect bool `json:"annoyingEffect"`
	DonationMock   bool `json:"donationMock"`
}

// DefaultPunishmentPrefs returns the preference set assigned at registration.
func DefaultPunishmentPrefs() PunishmentPrefs {
	return PunishmentPrefs{
		LoseStreak:     true,
		DeductPoints:   true,
		Roast:          true,
		AnnoyingEffect: true,
		DonationMock:   true,
	}
}

// Scan implements sql.Scanner for JSON-encoded preference columns.
func (p *PunishmentPrefs) Scan(value interface{}) error {
	if value == nil {
		*p = DefaultPunishmentPrefs()
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PunishmentPrefs", value)
	}

	if len(data) == 0 {
		*p = DefaultPunishmentPrefs()
		return nil
	}
	return json.Unmarshal(data, p)
}

// Value implements driver.Valuer for JSON-encoded preference columns.
func (p PunishmentPrefs) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
