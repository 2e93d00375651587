package entity

import (
	"time"
)

// Strategy 用户策略
type Strategy struct {
	Id            string `gorm:"primaryKey"`
	Name          string
	Description   string
	Code          string `gorm:"type:text"`
	Symbol        string `gorm:"default:BTCUSDT"` // 交易对, e.g. BTCUSDT
	Status        string `gorm:"index;default:STOPPED"`
	ScheduleStart string // "HH:MM"
	ScheduleEnd   string // "HH:MM"
	PnlDay        float64
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

const (
	StatusStopped   = "STOPPED"
	StatusScheduled = "SCHEDULED"
	StatusRunning   = "RUNNING"
	StatusPaused    = "PAUSED"
	StatusError     = "ERROR"
)

// HasRunIntent reports whether the user intent for the strategy is "run".
// SCHEDULED and RUNNING both mean run; only the schedule window decides
// which of the two applies at a given instant.
func HasRunIntent(status string) bool {
	return status == StatusScheduled || status == StatusRunning
}

// IsHold reports whether the status is a user hold with no live runner.
func IsHold(status string) bool {
	return status == StatusStopped || status == StatusPaused || status == StatusError
}
