package entity

import (
	"time"
)

// Log 策略日志, append-only
type Log struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	StrategyId string `gorm:"index"`
	Level      string `gorm:"index"`
	Message    string `gorm:"type:text"`
	CreatedAt  time.Time
}

const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
	LogLevelTrade = "TRADE"
)
