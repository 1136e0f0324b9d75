package domain

import "time"

// SecurityEventType enumerates the event kinds the monitor ingests.
type SecurityEventType string

const (
	EventTokenRefresh         SecurityEventType = "token_refresh"
	EventTokenValidationFail  SecurityEventType = "token_validation_failed"
	EventTokenExpired         SecurityEventType = "token_expired"
	EventSuspiciousActivity   SecurityEventType = "suspicious_activity"
)

// SecurityEvent is a single append-only log entry. The monitor caps the log
// at its most recent entries and purges anything older than the retention
// window.
type SecurityEvent struct {
	Type      SecurityEventType
	UserID    string
	DeviceID  string
	Timestamp time.Time
	Details   map[string]any
}

// AlertLevel grades the severity of a raised security alert.
type AlertLevel string

const (
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// SecurityAlert is a severity-tagged notification derived from analyzing one
// or more events.
type SecurityAlert struct {
	ID             string
	Level          AlertLevel
	Type           string
	Message        string
	Timestamp      time.Time
	UserID         string
	DeviceID       string
	ActionRequired bool
	AutoResolved   bool
}

// SecurityMetrics aggregates monitor activity for a timeframe.
type SecurityMetrics struct {
	TotalEvents          int
	TotalRefreshes       int
	FailedValidations    int
	SuspiciousActivities int
	ActiveAlerts         int
	AverageTokenLifetime time.Duration
}

// SecurityReport is the exportable snapshot of monitor state.
type SecurityReport struct {
	Summary         SecurityMetrics
	Events          []SecurityEvent
	Alerts          []SecurityAlert
	Recommendations []string
	GeneratedAt     time.Time
}
