package handlers

import "time"

// HealthResponse reports liveness of the diagnostics daemon.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
}

// SessionResponse is the redacted authentication snapshot.
type SessionResponse struct {
	IsAuthenticated bool            `json:"is_authenticated"`
	IsLoading       bool            `json:"is_loading"`
	IsInitialized   bool            `json:"is_initialized"`
	User            *SessionUser    `json:"user,omitempty"`
	Permissions     []string        `json:"permissions,omitempty"`
	Session         *SessionDetails `json:"session,omitempty"`
	LastActivity    *time.Time      `json:"last_activity,omitempty"`
	Error           *SessionError   `json:"error,omitempty"`
	StorageOK       bool            `json:"storage_ok"`
}

// SessionUser is the user slice of the snapshot with PII masked.
type SessionUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// SessionDetails describes the live session.
type SessionDetails struct {
	LoginMethod string    `json:"login_method"`
	LoginTime   time.Time `json:"login_time"`
	ExpiresAt   time.Time `json:"expires_at"`
	DeviceID    string    `json:"device_id"`
	SessionID   string    `json:"session_id"`
}

// SessionError is the transient error slice of the snapshot.
type SessionError struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
}

// AnomalyResponse reports the outcome of an on-demand anomaly check.
type AnomalyResponse struct {
	UserID    string `json:"user_id"`
	Anomalous bool   `json:"anomalous"`
}

// ResolveAlertResponse reports the outcome of a manual alert resolution.
type ResolveAlertResponse struct {
	Resolved bool   `json:"resolved"`
	AlertID  string `json:"alert_id"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
