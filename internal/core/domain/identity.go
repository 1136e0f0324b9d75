package domain

import "time"

// User is the authenticated platform account as seen by the client.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
}

// AuthState is the single live authentication snapshot of a running client.
// It is mutated only through the state machine reducer, never directly.
type AuthState struct {
	IsAuthenticated bool
	IsLoading       bool
	IsInitialized   bool
	User            *User
	Permissions     []string
	SessionInfo     *SessionInfo
	LastActivity    time.Time
	Error           *AuthError
}

// StateSignature is the shallow projection of AuthState used to decide
// whether subscribers need to be notified after a dispatch.
type StateSignature struct {
	IsAuthenticated bool
	IsLoading       bool
	IsInitialized   bool
	UserID          string
	ErrorCode       string
}

// Signature returns the comparable shallow projection of the state.
func (s AuthState) Signature() StateSignature {
	sig := StateSignature{
		IsAuthenticated: s.IsAuthenticated,
		IsLoading:       s.IsLoading,
		IsInitialized:   s.IsInitialized,
	}
	if s.User != nil {
		sig.UserID = s.User.ID
	}
	if s.Error != nil {
		sig.ErrorCode = s.Error.Code
	}
	return sig
}

// Clone returns a deep copy so listeners never observe later mutations.
func (s AuthState) Clone() AuthState {
	out := s
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	if s.SessionInfo != nil {
		session := *s.SessionInfo
		out.SessionInfo = &session
	}
	if s.Error != nil {
		errCopy := *s.Error
		out.Error = &errCopy
	}
	if len(s.Permissions) > 0 {
		out.Permissions = make([]string, len(s.Permissions))
		copy(out.Permissions, s.Permissions)
	}
	return out
}
