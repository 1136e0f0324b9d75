package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/infra/logger"
	"github.com/arklim/social-platform-authkit/internal/usecase"
)

// SessionHandler exposes the redacted authentication snapshot for local
// debugging. Tokens never appear here; emails are masked.
type SessionHandler struct {
	machine *usecase.AuthStateMachine
	store   *usecase.SecureTokenStore
}

// NewSessionHandler builds a new session handler instance.
func NewSessionHandler(machine *usecase.AuthStateMachine, store *usecase.SecureTokenStore) *SessionHandler {
	return &SessionHandler{machine: machine, store: store}
}

// Snapshot returns the current authentication state.
func (h *SessionHandler) Snapshot(c *gin.Context) {
	state := h.machine.State()

	resp := SessionResponse{
		IsAuthenticated: state.IsAuthenticated,
		IsLoading:       state.IsLoading,
		IsInitialized:   state.IsInitialized,
		Permissions:     state.Permissions,
		StorageOK:       h.store.Available(c.Request.Context()),
	}

	if state.User != nil {
		resp.User = &SessionUser{
			ID:          state.User.ID,
			Email:       logger.MaskEmail(state.User.Email),
			DisplayName: state.User.DisplayName,
			Role:        state.User.Role,
		}
	}
	if state.SessionInfo != nil {
		resp.Session = &SessionDetails{
			LoginMethod: string(state.SessionInfo.LoginMethod),
			LoginTime:   state.SessionInfo.LoginTime,
			ExpiresAt:   state.SessionInfo.ExpiresAt,
			DeviceID:    state.SessionInfo.DeviceID,
			SessionID:   state.SessionInfo.SessionID,
		}
	}
	if !state.LastActivity.IsZero() {
		activity := state.LastActivity
		resp.LastActivity = &activity
	}
	if state.Error != nil {
		resp.Error = &SessionError{
			Code:        state.Error.Code,
			Message:     state.Error.Message,
			Recoverable: state.Error.Recoverable,
			Timestamp:   state.Error.Timestamp,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ClearError drops the transient error from the state.
func (h *SessionHandler) ClearError(c *gin.Context) {
	h.machine.ClearError()
	c.Status(http.StatusNoContent)
}

// Refresh forces a token refresh, mainly for manual verification.
func (h *SessionHandler) Refresh(c *gin.Context) {
	if err := h.machine.Refresh(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		if usecase.Categorize(err) == domain.CategoryTokenExpired {
			status = http.StatusUnauthorized
		}
		c.JSON(status, ErrorResponse{Error: "refresh failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
