package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/logger"
)

const defaultActivityInterval = time.Minute

// ActionType enumerates the state machine transitions. Every state change in
// the subsystem is one of these.
type ActionType string

const (
	ActionSetLoading         ActionType = "SET_LOADING"
	ActionSetAuthenticated   ActionType = "SET_AUTHENTICATED"
	ActionSetUnauthenticated ActionType = "SET_UNAUTHENTICATED"
	ActionSetError           ActionType = "SET_ERROR"
	ActionClearError         ActionType = "CLEAR_ERROR"
	ActionUpdateUser         ActionType = "UPDATE_USER"
	ActionUpdatePermissions  ActionType = "UPDATE_PERMISSIONS"
	ActionUpdateActivity     ActionType = "UPDATE_ACTIVITY"
	ActionSessionExpired     ActionType = "SESSION_EXPIRED"
	ActionSetInitialized     ActionType = "SET_INITIALIZED"
	ActionRefreshSession     ActionType = "REFRESH_SESSION"
	ActionSetAutoLoginResult ActionType = "SET_AUTO_LOGIN_RESULT"
)

// Action is the reducer input. Only the fields relevant to the Type are read.
type Action struct {
	Type        ActionType
	Loading     bool
	User        *domain.User
	Permissions []string
	Session     *domain.SessionInfo
	Error       *domain.AuthError
	ExpiresAt   time.Time
	At          time.Time
	AutoLogin   *port.AutoLoginResult
}

// Reduce applies an action to a state and returns the next state. It is a
// pure function: no I/O, no clock reads, no mutation of its inputs.
func Reduce(state domain.AuthState, action Action) domain.AuthState {
	next := state.Clone()

	switch action.Type {
	case ActionSetLoading:
		next.IsLoading = action.Loading

	case ActionSetAuthenticated:
		next.IsAuthenticated = true
		next.User = action.User
		next.Permissions = action.Permissions
		if next.Permissions == nil && action.User != nil {
			next.Permissions = domain.PermissionsForRole(action.User.Role)
		}
		next.SessionInfo = action.Session
		next.LastActivity = action.At
		next.Error = nil

	case ActionSetUnauthenticated:
		next.IsAuthenticated = false
		next.User = nil
		next.Permissions = nil
		next.SessionInfo = nil
		next.Error = action.Error

	case ActionSetError:
		next.Error = action.Error
		next.IsLoading = false

	case ActionClearError:
		next.Error = nil

	case ActionUpdateUser:
		if action.User != nil {
			next.User = action.User
		}

	case ActionUpdatePermissions:
		next.Permissions = append([]string(nil), action.Permissions...)

	case ActionUpdateActivity:
		next.LastActivity = action.At

	case ActionSessionExpired:
		next.IsAuthenticated = false
		next.User = nil
		next.Permissions = nil
		next.SessionInfo = nil
		next.Error = action.Error
		if next.Error == nil {
			next.Error = &domain.AuthError{
				Code:        string(domain.TokenExpired),
				Message:     "Your session has expired. Please log in again.",
				Recoverable: true,
				Timestamp:   action.At,
			}
		}

	case ActionSetInitialized:
		next.IsInitialized = true

	case ActionRefreshSession:
		if next.SessionInfo != nil {
			refreshed := next.SessionInfo.WithExpiry(action.ExpiresAt)
			next.SessionInfo = &refreshed
		}
		next.LastActivity = action.At
		next.Error = nil

	case ActionSetAutoLoginResult:
		next.IsInitialized = true
		if action.AutoLogin != nil && action.AutoLogin.Success {
			next.IsAuthenticated = true
			next.User = action.AutoLogin.User
			if action.AutoLogin.User != nil {
				next.Permissions = domain.PermissionsForRole(action.AutoLogin.User.Role)
			}
			next.SessionInfo = action.Session
			next.LastActivity = action.At
			next.Error = nil
		} else {
			next.IsAuthenticated = false
			next.User = nil
			next.Permissions = nil
			next.SessionInfo = nil
		}
	}

	return next
}

// Listener receives a deep copy of the state after a signature-changing
// dispatch. Copies are safe to retain.
type Listener func(domain.AuthState)

// AuthStateMachine owns the live authentication state. All transitions go
// through Dispatch; all session operations (initialize, login, refresh,
// logout) are driven from here.
type AuthStateMachine struct {
	backend   port.AuthBackend
	autoLogin port.AutoLoginService
	logoutSvc port.LogoutService
	lifecycle *TokenLifecycleManager
	device    port.DeviceIdentity
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.RWMutex
	state      domain.AuthState
	listeners  map[int]Listener
	nextListen int

	// opMu serializes login and refresh so two concurrent operations can
	// never interleave their storage writes and dispatches.
	opMu      sync.Mutex
	initGroup singleflight.Group

	activityInterval time.Duration
	done             chan struct{}
	closeOnce        sync.Once
	wg               sync.WaitGroup
}

// NewAuthStateMachine constructs the state machine and starts its activity
// ticker. Call Close to stop the ticker.
func NewAuthStateMachine(backend port.AuthBackend, autoLogin port.AutoLoginService, logoutSvc port.LogoutService, lifecycle *TokenLifecycleManager, device port.DeviceIdentity, activityInterval time.Duration, log *zap.Logger) *AuthStateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	if activityInterval <= 0 {
		activityInterval = defaultActivityInterval
	}
	m := &AuthStateMachine{
		backend:          backend,
		autoLogin:        autoLogin,
		logoutSvc:        logoutSvc,
		lifecycle:        lifecycle,
		device:           device,
		logger:           log,
		listeners:        make(map[int]Listener),
		activityInterval: activityInterval,
		done:             make(chan struct{}),
	}
	m.now = func() time.Time { return time.Now().UTC() }

	m.wg.Add(1)
	go m.watchSession()

	return m
}

// WithClock overrides the machine clock for deterministic tests.
func (m *AuthStateMachine) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// State returns a deep copy of the current state.
func (m *AuthStateMachine) State() domain.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Subscribe registers a listener and returns its unsubscribe function. The
// listener is invoked only when a dispatch changes the state signature.
func (m *AuthStateMachine) Subscribe(listener Listener) func() {
	m.mu.Lock()
	id := m.nextListen
	m.nextListen++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Dispatch runs the reducer and notifies subscribers when the shallow state
// signature changed. Listeners run outside the state lock.
func (m *AuthStateMachine) Dispatch(action Action) {
	m.mu.Lock()
	before := m.state.Signature()
	m.state = Reduce(m.state, action)
	after := m.state.Signature()

	if before == after {
		m.mu.Unlock()
		return
	}

	snapshot := m.state.Clone()
	notify := make([]Listener, 0, len(m.listeners))
	for _, listener := range m.listeners {
		notify = append(notify, listener)
	}
	m.mu.Unlock()

	for _, listener := range notify {
		listener(snapshot.Clone())
	}
}

// Initialize restores the session at startup. Concurrent callers share a
// single underlying attempt, and a machine that already initialized returns
// immediately.
func (m *AuthStateMachine) Initialize(ctx context.Context) error {
	if m.State().IsInitialized {
		return nil
	}

	_, err, _ := m.initGroup.Do("initialize", func() (any, error) {
		if m.State().IsInitialized {
			return nil, nil
		}

		m.Dispatch(Action{Type: ActionSetLoading, Loading: true})
		defer m.Dispatch(Action{Type: ActionSetLoading, Loading: false})

		result, err := m.autoLogin.AttemptAutoLogin(ctx)
		if err != nil {
			// Initialization completes regardless; the client simply
			// starts signed out.
			m.logger.Warn("auto login failed", zap.Error(err))
			m.Dispatch(Action{Type: ActionSetAutoLoginResult, AutoLogin: &port.AutoLoginResult{}})
			return nil, nil
		}

		action := Action{Type: ActionSetAutoLoginResult, AutoLogin: &result, At: m.now()}
		if result.Success {
			action.Session = m.newSession(ctx, result.Method)
		}
		m.Dispatch(action)

		return nil, nil
	})
	return err
}

// Login authenticates with email and password, persists the issued tokens,
// and transitions to the authenticated state.
func (m *AuthStateMachine) Login(ctx context.Context, email, password string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.Dispatch(Action{Type: ActionSetLoading, Loading: true})
	defer m.Dispatch(Action{Type: ActionSetLoading, Loading: false})

	result, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.logger.Warn("login failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		m.Dispatch(Action{Type: ActionSetError, Error: m.authError(err)})
		return err
	}

	if err := m.lifecycle.StoreTokens(ctx, result.Tokens); err != nil {
		m.Dispatch(Action{Type: ActionSetError, Error: m.authError(err)})
		return err
	}

	user := result.User
	m.Dispatch(Action{
		Type:    ActionSetAuthenticated,
		User:    &user,
		Session: m.sessionForTokens(ctx, domain.LoginMethodPassword, result.Tokens),
		At:      m.now(),
	})
	m.logger.Info("login succeeded", zap.String("user_id", user.ID))

	return nil
}

// Refresh exchanges the stored refresh token and extends the session expiry.
// Only the expiry changes; user, permissions, and session identity stay put.
func (m *AuthStateMachine) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	pair, err := m.lifecycle.RefreshTokens(ctx)
	if err != nil {
		switch Categorize(err) {
		case domain.CategoryTokenExpired, domain.CategoryTokenInvalid:
			m.Dispatch(Action{Type: ActionSessionExpired, At: m.now()})
			m.lifecycle.ClearTokens(ctx)
		default:
			m.Dispatch(Action{Type: ActionSetError, Error: m.authError(err)})
		}
		return err
	}

	m.Dispatch(Action{Type: ActionRefreshSession, ExpiresAt: pair.ExpiresAt, At: m.now()})
	return nil
}

// RecordActivity stamps user activity on the state.
func (m *AuthStateMachine) RecordActivity() {
	m.Dispatch(Action{Type: ActionUpdateActivity, At: m.now()})
}

// ClearError drops the transient error from the state.
func (m *AuthStateMachine) ClearError() {
	m.Dispatch(Action{Type: ActionClearError})
}

// Logout tears down the session. The server call is best-effort: local state
// and stored tokens are always cleared, and Logout never returns an error.
func (m *AuthStateMachine) Logout(ctx context.Context, reason string) error {
	if m.logoutSvc != nil {
		if err := m.logoutSvc.Logout(ctx, reason); err != nil {
			m.logger.Warn("server logout failed", zap.String("reason", reason), zap.Error(err))
		}
	}
	m.localLogout(ctx, nil)
	m.logger.Info("logged out", zap.String("reason", reason))
	return nil
}

// ForceLogout tears down the session without waiting on server-side success.
func (m *AuthStateMachine) ForceLogout(ctx context.Context, reason string) error {
	if m.logoutSvc != nil {
		if err := m.logoutSvc.ForceLogout(ctx, reason); err != nil {
			m.logger.Warn("forced server logout failed", zap.String("reason", reason), zap.Error(err))
		}
	}
	m.localLogout(ctx, &domain.AuthError{
		Code:        "FORCED_LOGOUT",
		Message:     "You have been signed out.",
		Recoverable: false,
		Timestamp:   m.now(),
	})
	m.logger.Info("forced logout", zap.String("reason", reason))
	return nil
}

// Close stops the activity ticker. The machine remains usable for
// dispatches afterwards; only the background expiry watch stops.
func (m *AuthStateMachine) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *AuthStateMachine) localLogout(ctx context.Context, authErr *domain.AuthError) {
	m.Dispatch(Action{Type: ActionSetUnauthenticated, Error: authErr})
	m.lifecycle.ClearTokens(ctx)
}

// watchSession stamps activity on every tick while authenticated and tears
// the session down once it expires, so a client left idle transitions out of
// the authenticated state on its own.
func (m *AuthStateMachine) watchSession() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.activityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			state := m.State()
			if state.SessionInfo != nil && state.SessionInfo.IsExpired(m.now()) {
				m.logger.Info("session expired", zap.String("session_id", state.SessionInfo.SessionID))
				m.Dispatch(Action{Type: ActionSessionExpired, At: m.now()})
				m.lifecycle.ClearTokens(context.Background())
				continue
			}
			if state.IsAuthenticated {
				m.Dispatch(Action{Type: ActionUpdateActivity, At: m.now()})
			}
		}
	}
}

func (m *AuthStateMachine) sessionForTokens(ctx context.Context, method domain.LoginMethod, pair domain.TokenPair) *domain.SessionInfo {
	session := m.newSession(ctx, method)
	session.ExpiresAt = pair.ExpiresAt
	return session
}

func (m *AuthStateMachine) newSession(ctx context.Context, method domain.LoginMethod) *domain.SessionInfo {
	deviceID := ""
	if m.device != nil {
		if id, err := m.device.DeviceID(ctx); err == nil {
			deviceID = id
		}
	}
	now := m.now()
	return &domain.SessionInfo{
		LoginMethod: method,
		LoginTime:   now,
		ExpiresAt:   now.Add(time.Hour),
		DeviceID:    deviceID,
		SessionID:   uuid.NewString(),
	}
}

func (m *AuthStateMachine) authError(err error) *domain.AuthError {
	category := Categorize(err)

	code := string(category)
	var tokenErr *domain.TokenError
	if errors.As(err, &tokenErr) {
		code = string(tokenErr.Code)
	}

	recoverable := true
	switch category {
	case domain.CategoryTokenInvalid, domain.CategoryPermission:
		recoverable = false
	}

	return &domain.AuthError{
		Code:        code,
		Message:     err.Error(),
		Recoverable: recoverable,
		Timestamp:   m.now(),
	}
}
