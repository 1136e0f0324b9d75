package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/security"
)

type fakeStorage struct {
	mu          sync.Mutex
	items       map[string]string
	getErr      map[string]error
	setErr      map[string]error
	deleteErr   map[string]error
	unavailable bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		items:     make(map[string]string),
		getErr:    make(map[string]error),
		setErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (s *fakeStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setErr[key]; err != nil {
		return err
	}
	s.items[key] = value
	return nil
}

func (s *fakeStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[key]; err != nil {
		return "", false, err
	}
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *fakeStorage) DeleteItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[key]; err != nil {
		return err
	}
	delete(s.items, key)
	return nil
}

func (s *fakeStorage) Available(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable
}

func (s *fakeStorage) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

//

type fakeBackend struct {
	loginFn   func(ctx context.Context, email, password string) (*port.LoginResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	reauthFn  func(ctx context.Context, password string) error
}

func (b *fakeBackend) Login(ctx context.Context, email, password string) (*port.LoginResult, error) {
	if b.loginFn == nil {
		return nil, errors.New("unexpected call: Login")
	}
	return b.loginFn(ctx, email, password)
}

func (b *fakeBackend) RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if b.refreshFn == nil {
		return domain.TokenPair{}, errors.New("unexpected call: RefreshTokens")
	}
	return b.refreshFn(ctx, refreshToken)
}

func (b *fakeBackend) ReauthenticateWithPassword(ctx context.Context, password string) error {
	if b.reauthFn == nil {
		return errors.New("unexpected call: ReauthenticateWithPassword")
	}
	return b.reauthFn(ctx, password)
}

func (b *fakeBackend) AuthenticateWithBiometric(context.Context) error {
	return errors.New("unexpected call: AuthenticateWithBiometric")
}

func (b *fakeBackend) EnableBiometric(context.Context) (bool, error) {
	return false, errors.New("unexpected call: EnableBiometric")
}

func (b *fakeBackend) DisableBiometric(context.Context) (bool, error) {
	return false, errors.New("unexpected call: DisableBiometric")
}

//

type fakeAutoLogin struct {
	mu     sync.Mutex
	calls  int
	result port.AutoLoginResult
	err    error
}

func (a *fakeAutoLogin) AttemptAutoLogin(context.Context) (port.AutoLoginResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.result, a.err
}

func (a *fakeAutoLogin) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

//

type fakeLogout struct {
	mu        sync.Mutex
	logoutErr error
	forceErr  error
	reasons   []string
}

func (l *fakeLogout) Logout(_ context.Context, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons = append(l.reasons, reason)
	return l.logoutErr
}

func (l *fakeLogout) ForceLogout(_ context.Context, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons = append(l.reasons, "force:"+reason)
	return l.forceErr
}

//

type fakeDevice struct {
	id  string
	err error
}

func (d *fakeDevice) DeviceID(context.Context) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.id, nil
}

//

type fakeBiometric struct {
	available bool
	err       error
	calls     int
}

func (b *fakeBiometric) Available(context.Context) bool {
	return b.available
}

func (b *fakeBiometric) Authenticate(context.Context, string) error {
	b.calls++
	return b.err
}

//

type fakeAccountAPI struct {
	status      domain.AccountStatus
	statusErr   error
	statusCalls int
	requestErr  error
	requests    []domain.DeletionRequest
	confirmedID string
	confirmErr  error
	cancelled   []string
	cancelErr   error
	userData    map[string]any
	userDataErr error
	deleteErr   error
	deleted     []string
}

func (a *fakeAccountAPI) Status(context.Context, string) (domain.AccountStatus, error) {
	a.statusCalls++
	return a.status, a.statusErr
}

func (a *fakeAccountAPI) RequestDeletion(_ context.Context, request domain.DeletionRequest) error {
	if a.requestErr != nil {
		return a.requestErr
	}
	a.requests = append(a.requests, request)
	return nil
}

func (a *fakeAccountAPI) ConfirmDeletion(context.Context, string) (string, error) {
	return a.confirmedID, a.confirmErr
}

func (a *fakeAccountAPI) CancelDeletion(_ context.Context, userID string) error {
	if a.cancelErr != nil {
		return a.cancelErr
	}
	a.cancelled = append(a.cancelled, userID)
	return nil
}

func (a *fakeAccountAPI) UserData(context.Context, string) (map[string]any, error) {
	return a.userData, a.userDataErr
}

func (a *fakeAccountAPI) DeleteUserData(_ context.Context, userID string) error {
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, userID)
	return nil
}

//

type fakePrompter struct {
	answers   []bool
	promptErr error
	password  string
	pwErr     error
	confirmed int
	block     chan struct{}
}

func (p *fakePrompter) Confirm(_ context.Context, step int, _ string) (bool, error) {
	if p.block != nil {
		<-p.block
	}
	if p.promptErr != nil {
		return false, p.promptErr
	}
	answer := true
	if p.confirmed < len(p.answers) {
		answer = p.answers[p.confirmed]
	}
	p.confirmed++
	return answer, nil
}

func (p *fakePrompter) Password(context.Context, string) (string, error) {
	return p.password, p.pwErr
}

//

func testCipher() *security.Cipher {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		panic(err)
	}
	return cipher
}

// makeToken builds an unsigned JWT with the given claims. The lifecycle
// manager never verifies signatures, so a fixed dummy signature suffices.
func makeToken(claims map[string]any) string {
	header, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload, _ := json.Marshal(claims)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("sig"))
}

func tokenWithExpiry(userID string, issuedAt, expiresAt time.Time) string {
	return makeToken(map[string]any{
		"uid": userID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	})
}
