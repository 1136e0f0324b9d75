package domain

import (
	"testing"
	"time"
)

func TestTokenPairValidate(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	valid := TokenPair{
		AccessToken:      "a",
		RefreshToken:     "r",
		ExpiresAt:        now.Add(time.Hour),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}

	if err := valid.Validate(now); err != nil {
		t.Fatalf("valid pair rejected: %v", err)
	}

	atExpiry := valid
	atExpiry.ExpiresAt = now
	if err := atExpiry.Validate(now); err == nil {
		t.Fatal("pair expiring exactly now accepted")
	}

	missing := valid
	missing.RefreshToken = ""
	if err := missing.Validate(now); err == nil {
		t.Fatal("pair without refresh token accepted")
	}
}

func TestSessionInfoWithExpiry(t *testing.T) {
	loginTime := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	session := SessionInfo{
		LoginMethod: LoginMethodBiometric,
		LoginTime:   loginTime,
		ExpiresAt:   loginTime.Add(time.Hour),
		DeviceID:    "d1",
		SessionID:   "s1",
	}

	extended := session.WithExpiry(loginTime.Add(2 * time.Hour))
	if extended.ExpiresAt != loginTime.Add(2*time.Hour) {
		t.Fatalf("expiry %v", extended.ExpiresAt)
	}
	if extended.LoginTime != loginTime || extended.SessionID != "s1" || extended.LoginMethod != LoginMethodBiometric {
		t.Fatal("WithExpiry changed unrelated fields")
	}
	if session.ExpiresAt != loginTime.Add(time.Hour) {
		t.Fatal("WithExpiry mutated the receiver")
	}
}

func TestAuthStateSignature(t *testing.T) {
	base := AuthState{IsAuthenticated: true, User: &User{ID: "u1"}}

	same := AuthState{IsAuthenticated: true, User: &User{ID: "u1"}, LastActivity: time.Now()}
	if base.Signature() != same.Signature() {
		t.Fatal("activity-only difference changed the signature")
	}

	different := AuthState{IsAuthenticated: true, User: &User{ID: "u2"}}
	if base.Signature() == different.Signature() {
		t.Fatal("user change not reflected in signature")
	}

	withError := base
	withError.Error = &AuthError{Code: "TOKEN_EXPIRED"}
	if base.Signature() == withError.Signature() {
		t.Fatal("error change not reflected in signature")
	}
}

func TestAuthStateCloneIsDeep(t *testing.T) {
	state := AuthState{
		User:        &User{ID: "u1"},
		Permissions: []string{"read"},
		SessionInfo: &SessionInfo{SessionID: "s1"},
		Error:       &AuthError{Code: "x"},
	}

	clone := state.Clone()
	clone.User.ID = "changed"
	clone.Permissions[0] = "changed"
	clone.SessionInfo.SessionID = "changed"
	clone.Error.Code = "changed"

	if state.User.ID != "u1" || state.Permissions[0] != "read" ||
		state.SessionInfo.SessionID != "s1" || state.Error.Code != "x" {
		t.Fatal("clone aliases the original")
	}
}

func TestPermissionsForRole(t *testing.T) {
	if got := PermissionsForRole("admin"); len(got) != 4 {
		t.Fatalf("admin permissions %v", got)
	}
	if got := PermissionsForRole("unknown-role"); len(got) != 1 || got[0] != PermissionRead {
		t.Fatalf("unknown role permissions %v", got)
	}

	// Returned slices must not share backing storage with the table.
	grants := PermissionsForRole("user")
	grants[0] = "mutated"
	if got := PermissionsForRole("user"); got[0] != PermissionRead {
		t.Fatal("permission table was mutated through a returned slice")
	}
}
