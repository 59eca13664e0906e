package jwt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"safetrail/internal/domain/user"
)

const testSecret = "unit-test-secret"

func authFrame(t *testing.T, token string) []byte {
	t.Helper()
	b, err := json.Marshal(ClientAuthMessage{Type: "auth", Token: token})
	if err != nil {
		t.Fatalf("marshal auth frame: %v", err)
	}
	return b
}

func TestValidateWSAuthHappyPath(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, err := mgr.IssueUserToken("tourist-1", user.RoleTourist)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	res, err := ValidateWSAuth(authFrame(t, "Bearer "+token), mgr, user.RoleTourist)
	if err != nil {
		t.Fatalf("ValidateWSAuth: %v", err)
	}
	if res.Claims.Subject != "tourist-1" || res.Claims.Role != user.RoleTourist {
		t.Errorf("claims = %+v", res.Claims)
	}
}

func TestValidateWSAuthRejectsWrongRole(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, err := mgr.IssueUserToken("authority-1", user.RoleAuthority)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	_, err = ValidateWSAuth(authFrame(t, "Bearer "+token), mgr, user.RoleTourist)
	if !errors.Is(err, ErrRoleForbidden) {
		t.Errorf("err = %v, want ErrRoleForbidden", err)
	}
}

func TestValidateWSAuthRejectsBadWrapping(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, _ := mgr.IssueUserToken("tourist-1", user.RoleTourist)

	_, err := ValidateWSAuth(authFrame(t, token), mgr, user.RoleTourist)
	if !errors.Is(err, ErrBadTokenWrap) {
		t.Errorf("err = %v, want ErrBadTokenWrap", err)
	}
}

func TestValidateWSAuthRejectsWrongType(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	frame, _ := json.Marshal(ClientAuthMessage{Type: "register", Token: "Bearer x"})

	_, err := ValidateWSAuth(frame, mgr, user.RoleTourist)
	if !errors.Is(err, ErrBadAuthMsg) {
		t.Errorf("err = %v, want ErrBadAuthMsg", err)
	}
}

func TestValidateWSAuthRejectsForeignSecret(t *testing.T) {
	other := NewManager("some-other-secret", time.Hour)
	token, _, _ := other.IssueUserToken("tourist-1", user.RoleTourist)

	mgr := NewManager(testSecret, time.Hour)
	if _, err := ValidateWSAuth(authFrame(t, "Bearer "+token), mgr, user.RoleTourist); err == nil {
		t.Error("expected signature validation to fail")
	}
}

func TestValidateWSAuthRejectsExpiredToken(t *testing.T) {
	mgr := NewManager(testSecret, -time.Minute)
	token, _, _ := mgr.IssueUserToken("tourist-1", user.RoleTourist)

	if _, err := ValidateWSAuth(authFrame(t, "Bearer "+token), mgr, user.RoleTourist); err == nil {
		t.Error("expected expired token to fail")
	}
}
