package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-secret", logger.InitLogger("auth-test", logger.LevelError))
}

func TestRoleCheck_RoundTrip(t *testing.T) {
	svc := newTestTokenService()

	user := &models.User{ID: uuid.New(), Role: types.RoleDriver}
	token, err := svc.Sign(user, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := svc.RoleCheck(context.Background(), token)
	if err != nil {
		t.Fatalf("role check: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("user id: got %s, want %s", got.ID, user.ID)
	}
	if got.Role != types.RoleDriver {
		t.Fatalf("role: got %s, want %s", got.Role, types.RoleDriver)
	}
}

func TestRoleCheck_WrongSecret(t *testing.T) {
	svc := newTestTokenService()
	other := NewTokenService("another-secret", logger.InitLogger("auth-test", logger.LevelError))

	token, err := other.Sign(&models.User{ID: uuid.New(), Role: types.RoleUser}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.RoleCheck(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRoleCheck_Expired(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.Sign(&models.User{ID: uuid.New(), Role: types.RoleUser}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = svc.RoleCheck(context.Background(), token)
	if err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestRoleCheck_Garbage(t *testing.T) {
	svc := newTestTokenService()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.RoleCheck(context.Background(), token); err == nil {
			t.Fatalf("token %q must be rejected", token)
		}
	}
}

func TestRoleCheck_UnknownRole(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.Sign(&models.User{ID: uuid.New(), Role: "SUPERVISOR"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.RoleCheck(context.Background(), token); err == nil {
		t.Fatal("unknown role must be rejected")
	}
}
