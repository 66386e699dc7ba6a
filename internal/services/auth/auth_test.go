package auth

import (
	"testing"
	"time"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/config"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		SecretKey:       "test-secret",
		SessionDuration: time.Hour,
	}
	return NewService(cfg, storage.NewUserRepository(db), storage.NewSessionRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register(RegisterInput{
		Email:    "asha@example.com",
		Password: "first-password",
		Name:     "Asha",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "first-password" {
		t.Error("password stored in plaintext")
	}

	result, err := svc.Login(LoginInput{Email: "asha@example.com", Password: "first-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}

	validated, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if validated == nil || validated.ID != user.ID {
		t.Error("token did not resolve to the registered user")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	input := RegisterInput{Email: "asha@example.com", Password: "first-password", Name: "Asha"}
	if _, err := svc.Register(input); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(input); err != ErrEmailExists {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register(RegisterInput{Email: "asha@example.com", Password: "first-password", Name: "Asha"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(LoginInput{Email: "asha@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(LoginInput{Email: "nobody@example.com", Password: "first-password"}); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestChangePassword_PersistsNewHash(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register(RegisterInput{
		Email:    "asha@example.com",
		Password: "first-password",
		Name:     "Asha",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "first-password", "second-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	// The new credential must survive a round trip through storage.
	if _, err := svc.Login(LoginInput{Email: "asha@example.com", Password: "second-password"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := svc.Login(LoginInput{Email: "asha@example.com", Password: "first-password"}); err != ErrInvalidCredentials {
		t.Errorf("old password still accepted: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register(RegisterInput{
		Email:    "asha@example.com",
		Password: "first-password",
		Name:     "Asha",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrong", "second-password"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
