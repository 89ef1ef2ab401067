package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"vidsense/config"
	"vidsense/models"
	"vidsense/repositories"
	"vidsense/utils"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Storage: config.StorageConfig{
			BasePath:    t.TempDir(),
			MaxFileSize: 1 << 20,
			AllowedTypes: []string{
				"video/mp4", "video/mpeg", "video/quicktime", "video/x-msvideo",
			},
		},
		Processing: config.ProcessingConfig{TickMs: 1, ProgressStep: 10, WorkerCount: 1, QueueSize: 8},
		Pagination: config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 1000},
	}
}

func assertAppError(t *testing.T, err error, wantCode int) *AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with http code %d, got nil", wantCode)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.HTTPCode != wantCode {
		t.Fatalf("expected http code %d, got %d (%s)", wantCode, appErr.HTTPCode, appErr.Message)
	}
	return appErr
}

func TestRegisterAndLogin(t *testing.T) {
	setTestConfig(t)
	svc := NewAuthService(repositories.MemoryTxManager{}, repositories.NewMemoryUserRepository())
	ctx := context.Background()

	out, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     models.RoleViewer,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if out.Token == "" {
		t.Fatal("register returned empty token")
	}
	if out.User.Role != models.RoleViewer {
		t.Fatalf("expected role viewer, got %s", out.User.Role)
	}
	if out.User.PasswordHash == "secret123" {
		t.Fatal("password stored in plaintext")
	}

	claims, err := utils.ParseToken(out.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != out.User.ID || claims.Role != models.RoleViewer {
		t.Fatalf("token claims mismatch: %+v", claims)
	}

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.User.ID != out.User.ID {
		t.Fatalf("login returned user %s, expected %s", login.User.ID, out.User.ID)
	}

	me, err := svc.GetMe(ctx, out.User.ID)
	if err != nil {
		t.Fatalf("get me failed: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Fatalf("get me returned email %s", me.Email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setTestConfig(t)
	users := repositories.NewMemoryUserRepository()
	svc := NewAuthService(repositories.MemoryTxManager{}, users)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err = svc.Register(ctx, RegisterInput{
		Username: "impostor", Email: "alice@example.com", Password: "other456",
	})
	assertAppError(t, err, http.StatusBadRequest)

	// The original account is untouched.
	kept, err := users.GetByEmail(ctx, nil, "alice@example.com")
	if err != nil {
		t.Fatalf("lookup after duplicate failed: %v", err)
	}
	if kept.ID != first.User.ID || kept.Username != "alice" {
		t.Fatalf("duplicate register mutated the existing account: %+v", kept)
	}
}

func TestRegisterRoleHandling(t *testing.T) {
	setTestConfig(t)
	svc := NewAuthService(repositories.MemoryTxManager{}, repositories.NewMemoryUserRepository())
	ctx := context.Background()

	out, err := svc.Register(ctx, RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register without role failed: %v", err)
	}
	if out.User.Role != models.RoleEditor {
		t.Fatalf("expected default role editor, got %s", out.User.Role)
	}

	_, err = svc.Register(ctx, RegisterInput{
		Username: "eve", Email: "eve@example.com", Password: "secret123", Role: "superuser",
	})
	assertAppError(t, err, http.StatusBadRequest)
}

func TestLoginInvalidCredentials(t *testing.T) {
	setTestConfig(t)
	svc := NewAuthService(repositories.MemoryTxManager{}, repositories.NewMemoryUserRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	wrongPass := assertAppError(t, err, http.StatusUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret123"})
	unknown := assertAppError(t, err, http.StatusUnauthorized)

	// Same message either way so the response does not reveal which
	// part was wrong.
	if wrongPass.Message != unknown.Message {
		t.Fatalf("credential errors differ: %q vs %q", wrongPass.Message, unknown.Message)
	}
}

func TestGetMeUnknownUser(t *testing.T) {
	setTestConfig(t)
	svc := NewAuthService(repositories.MemoryTxManager{}, repositories.NewMemoryUserRepository())

	_, err := svc.GetMe(context.Background(), "missing-id")
	assertAppError(t, err, http.StatusUnauthorized)
}
