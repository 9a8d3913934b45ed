package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/pkg/auth"
)

type fakeAuthRepo struct {
	sessions map[string]*domain.Session
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeAuthRepo) CreateSession(ctx context.Context, session domain.Session) error {
	f.sessions[session.ID] = &session
	return nil
}

func (f *fakeAuthRepo) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	for _, s := range f.sessions {
		if s.RefreshToken == refreshToken {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAuthRepo) DeleteSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeAuthRepo) DeleteSessionsByUserID(ctx context.Context, userID int64) error {
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

var testJWTConfig = config.JWTConfig{
	SigningKey:      "test-signing-key",
	AccessTokenTTL:  15 * time.Minute,
	RefreshTokenTTL: 720 * time.Hour,
}

func newAuthTestService(t *testing.T, users ...*domain.User) (*AuthServiceImpl, *fakeAuthRepo, *fakeUserRepo) {
	t.Helper()
	authRepo := newFakeAuthRepo()
	userRepo := newFakeUserRepo(users...)
	return NewAuthService(authRepo, userRepo, testJWTConfig, zap.NewNop()), authRepo, userRepo
}

func activeUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("ошибка хеширования пароля: %v", err)
	}
	return &domain.User{
		ID:           1,
		Name:         "Иван Петров",
		Email:        "ivan@example.com",
		Phone:        "+79161234567",
		PasswordHash: hash,
		Role:         domain.UserRolePatient,
		IsActive:     true,
	}
}

func TestAuthRegister_Success(t *testing.T) {
	svc, _, users := newAuthTestService(t)

	id, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name:     "Иван Петров",
		Email:    "ivan@example.com",
		Phone:    "8 (916) 123-45-67",
		Password: "secret123",
		Role:     domain.UserRolePatient,
	})
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	created := users.users[id]
	if created == nil {
		t.Fatal("пользователь не сохранен")
	}
	if created.Phone != "+79161234567" {
		t.Fatalf("телефон не нормализован: %s", created.Phone)
	}
}

func TestAuthRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthTestService(t, activeUser(t, "secret123"))

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name:     "Другой",
		Email:    "ivan@example.com",
		Phone:    "+79990001122",
		Password: "secret123",
		Role:     domain.UserRolePatient,
	})
	if err == nil {
		t.Fatal("ожидалась ошибка повторного email")
	}
}

func TestAuthRegister_BadInput(t *testing.T) {
	svc, _, _ := newAuthTestService(t)

	if _, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Имя", Email: "не-email", Phone: "+79161234567", Password: "secret123", Role: domain.UserRolePatient,
	}); err == nil {
		t.Fatal("ожидалась ошибка для некорректного email")
	}

	if _, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Имя", Email: "ok@example.com", Phone: "123", Password: "secret123", Role: domain.UserRolePatient,
	}); err == nil {
		t.Fatal("ожидалась ошибка для некорректного телефона")
	}
}

func TestAuthLoginAndParseToken(t *testing.T) {
	svc, sessions, _ := newAuthTestService(t, activeUser(t, "secret123"))

	tokens, err := svc.Login(context.Background(), domain.LoginRequest{
		Login:    "ivan@example.com",
		Password: "secret123",
	}, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("токены не выданы")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("ожидалась одна сессия, получено %d", len(sessions.sessions))
	}

	userID, role, err := svc.ParseToken(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("ошибка разбора токена: %v", err)
	}
	if userID != 1 || role != domain.UserRolePatient {
		t.Fatalf("неожиданные данные токена: user_id=%d role=%s", userID, role)
	}
}

func TestAuthLogin_ByPhone(t *testing.T) {
	svc, _, _ := newAuthTestService(t, activeUser(t, "secret123"))

	if _, err := svc.Login(context.Background(), domain.LoginRequest{
		Login:    "+79161234567",
		Password: "secret123",
	}, "", ""); err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newAuthTestService(t, activeUser(t, "secret123"))

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Login:    "ivan@example.com",
		Password: "wrongpass",
	}, "", "")
	if err == nil {
		t.Fatal("ожидалась ошибка неверного пароля")
	}
}

func TestAuthLogin_DeactivatedUser(t *testing.T) {
	user := activeUser(t, "secret123")
	user.IsActive = false
	svc, _, _ := newAuthTestService(t, user)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Login:    "ivan@example.com",
		Password: "secret123",
	}, "", "")
	if err == nil {
		t.Fatal("ожидалась ошибка деактивированного аккаунта")
	}
}

func TestAuthRefreshTokens_RotatesSession(t *testing.T) {
	svc, sessions, _ := newAuthTestService(t, activeUser(t, "secret123"))

	tokens, err := svc.Login(context.Background(), domain.LoginRequest{
		Login: "ivan@example.com", Password: "secret123",
	}, "", "")
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	refreshed, err := svc.RefreshTokens(context.Background(), tokens.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("refresh token должен был смениться")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("старая сессия должна быть удалена, сессий %d", len(sessions.sessions))
	}

	// Старый токен больше не принимается.
	if _, err := svc.RefreshTokens(context.Background(), tokens.RefreshToken, "", ""); err == nil {
		t.Fatal("ожидалась ошибка для отозванного токена")
	}
}

func TestAuthRefreshTokens_Expired(t *testing.T) {
	svc, sessions, _ := newAuthTestService(t, activeUser(t, "secret123"))

	sessions.sessions["expired"] = &domain.Session{
		ID:           "expired",
		UserID:       1,
		RefreshToken: "old-token",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}

	_, err := svc.RefreshTokens(context.Background(), "old-token", "", "")
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("ожидалась ErrSessionExpired, получено %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("просроченная сессия должна быть удалена")
	}
}

func TestAuthLogout(t *testing.T) {
	svc, sessions, _ := newAuthTestService(t, activeUser(t, "secret123"))

	tokens, err := svc.Login(context.Background(), domain.LoginRequest{
		Login: "ivan@example.com", Password: "secret123",
	}, "", "")
	if err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}

	if err := svc.Logout(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("не ожидалась ошибка: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("сессия должна быть удалена при выходе")
	}

	// Повторный выход с тем же токеном не ошибка.
	if err := svc.Logout(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("повторный выход должен быть тихим: %v", err)
	}
}
