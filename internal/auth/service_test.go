package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/users"
	pkgauth "github.com/stockflowhq/stockflow-backend/pkg/auth"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/enums"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "stockflow-test",
		ExpirationMinutes: 30,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func newFixture(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(ServiceParams{
		UserRepo:  users.NewRepository(conn),
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, email, password string, active bool) models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Tester",
		Locale:       "en",
		Role:         enums.UserRoleManager,
		IsActive:     active,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginMintsParsableToken(t *testing.T) {
	t.Parallel()

	svc, conn := newFixture(t)
	ctx := context.Background()
	seeded := seedUser(t, conn, "ops@example.test", "hunter22", true)

	resp, err := svc.Login(ctx, LoginRequest{Email: " Ops@Example.Test ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.ID != seeded.ID {
		t.Fatalf("wrong user in response")
	}
	if resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login recorded")
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Fatalf("token already expired: %v", resp.ExpiresAt)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != seeded.ID || claims.Role != enums.UserRoleManager {
		t.Fatalf("unexpected claims %+v", claims)
	}

	var stored models.User
	if err := conn.First(&stored, "id = ?", seeded.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatalf("last_login_at not persisted")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, conn := newFixture(t)
	ctx := context.Background()
	seedUser(t, conn, "ops@example.test", "hunter22", true)
	seedUser(t, conn, "gone@example.test", "hunter22", false)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "ops@example.test", Password: "nope"}},
		{"unknown email", LoginRequest{Email: "nobody@example.test", Password: "hunter22"}},
		{"inactive user", LoginRequest{Email: "gone@example.test", Password: "hunter22"}},
		{"empty password", LoginRequest{Email: "ops@example.test"}},
	}
	for _, tc := range cases {
		_, err := svc.Login(ctx, tc.req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", tc.name, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("%s: leaked failure detail %q", tc.name, typed.Message())
		}
	}
}
