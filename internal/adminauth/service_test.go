package adminauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/auth"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
)

type stubAdminRepo struct {
	admins map[string]*models.AdminUser
}

func newStubAdminRepo() *stubAdminRepo {
	return &stubAdminRepo{admins: map[string]*models.AdminUser{}}
}

func (s *stubAdminRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	admin, ok := s.admins[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return admin, nil
}

func (s *stubAdminRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	for _, admin := range s.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAdminRepo) Create(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error) {
	admin.ID = uuid.New()
	s.admins[admin.Email] = admin
	return admin, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-test-secret-test-secret",
		Issuer:                 "vantagepos-test",
		AdminExpirationMinutes: 480,
	}
}

// Fast argon2 parameters keep the test suite quick.
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAuthService(t *testing.T, repo *stubAdminRepo, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		JWT:      testJWTConfig(),
		Password: testPasswordConfig(),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateAdminAndLogin(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	repo := newStubAdminRepo()
	svc := newAuthService(t, repo, now)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email:       "Ops@VantagePOS.example",
		Password:    "correct horse battery",
		DisplayName: "Ops",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.Email != "ops@vantagepos.example" {
		t.Fatalf("email not normalized: %s", admin.Email)
	}
	if strings.Contains(admin.PasswordHash, "correct horse") {
		t.Fatal("password stored in the clear")
	}
	if !strings.HasPrefix(admin.PasswordHash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", admin.PasswordHash)
	}

	result, err := svc.Login(ctx, "OPS@vantagepos.example", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AdminID != admin.ID {
		t.Fatalf("adminId = %s, want %s", result.AdminID, admin.ID)
	}
	if !result.ExpiresAt.Equal(now.Add(480 * time.Minute)) {
		t.Fatalf("expiresAt = %s", result.ExpiresAt)
	}

	claims, err := auth.ParseAdminToken(testJWTConfig(), result.Token)
	if err != nil {
		t.Fatalf("ParseAdminToken: %v", err)
	}
	if claims.AdminID != admin.ID {
		t.Fatalf("token adminId = %s", claims.AdminID)
	}
}

func TestLoginDoesNotLeakWhichPartFailed(t *testing.T) {
	now := time.Now().UTC()
	repo := newStubAdminRepo()
	svc := newAuthService(t, repo, now)
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email:    "ops@vantagepos.example",
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@vantagepos.example", "whatever password")
	_, wrongErr := svc.Login(ctx, "ops@vantagepos.example", "wrong password entirely")

	if !pkgerrors.Is(unknownErr, pkgerrors.CodeUnauthorized) || !pkgerrors.Is(wrongErr, pkgerrors.CodeUnauthorized) {
		t.Fatalf("errors = %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginRejectsInactiveAdmin(t *testing.T) {
	now := time.Now().UTC()
	repo := newStubAdminRepo()
	svc := newAuthService(t, repo, now)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminInput{
		Email:    "ops@vantagepos.example",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	admin.IsActive = false

	if _, err := svc.Login(ctx, admin.Email, "correct horse battery"); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCreateAdminRejectsShortPassword(t *testing.T) {
	svc := newAuthService(t, newStubAdminRepo(), time.Now().UTC())

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:    "ops@vantagepos.example",
		Password: "short",
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
