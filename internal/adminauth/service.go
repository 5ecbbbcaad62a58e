package adminauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/auth"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/security"
)

type adminsRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	Create(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error)
}

// Service authenticates administrators and issues their session tokens.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.AdminUser, error)
}

// LoginResult carries the session token and the admin's public profile.
type LoginResult struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	AdminID     uuid.UUID `json:"adminId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
}

// CreateAdminInput provisions a new administrator account.
type CreateAdminInput struct {
	Email       string
	Password    string
	DisplayName string
}

// ServiceParams configure the admin auth service.
type ServiceParams struct {
	Repo     adminsRepository
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Now      func() time.Time
}

type service struct {
	repo     adminsRepository
	jwt      config.JWTConfig
	password config.PasswordConfig
	now      func() time.Time
}

// NewService builds the admin auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("admin repository required")
	}
	if params.JWT.Secret == "" {
		return nil, errors.New("jwt config required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		jwt:      params.JWT,
		password: params.Password,
		now:      params.Now,
	}, nil
}

// Login verifies credentials and mints a session token. Unknown emails and
// wrong passwords return the same error so the endpoint does not leak which
// accounts exist.
func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	admin, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
	}
	if !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now().UTC()
	token, err := auth.MintAdminToken(s.jwt, now, admin.ID, admin.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint admin token")
	}

	return &LoginResult{
		Token:       token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.AdminExpirationMinutes) * time.Minute),
		AdminID:     admin.ID,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
	}, nil
}

// CreateAdmin provisions an account with an argon2id password hash.
func (s *service) CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.AdminUser, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 12 characters")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	admin, err := s.repo.Create(ctx, &models.AdminUser{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		IsActive:     true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin")
	}
	return admin, nil
}
