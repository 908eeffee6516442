// Package service implements account registration and credential-based
// login issuing JWT access tokens.
package service

import (
	"context"
	"strings"

	"vetclinic_backend/internal/auth/repository"
	"vetclinic_backend/internal/auth/token"
	"vetclinic_backend/internal/auth/transport"
	"vetclinic_backend/platform/apperr"
	"vetclinic_backend/platform/config"
	"vetclinic_backend/platform/phone"
	"vetclinic_backend/platform/sanitize"

	"golang.org/x/crypto/bcrypt"
)

const msgInvalidCredentials = "invalid credentials"

// User types stored on accounts. They double as role names in the token.
const (
	UserTypePatient      = "PATIENT"
	UserTypeVeterinarian = "VETERINARIAN"
	UserTypeAdmin        = "ADMIN"
)

type Service struct {
	repo repository.Store
	cfg  config.AuthServiceConfig
}

func New(repo repository.Store, cfg config.AuthServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Register creates a new account and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (*transport.AuthResponse, error) {
	if !phone.IsValid(req.Phone) {
		return nil, apperr.Validation("invalid phone number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.CreateUser(ctx,
		email,
		string(hash),
		sanitize.Text(req.FullName),
		phone.NormalizeE164(req.Phone),
		req.UserType,
	)
	if err != nil {
		return nil, err
	}

	return s.respond(user)
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (*transport.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	return s.respond(user)
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID int64) (*transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := fromUser(user)
	return &resp, nil
}

func (s *Service) respond(user *repository.User) (*transport.AuthResponse, error) {
	accessToken, err := token.SignAccess(user.ID, user.UserType, s.cfg.GetAccessTokenTTL(), s.cfg.GetJWTAccessSecret())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to sign access token", err)
	}

	return &transport.AuthResponse{
		AccessToken: accessToken,
		User:        fromUser(user),
	}, nil
}

func fromUser(user *repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		UserType:  user.UserType,
		CreatedAt: user.CreatedAt,
	}
}
