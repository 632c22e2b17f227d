package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenloop/carbon-market/internal/auth"
	"github.com/greenloop/carbon-market/internal/models"
	repo "github.com/greenloop/carbon-market/internal/repository"
)

type UserService struct {
	users repo.Users
	tm    *auth.TokenManager
}

func NewUserService(r repo.Users, tm *auth.TokenManager) *UserService {
	return &UserService{users: r, tm: tm}
}

func (s *UserService) Register(ctx context.Context, username, email, password string, role models.Role) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: role}
	if err := u.Validate(); err != nil {
		return models.User{}, fmt.Errorf("%w: %s", models.ErrValidation, err)
	}
	if len(password) < 8 {
		return models.User{}, fmt.Errorf("%w: password too short", models.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return s.users.Create(ctx, u.Username, u.Email, hash, u.Role)
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, models.ErrUnauthorized
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, models.ErrUnauthorized
	}
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, string(u.Role))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) Refresh(refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, models.ErrUnauthorized
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) { return s.users.List(ctx) }
