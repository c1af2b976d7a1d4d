//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
)

type IAuthService interface {
	Register(req auth.RegisterRequest, statusLine string) (domain.User, string, error)
	Login(email, password string) (domain.User, string, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	issuer *auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Register validates the request, hashes the password and persists the
// account, then issues the initial session token.
func (s *AuthService) Register(req auth.RegisterRequest, statusLine string) (domain.User, string, error) {
	// Validate before any expensive cryptographic work.
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(domain.User{
		Name:         req.Name,
		Email:        req.Email,
		Number:       req.Number,
		StatusLine:   statusLine,
		PasswordHash: hash,
	})
	if err != nil {
		return domain.User{}, "", err // propagates ErrUserAlreadyExists
	}

	token, err := s.issuer.Sign(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, token, nil
}

// Login verifies credentials and issues a session token. Every failure maps
// to the same generic error to prevent account enumeration.
func (s *AuthService) Login(email, password string) (domain.User, string, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.issuer.Sign(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user, token, nil
}
