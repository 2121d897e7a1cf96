// Package auth manages accounts, passwords and access tokens.
package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type Service struct {
	users  storage.Users
	tokens *Tokens
}

func NewService(users storage.Users, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates a regular user and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || len(req.Password) < 6 {
		return nil, "", apperr.Validation("Name, email and a password of at least 6 characters are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Internal("hash password", err)
	}

	user := &models.User{
		ID:       models.NewID(),
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, "", apperr.Conflict("Email already registered")
		}
		return nil, "", apperr.Internal("create user", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", apperr.Internal("issue token", err)
	}
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", apperr.Unauthorized("Invalid credentials")
		}
		return nil, "", apperr.Internal("find user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, "", apperr.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", apperr.Internal("issue token", err)
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to the current state of its user, so
// role changes apply without reissuing tokens.
func (s *Service) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("User no longer exists")
		}
		return nil, apperr.Internal("load user", err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !models.ValidID(id) {
		return nil, apperr.Validation("Invalid user ID")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("load user", err)
	}
	return user, nil
}

// MakeAdmin grants the admin role to the user with email.
func (s *Service) MakeAdmin(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal("find user", err)
	}
	updated, err := s.users.UpdateUser(ctx, user.ID, func(u *models.User) error {
		u.Role = models.RoleAdmin
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("update user", err)
	}
	return updated, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
