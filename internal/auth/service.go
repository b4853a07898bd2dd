package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const MinNameLength = 2

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrRegistrationClosed = errors.New("registration is disabled")
	ErrEmailTaken         = library.Conflict("Email already registered")
)

// UserStore is the persistence contract for admin accounts.
type UserStore interface {
	Create(ctx context.Context, user *entities.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*entities.AdminUser, error)
	GetByID(ctx context.Context, id uint) (*entities.AdminUser, error)
	Count(ctx context.Context) (int64, error)
}

// RegisterInput is the payload for creating an admin account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Service handles admin registration and credential checks.
type Service struct {
	users  UserStore
	hasher *PasswordHasher

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService creates a new authentication service.
func NewService(users UserStore, cfg config.Auth) *Service {
	return &Service{
		users:  users,
		hasher: NewPasswordHasher(cfg.BcryptCost),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates the input and creates a new admin user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entities.AdminUser, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if email == "" || in.Password == "" || name == "" {
		return nil, library.NewValidationError("All fields are required: email, password, name")
	}

	var v library.Validator
	for _, msg := range ValidatePasswordStrength(in.Password).Errors {
		v.Check(false, msg)
	}
	v.Check(len(email) <= 254 && emailPattern.MatchString(email), "Please enter a valid email address")
	v.Check(utf8.RuneCountInString(name) >= MinNameLength, "Name must be at least 2 characters long")
	v.Check(utf8.RuneCountInString(name) <= 255, "Name must be at most 255 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, library.ErrNotFound):
		return nil, &library.ServiceError{Op: "register", Err: err}
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, &library.ServiceError{Op: "register", Err: err}
	}

	user := &entities.AdminUser{
		Email:        email,
		Name:         name,
		PasswordHash: digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race against a concurrent registration for the same email.
		if errors.Is(err, library.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, &library.ServiceError{Op: "register", Err: err}
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// An unknown email and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entities.AdminUser, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			s.burnComparison(password)
			return nil, ErrInvalidCredentials
		}
		return nil, &library.ServiceError{Op: "log in", Err: err}
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, &library.ServiceError{Op: "log in", Err: err}
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// burnComparison spends the same bcrypt work as a real check.
func (s *Service) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("librarian-timing-placeholder")
	})
	_, _ = s.hasher.Verify(password, s.dummyDigest)
}

// GetUser returns an admin user by ID.
func (s *Service) GetUser(ctx context.Context, id uint) (*entities.AdminUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return user, nil
}

// HasUsers reports whether at least one admin account exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Principal converts a user into the identity passed to library operations.
func Principal(user *entities.AdminUser) library.Principal {
	if user == nil {
		return library.Principal{}
	}
	return library.Principal{UserID: user.ID, Email: user.Email, Name: user.Name}
}
