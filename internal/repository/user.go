package repository

import (
	"context"
	"errors"
	"time"

	"auth-template/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column would be violated.
	ErrDuplicate = errors.New("duplicate record")
)

// TokenState is the login bookkeeping written after OTP and token operations.
// Nil fields are stored as NULL.
type TokenState struct {
	HashedOTP    *string
	OTPCreatedAt *time.Time
	LastLoginAt  *time.Time
}

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateTokenState(ctx context.Context, id string, state TokenState) error
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateImage(ctx context.Context, id string, imagePath *string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// RoleRepository exposes role lookups used by authorization checks.
type RoleRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id int64) (*domain.Role, error)
	GetForUser(ctx context.Context, userID string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}
