// Package repositories defines the persistence interfaces consumed by
// the service layer.
package repositories

import (
	"context"
	"errors"

	"github.com/physical-ai/tutor-backend/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository persists registered users for the auth layer.
type UserRepository interface {
	// Create inserts a new user and populates its ID.
	Create(ctx context.Context, user *models.User) error

	// GetByEmail retrieves a user by email. Returns an error wrapping
	// ErrNotFound when no such user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID retrieves a user by ID. Returns an error wrapping
	// ErrNotFound when no such user exists.
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
