// Package users declares the repository contract for identity records in
// persistent storage.
package users

import (
	"context"

	"github.com/dmitrijs2005/buddy/internal/server/models"
)

// Repository defines operations over user records.
type Repository interface {
	// Create stores a new user and returns it with the assigned id.
	// A username collision yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByLogin looks up a user by username (case-sensitive).
	// Implementations return common.ErrorNotFound when the user is absent.
	GetByLogin(ctx context.Context, login string) (*models.User, error)

	// GetByID looks up a user by id.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int64, error)

	// UpdatePassword replaces the stored password hash for the user.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Delete removes the user. Refresh tokens owned by the user are
	// cascade-deleted by the schema.
	Delete(ctx context.Context, id int64) error
}
