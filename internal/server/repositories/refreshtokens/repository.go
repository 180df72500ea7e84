// Package refreshtokens declares the repository contract for managing
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/buddy/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
//
// Rows are never updated in place: rotation is expressed as Take followed
// by Create inside one transaction supplied by the caller.
type Repository interface {
	// Create stores a new refresh token for userID with the given absolute
	// expiry (UTC).
	Create(ctx context.Context, userID int64, token string, expires time.Time) error

	// Find looks up a refresh token by its opaque token string and returns its metadata.
	// Implementations should return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// Take removes a refresh token and reports whether a row was actually
	// deleted. Rotation uses it so that two transactions racing on the same
	// token cannot both consume it: exactly one sees taken=true.
	Take(ctx context.Context, token string) (bool, error)
}
