package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/buddy/internal/logging"
	"github.com/dmitrijs2005/buddy/internal/server/models"
	"github.com/dmitrijs2005/buddy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buddy/internal/server/security"
)

// UserService provides user-record operations: lookup, password change, and
// account deletion.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *security.PasswordHasher
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *security.PasswordHasher, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, hasher: hasher, logger: logger}
}

// GetByID returns the user with the given id, or common.ErrorNotFound.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// GetByUsername returns the user with the given username, or common.ErrorNotFound.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByLogin(ctx, username)
}

// ChangePassword re-hashes and stores the new password. An empty new
// password is rejected as a no-op: the method returns false with a nil
// error. Existing refresh tokens are deliberately left valid; a concurrent
// session survives a password change.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, newPassword string) (bool, error) {
	if newPassword == "" {
		return false, nil
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, user.ID, hash); err != nil {
		return false, fmt.Errorf("error updating password: %w", err)
	}

	s.logger.Info(ctx, "password changed", "username", user.UserName)
	return true, nil
}

// Delete removes the user. The schema cascade-deletes all refresh tokens
// owned by the user.
func (s *UserService) Delete(ctx context.Context, user *models.User) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	s.logger.Info(ctx, "user deleted", "username", user.UserName)
	return nil
}
