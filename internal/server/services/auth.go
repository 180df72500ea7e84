// Package services contains server-side business logic. This file implements
// AuthService, which handles signup, login, issuing/refreshing token pairs,
// and logout.
package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/buddy/internal/common"
	"github.com/dmitrijs2005/buddy/internal/dbx"
	"github.com/dmitrijs2005/buddy/internal/logging"
	"github.com/dmitrijs2005/buddy/internal/server/auth"
	"github.com/dmitrijs2005/buddy/internal/server/config"
	"github.com/dmitrijs2005/buddy/internal/server/models"
	"github.com/dmitrijs2005/buddy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/buddy/internal/server/security"
)

// refreshTokenBytes is the entropy of a refresh token before hex encoding
// (256 bits).
const refreshTokenBytes = 32

// dummyHash is a bcrypt hash of a random string. Login verifies against it
// when the username does not exist, so an absent user costs the same as a
// wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenPair bundles a short-lived access token and the persisted long-lived
// refresh token record.
type TokenPair struct {
	AccessToken string
	Refresh     *models.RefreshToken
}

// AuthService provides authentication-related operations:
// - Signup: create users (first user ever becomes admin)
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - Logout: revoke a refresh token
// - CurrentUser: resolve an access token to its user
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *security.PasswordHasher
	issuer                       *auth.Issuer
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

// NewAuthService constructs an AuthService from its collaborators and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher *security.PasswordHasher, issuer *auth.Issuer, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		issuer:                       issuer,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger,
	}
}

// Signup creates a new user. The very first user ever created is assigned
// the admin role; every subsequent signup gets the user role. The
// count-then-insert runs in a serializable transaction so two concurrent
// first signups cannot both become admin. A username collision yields
// common.ErrorAlreadyExists.
func (s *AuthService) Signup(ctx context.Context, username string, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var user *models.User
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	if err := dbx.WithTx(ctx, s.db, opts, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		count, err := repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("error counting users: %w", err)
		}
		role := models.RoleUser
		if count == 0 {
			role = models.RoleAdmin
		}

		user, err = repo.Create(ctx, &models.User{UserName: username, PasswordHash: hash, Role: role})
		return err
	}); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "username", user.UserName, "role", string(user.Role))
	return user, nil
}

// Login verifies the credentials and, on success, returns a new TokenPair.
// An absent user, a wrong password, and an inactive role all yield
// common.ErrInvalidCredentials so callers cannot tell them apart.
func (s *AuthService) Login(ctx context.Context, username string, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn a comparison so the miss costs the same as a mismatch.
			s.hasher.Verify(password, dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	switch user.Role {
	case models.RoleAdmin, models.RoleUser:
		// active roles may log in
	case models.RoleInactive:
		return nil, common.ErrInvalidCredentials
	default:
		return nil, common.ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// Refresh validates a refresh token, rotates it transactionally, and returns
// a fresh TokenPair. The old record is consumed and a new one created in the
// same unit of work, and the rotation aborts unless the delete actually
// removed the row, so two rotations racing on the same token cannot both
// succeed. Absent, expired, and concurrently-rotated tokens all yield
// common.ErrorUnauthorized; expired records are left in place (expiry is
// only checked at lookup time).
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if time.Now().UTC().After(token.Expires) {
		s.logger.Debug(ctx, "refresh rejected", "reason", common.ErrRefreshTokenExpired.Error())
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		// Consuming zero rows means a concurrent rotation already took the
		// token; exactly one of the racing callers may win.
		taken, err := repoTx.Take(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !taken {
			return common.ErrorUnauthorized
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return pair, nil
}

// Logout deletes the presented refresh token. Deleting an already-deleted
// token is not an error. Access tokens already issued are unaffected and
// simply expire.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// CurrentUser validates the access token and resolves it to the user it was
// issued for. Any validation failure, as well as a subject/id mismatch with
// the stored record, yields common.ErrorUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.issuer.Validate(accessToken)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "reason", err.Error())
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if user.ID != claims.UserID {
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// --- helpers below ---

func (s *AuthService) generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.issuer.Create(user)
	if err != nil {
		return nil, fmt.Errorf("error creating access token: %w", err)
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}
	expires := time.Now().UTC().Add(s.refreshTokenValidityDuration)
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, user.ID, refresh, expires); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken: access,
		Refresh:     &models.RefreshToken{Token: refresh, UserID: user.ID, Expires: expires},
	}, nil
}
