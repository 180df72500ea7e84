// Package auth issues and validates short-lived access tokens (HS256 JWTs).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/buddy/internal/common"
	"github.com/dmitrijs2005/buddy/internal/server/models"
)

// Claims is the claim set carried by an access token: the standard
// registered claims (sub holds the username) plus the numeric user id.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Issuer mints and validates access tokens. The signing secret is immutable
// after construction and safe to share across goroutines.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

// NewIssuer constructs an Issuer. An empty secret is a configuration error;
// callers are expected to treat it as fatal at startup rather than deferring
// the failure to the first token operation.
func NewIssuer(secret []byte, validity time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is empty")
	}
	if validity <= 0 {
		return nil, errors.New("validity must be greater than zero")
	}
	return &Issuer{secret: secret, validity: validity}, nil
}

// Create signs a token for the user with sub=username, id=user id and
// exp=now UTC plus the configured validity.
func (i *Issuer) Create(user *models.User) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
			ID:        uuid.NewString(),
		},
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies the signature first, then the structural completeness of
// the claims, then the expiry. Expired tokens yield common.ErrTokenExpired;
// every other failure yields common.ErrTokenMalformed. Callers must collapse
// both into a single unauthorized outcome.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenMalformed
	}
	if !token.Valid {
		return nil, common.ErrTokenMalformed
	}
	if claims.Subject == "" || claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
