package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables.
//
// Recognized variables:
//
//	ADDRESS                        HTTP bind address (e.g., ":8080")
//	DATABASE_DSN                   PostgreSQL DSN
//	JWT_SECRET_KEY                 JWT HMAC secret
//	ACCESS_TOKEN_VALIDITY_MINUTES  access token validity, minutes
//	REFRESH_TOKEN_VALIDITY_MINUTES refresh token validity, minutes
//
// Unset variables leave the current value untouched; unparsable durations
// are ignored.
func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.EndpointAddr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_VALIDITY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			config.AccessTokenValidityDuration = time.Duration(minutes) * time.Minute
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_VALIDITY_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			config.RefreshTokenValidityDuration = time.Duration(minutes) * time.Minute
		}
	}
}
