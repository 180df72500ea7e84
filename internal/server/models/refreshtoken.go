package models

import "time"

// RefreshToken is a persisted long-lived credential. Token is the opaque
// random string and the primary key. Records are never mutated in place:
// rotation always creates a new record and deletes the old one.
type RefreshToken struct {
	Token   string
	UserID  int64
	Expires time.Time
}
