package models

// Role is the closed set of user roles. Authorization checks should switch
// exhaustively over these values so that adding a role is visible at every
// check point.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleInactive Role = "inactive"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleInactive:
		return true
	}
	return false
}

// User is an identity record. PasswordHash is the bcrypt hash of the
// password; the cleartext is never stored.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	Role         Role
}
