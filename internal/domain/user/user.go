// Package user handles staff accounts and login verification.
package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidCredentials is returned for unknown usernames, wrong passwords,
// and deactivated accounts alike, so callers cannot probe which it was.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrUsernameTaken is returned when creating a user would duplicate an
// existing username.
var ErrUsernameTaken = errors.New("username already in use")

// Role determines what a user may do in the application.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleStaff Role = "Staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User is a staff account. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
}

// Repository defines persistence operations for user accounts.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u User) (int64, error)
	List(ctx context.Context) ([]User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
