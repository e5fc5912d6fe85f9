// Package user holds platform accounts and their roles.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/xenking/tastetrack/internal/domain/apperr"
)

// Role is the coarse authorization class of an account.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// ErrNotFound is returned by repositories when no account matches.
var ErrNotFound = apperr.New(apperr.NotFound, "user not found")

// User is a platform account. PasswordHash is never exposed to clients.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        string
	Role         Role
	Enabled      bool
	CreatedAt    time.Time
}

// Repository defines persistence operations for accounts. Email lookups are
// case-insensitive.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create assigns ID and CreatedAt. A taken email yields an apperr.Conflict.
	Create(ctx context.Context, u *User) error
	// Update overwrites names, phone, password hash, role and enabled flag.
	Update(ctx context.Context, u *User) error
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName splits a display name on its first space. A missing remainder is
// replaced by fallback.
func SplitName(name, fallback string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	last = strings.TrimSpace(last)
	if last == "" {
		last = fallback
	}
	return first, last
}
