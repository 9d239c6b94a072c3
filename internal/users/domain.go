package users

import (
	"errors"
	"time"
)

// User is an application account tied to one organization.
type User struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (u User) TenantOrganization() (int64, string) {
	return u.OrganizationID, ""
}

var (
	// ErrNotFound indicates a missing user.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail indicates an email already registered.
	ErrDuplicateEmail = errors.New("users: email already in use")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("users: password must be at least 8 characters")
)
