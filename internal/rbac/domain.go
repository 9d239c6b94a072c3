package rbac

import (
	"strings"
	"time"
)

// Role represents a named permission grouping. OrganizationID is nil for
// global roles.
type Role struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Permission is an immutable catalog entry. The catalog is seeded by the
// bootstrap and read-only afterwards.
type Permission struct {
	ID          int64  `json:"id"`
	Module      string `json:"module"`
	Component   string `json:"component"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Assignment ties a permission to a role.
type Assignment struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// AdminRoleName is the conventional administrative role seeded by the
// bootstrap.
const AdminRoleName = "Admin-Role"

// IsAdminRole reports whether a role name designates an administrator. Any
// role whose name contains "admin" (case-insensitive) grants full access;
// this covers the exact names "admin" and "Admin-Role" as well.
func IsAdminRole(name string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(name)), "admin")
}

// HasAdminRole reports whether any of the role names is administrative.
func HasAdminRole(names []string) bool {
	for _, name := range names {
		if IsAdminRole(name) {
			return true
		}
	}
	return false
}
