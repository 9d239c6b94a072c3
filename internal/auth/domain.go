package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Organization is the tenant affiliation carried on a profile.
type Organization struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Profile is the session-facing view of a user: identity, role names and
// tenant affiliation. It is loaded once per request.
type Profile struct {
	UserID       int64        `json:"user_id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Roles        []string     `json:"roles"`
	Organization Organization `json:"organization"`
}
