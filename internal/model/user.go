package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the role assigned to an API user. Stored and issued as a
// free-form string; the constants below are the roles seeded at startup.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is an API account. Only the auth gateway reads users: the
// password hash never leaves the storage layer in API responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
