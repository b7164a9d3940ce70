package types

import "time"

// UserRole identifies the authorization level of an account.
type UserRole string

// Supported user roles, ordered from most to least privileged.
const (
	// RoleSuperAdmin has unrestricted access to every resource.
	RoleSuperAdmin UserRole = "SUPER_ADMIN"

	// RoleAdmin manages population records, documents, and applications.
	RoleAdmin UserRole = "ADMIN"

	// RolePetugas is the front-line clerk role with processing rights
	// below admin.
	RolePetugas UserRole = "PETUGAS"

	// RolePenduduk is a citizen account. It is the default role assigned
	// at registration.
	RolePenduduk UserRole = "PENDUDUK"
)

// Valid reports whether the role is one of the supported values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePetugas, RolePenduduk:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role indicates the user's authorization level within the system.
	Role UserRole `json:"role" db:"role"`

	// IsActive indicates whether the account may authenticate.
	// Deactivated accounts keep their rows but are rejected at login.
	IsActive bool `json:"is_active" db:"is_active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
