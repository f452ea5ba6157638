package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/streamvault/streamvault/internal/address"
)

// UserRole controls which operations a registered account's bearer token
// authorizes. Hosts and bettors are both ordinary Users; RoleAdmin exists
// only for operational overrides (e.g. manually finalizing a stuck
// resolution record).
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// IsAdmin returns true only for the admin role.
func (r UserRole) IsAdmin() bool { return r == RoleAdmin }

// User is the domain entity for a registered account. A User's on-chain-style
// identity (as host, donor, or bettor) is the deterministic derivation of
// its UUID, computed once by PrincipalID and reused everywhere a Stream,
// DonorAccount, or BettorPosition needs to reference "the caller".
type User struct {
	ID           uuid.UUID `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	Role         UserRole  `json:"role"       db:"role"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PrincipalID derives the address.ID this user presents as a host, donor,
// or bettor. Derivation is keyed on the user's UUID bytes alone, so the
// same user always resolves to the same on-ledger identity regardless of
// which role they are acting in at the call site.
func (u *User) PrincipalID() address.ID {
	return address.UserPrincipal(u.ID[:])
}

// PublicProfile is the API-safe view of a User (no password hash).
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
