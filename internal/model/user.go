package model

import "time"

// Role is the authorization tier of a user.  Exactly three values are
// recognised; anything else is rejected by ParseRole.
type Role string

const (
	RoleUser   Role = "USER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole validates a role string coming from a request body.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleEditor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User represents an application user record as stored in the
// `users` table.  PasswordHash never leaves the server; handlers
// serialise users through PublicUser.
//
// Fields:
//
//	ID           – UUID primary key.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – given name.
//	LastName     – family name.
//	Role         – USER, EDITOR or ADMIN.
//	IsVerified   – whether the email address was confirmed.
//	LastLogin    – time of the last successful login (nullable).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	IsVerified   bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the user shape returned by the API (no password hash).
type PublicUser struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Role       Role       `json:"role"`
	IsVerified bool       `json:"isVerified"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Public strips credentials from the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

// Permissions is the capability set derived from a user's role.  Route
// guards and handlers consult it instead of comparing role strings.
type Permissions struct {
	CanEditCatalog    bool `json:"canEditCatalog"`
	CanManageBookings bool `json:"canManageBookings"`
	CanManageUsers    bool `json:"canManageUsers"`
}

// ResolvePermissions maps a user to its capabilities.  A nil user has none.
func ResolvePermissions(u *User) Permissions {
	if u == nil {
		return Permissions{}
	}
	switch u.Role {
	case RoleAdmin:
		return Permissions{CanEditCatalog: true, CanManageBookings: true, CanManageUsers: true}
	case RoleEditor:
		return Permissions{CanEditCatalog: true, CanManageBookings: true}
	}
	return Permissions{}
}

// RefreshToken models an entry in the `refresh_tokens` table.  One row
// exists per live session.  The credential itself is not stored; only
// its SHA-256 hash.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA-256 hex digest of the token value.
//	ExpiresAt – server-side expiry, checked independently of the JWT exp.
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
