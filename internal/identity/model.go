package identity

import "time"

// Audit records who created and last modified an entity, and when.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// Authority is a permission label granted through a role.
type Authority struct {
	ID   string
	Name string
	Audit
}

// Role groups authorities. Roles are loaded with a user but no rule consults them.
type Role struct {
	ID          string
	Name        string
	Authorities []Authority
	Audit
}

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Name         string
	Surname      string
	Phone        string
	RoleID       string
	// Role is only populated by FindByEmailWithRole.
	Role *Role
	Audit
}
