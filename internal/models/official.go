package models

import "time"

// OfficialRole tags which dashboard persona an official logs in as.
type OfficialRole string

const (
	RoleAdmin      OfficialRole = "ADMIN"
	RoleSupervisor OfficialRole = "SUPERVISOR"
)

// Valid reports whether r is a known role.
func (r OfficialRole) Valid() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// Official is an authenticated dashboard user stored in the officials table.
// Admins are the officers applications get assigned to; supervisors oversee blocks.
type Official struct {
	ID           string       `db:"id" json:"id"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	FullName     string       `db:"full_name" json:"fullName"`
	Role         OfficialRole `db:"role" json:"role"`
	Department   string       `db:"department" json:"department"`
	Designation  string       `db:"designation" json:"designation"`
	Block        string       `db:"block" json:"block"`
	Active       bool         `db:"active" json:"active"`
	LastLogin    *time.Time   `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// Officer is the assignable view of an admin official.
type Officer struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"full_name" json:"name"`
	Department  string `db:"department" json:"department"`
	Designation string `db:"designation" json:"designation"`
}

// OfficialFilter captures filtering criteria for listing officials.
type OfficialFilter struct {
	Role   *OfficialRole
	Active *bool
	Search string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
