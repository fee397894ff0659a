package models

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an official.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and official info.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	Official     OfficialInfo `json:"official"`
	IssuedAt     time.Time    `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// OfficialInfo describes the authenticated official in responses.
type OfficialInfo struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	FullName   string       `json:"full_name"`
	Role       OfficialRole `json:"role"`
	Department string       `json:"department,omitempty"`
	Block      string       `json:"block,omitempty"`
}

// AdminProfile is the payload carried by ADMIN tokens.
type AdminProfile struct {
	OfficialID  string `json:"official_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

// SupervisorProfile is the payload carried by SUPERVISOR tokens.
type SupervisorProfile struct {
	OfficialID string `json:"official_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Block      string `json:"block"`
}

var ErrClaimsVariant = errors.New("token role does not match its payload")

// JWTClaims is a tagged variant: Role selects which of Admin or Supervisor is populated.
type JWTClaims struct {
	Role       OfficialRole       `json:"role"`
	Admin      *AdminProfile      `json:"admin,omitempty"`
	Supervisor *SupervisorProfile `json:"supervisor,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims builds the variant matching the official's role.
func NewClaims(o *Official) *JWTClaims {
	switch o.Role {
	case RoleAdmin:
		return &JWTClaims{Role: RoleAdmin, Admin: &AdminProfile{
			OfficialID:  o.ID,
			Name:        o.FullName,
			Email:       o.Email,
			Department:  o.Department,
			Designation: o.Designation,
		}}
	case RoleSupervisor:
		return &JWTClaims{Role: RoleSupervisor, Supervisor: &SupervisorProfile{
			OfficialID: o.ID,
			Name:       o.FullName,
			Email:      o.Email,
			Block:      o.Block,
		}}
	}
	return nil
}

// CheckVariant ensures exactly the payload named by Role is present.
func (c *JWTClaims) CheckVariant() error {
	switch c.Role {
	case RoleAdmin:
		if c.Admin == nil || c.Supervisor != nil || c.Admin.OfficialID == "" {
			return ErrClaimsVariant
		}
	case RoleSupervisor:
		if c.Supervisor == nil || c.Admin != nil || c.Supervisor.OfficialID == "" {
			return ErrClaimsVariant
		}
	default:
		return ErrClaimsVariant
	}
	return nil
}

// OfficialID returns the identifier of whichever variant is populated.
func (c *JWTClaims) OfficialID() string {
	if c == nil {
		return ""
	}
	switch c.Role {
	case RoleAdmin:
		if c.Admin != nil {
			return c.Admin.OfficialID
		}
	case RoleSupervisor:
		if c.Supervisor != nil {
			return c.Supervisor.OfficialID
		}
	}
	return ""
}

// DisplayName is the opaque identity recorded on timeline entries.
func (c *JWTClaims) DisplayName() string {
	if c == nil {
		return NotAvailable
	}
	switch c.Role {
	case RoleAdmin:
		if c.Admin != nil && c.Admin.Name != "" {
			return c.Admin.Name
		}
	case RoleSupervisor:
		if c.Supervisor != nil && c.Supervisor.Name != "" {
			return c.Supervisor.Name
		}
	}
	return NotAvailable
}

// Info flattens the variant for API responses.
func (c *JWTClaims) Info() OfficialInfo {
	switch c.Role {
	case RoleAdmin:
		if c.Admin != nil {
			return OfficialInfo{ID: c.Admin.OfficialID, Email: c.Admin.Email, FullName: c.Admin.Name, Role: RoleAdmin, Department: c.Admin.Department}
		}
	case RoleSupervisor:
		if c.Supervisor != nil {
			return OfficialInfo{ID: c.Supervisor.OfficialID, Email: c.Supervisor.Email, FullName: c.Supervisor.Name, Role: RoleSupervisor, Block: c.Supervisor.Block}
		}
	}
	return OfficialInfo{Role: c.Role}
}
