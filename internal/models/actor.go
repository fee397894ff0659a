package models

// Actor is the authenticated caller behind a lifecycle operation.
type Actor struct {
	OfficialID string
	Name       string
	Role       OfficialRole
	IP         string
	UserAgent  string
	RequestID  string
}

// SystemActor is used for writes without an authenticated official.
var SystemActor = Actor{Name: NotAvailable}

// DisplayName returns the name recorded on timeline entries.
func (a Actor) DisplayName() string {
	if a.Name == "" {
		return NotAvailable
	}
	return a.Name
}

// Actor converts verified claims into the caller identity.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return SystemActor
	}
	return Actor{OfficialID: c.OfficialID(), Name: c.DisplayName(), Role: c.Role}
}
