package model

import "time"

// Roles assignable to a user. Engineers and inspectors are field
// personnel whose trips are tracked; admins manage the platform.
const (
	RoleEngineer  = "engineer"
	RoleInspector = "inspector"
	RoleAdmin     = "admin"
)

// Regions covered by the safety-inspection programme.
const (
	RegionCaldas    = "Caldas"
	RegionRisaralda = "Risaralda"
	RegionQuindio   = "Quindío"
)

// Transport modes field personnel register with.
const (
	TransportMotorcycle = "motorcycle"
	TransportCar        = "car"
)

// ValidRole reports whether r is a member of the role enumeration.
func ValidRole(r string) bool {
	return r == RoleEngineer || r == RoleInspector || r == RoleAdmin
}

// ValidRegion reports whether r is one of the three covered regions.
func ValidRegion(r string) bool {
	return r == RegionCaldas || r == RegionRisaralda || r == RegionQuindio
}

// ValidTransport reports whether t is a known transport mode.
func ValidTransport(t string) bool {
	return t == TransportMotorcycle || t == TransportCar
}

// User mirrors the `users` table. The password hash is only ever
// handled inside the repository and auth handlers; read paths return
// the PublicUser projection instead.
type User struct {
	ID                uint64
	FullName          string
	Email             string
	PasswordHash      string
	Role              string
	Region            string
	Transport         string
	IsActive          bool
	LastLogin         *time.Time
	LastActivity      *time.Time
	ResetToken        *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the client-visible projection of a user record.
type PublicUser struct {
	ID        uint64     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Region    string     `json:"region"`
	Transport string     `json:"transport"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Public strips everything a client must not see, in particular the
// password hash and the recovery token.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		Region:    u.Region,
		Transport: u.Transport,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
	}
}
