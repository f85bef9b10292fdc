package model

import "time"

// Role identifies a user's level in the organizational hierarchy.
type Role string

// Hierarchy roles, top to bottom.
const (
	RoleSuperAdmin          Role = "SUPERADMIN"
	RoleAreaManager         Role = "AREA_MANAGER"
	RoleCityCoordinator     Role = "CITY_COORDINATOR"
	RoleActivistCoordinator Role = "ACTIVIST_COORDINATOR"
)

// Valid reports whether r is one of the known hierarchy roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAreaManager, RoleCityCoordinator, RoleActivistCoordinator:
		return true
	}
	return false
}

// CanSend reports whether users with this role may broadcast tasks.
// The bottom of the hierarchy has nobody to send to.
func (r Role) CanSend() bool {
	return r.Valid() && r != RoleActivistCoordinator
}

// Area is the top organizational unit below the whole organization.
type Area struct {
	ID   string `json:"id" db:"id" yaml:"id"`
	Name string `json:"name" db:"name" yaml:"name"`
}

// City belongs to exactly one area.
type City struct {
	ID     string `json:"id" db:"id" yaml:"id"`
	AreaID string `json:"area_id" db:"area_id" yaml:"area_id"`
	Name   string `json:"name" db:"name" yaml:"name"`
}

// User is a member of the organization as seen by the directory.
//
// Area managers carry AreaID. City coordinators and activist coordinators
// carry CityID; their AreaID is derived from the city.
type User struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Role      Role      `json:"role" db:"role"`
	AreaID    *string   `json:"area_id,omitempty" db:"area_id"`
	CityID    *string   `json:"city_id,omitempty" db:"city_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Caller is the authenticated identity performing an operation.
type Caller struct {
	UserID string
	Role   Role
}
