// Package users holds the authenticated user profile and the role/permission
// model of the campaigns portal.
package users

import (
	"fmt"
	"time"
)

// Role is a user's portal role. The portal uses a single flat role set; every
// permission decision derives from it through the matrix below.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Resource is a portal resource subject to permission checks.
type Resource string

const (
	ResourceCampaigns Resource = "campaigns"
	ResourceBranches  Resource = "branches"
	ResourceStations  Resource = "stations"
	ResourceUsers     Resource = "users"
	ResourceDashboard Resource = "dashboard"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// permissions is the single permission matrix. Admins can do everything,
// editors manage content but cannot delete or touch user accounts, viewers are
// read-only.
var permissions = map[Role]map[Resource]map[Action]bool{
	RoleEditor: {
		ResourceCampaigns: {ActionRead: true, ActionWrite: true},
		ResourceBranches:  {ActionRead: true, ActionWrite: true},
		ResourceStations:  {ActionRead: true, ActionWrite: true},
		ResourceUsers:     {ActionRead: true},
		ResourceDashboard: {ActionRead: true},
	},
	RoleViewer: {
		ResourceCampaigns: {ActionRead: true},
		ResourceBranches:  {ActionRead: true},
		ResourceStations:  {ActionRead: true},
		ResourceDashboard: {ActionRead: true},
	},
}

// Can reports whether the role may perform action on resource.
func (r Role) Can(resource Resource, action Action) bool {
	if r == RoleAdmin {
		return true
	}
	return permissions[r][resource][action]
}

// User is the authenticated profile returned by the portal API.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name,omitempty"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the profile as received from the API boundary.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user profile missing id")
	}
	if u.Username == "" {
		return fmt.Errorf("user profile missing username")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user profile has unknown role %q", u.Role)
	}
	return nil
}

// DisplayName returns the full name when present, the username otherwise.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// HasAnyRole reports whether the user's role is one of the given roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
