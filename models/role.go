// models/role.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies which credential store and dashboard a session maps to
type Role int

const (
	RoleGym Role = iota + 1
	RoleClient
	RoleTrainer
	RoleSuperAdmin
)

// AllRoles lists every role in probing order
var AllRoles = []Role{RoleGym, RoleClient, RoleTrainer, RoleSuperAdmin}

// ParseRole converts the wire form ("gym", "client", "trainer", "super-admin") into a Role
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gym":
		return RoleGym, nil
	case "client":
		return RoleClient, nil
	case "trainer":
		return RoleTrainer, nil
	case "super-admin", "superadmin", "super_admin":
		return RoleSuperAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleGym:
		return "gym"
	case RoleClient:
		return "client"
	case RoleTrainer:
		return "trainer"
	case RoleSuperAdmin:
		return "super-admin"
	}
	return ""
}

// Valid reports whether r is one of the declared roles
func (r Role) Valid() bool {
	return r.String() != ""
}

// Collection returns the MongoDB collection holding this role's user records
func (r Role) Collection() string {
	switch r {
	case RoleGym:
		return "gyms"
	case RoleClient:
		return "clients"
	case RoleTrainer:
		return "trainers"
	case RoleSuperAdmin:
		return "super_admins"
	}
	return ""
}

// RoutePrefix returns the auth route group for this role, e.g. "/gym-auth"
func (r Role) RoutePrefix() string {
	if !r.Valid() {
		return ""
	}
	return "/" + r.String() + "-auth"
}

// LoginPath is the frontend surface an unauthenticated user of this role is sent to
func (r Role) LoginPath() string {
	switch r {
	case RoleSuperAdmin:
		return "/super-admin/login"
	case RoleGym, RoleClient, RoleTrainer:
		return "/"
	}
	return "/"
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*r = 0
		return nil
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
