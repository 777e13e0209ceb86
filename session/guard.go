package session

import "github.com/HSouheill/gym_backend/models"

// Guard protects a dashboard surface
type Guard struct {
	AllowedRoles []models.Role
}

// Decision is the outcome of a guard check. Redirect is set when not allowed.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Evaluate allows a logged-in session whose role is in AllowedRoles. Anyone
// else goes to the super-admin login when the surface is super-admin only,
// and to the landing page otherwise.
func (g Guard) Evaluate(state State) Decision {
	if state.LoggedIn() {
		for _, role := range g.AllowedRoles {
			if role == state.Role {
				return Decision{Allowed: true}
			}
		}
	}

	if len(g.AllowedRoles) == 1 && g.AllowedRoles[0] == models.RoleSuperAdmin {
		return Decision{Redirect: models.RoleSuperAdmin.LoginPath()}
	}
	return Decision{Redirect: "/"}
}
