package model

// Role identifies the clinical service an actor belongs to.
type Role string

const (
	RoleReceptionist  Role = "RECEPTIONIST"
	RoleNurse         Role = "NURSE"
	RoleDoctor        Role = "DOCTOR"
	RoleLabTechnician Role = "LAB_TECHNICIAN"
	RoleRadiologist   Role = "RADIOLOGIST"
	RoleBilling       Role = "BILLING"
	RoleAdmin         Role = "ADMIN"
)

var roles = []Role{
	RoleReceptionist,
	RoleNurse,
	RoleDoctor,
	RoleLabTechnician,
	RoleRadiologist,
	RoleBilling,
	RoleAdmin,
}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}
