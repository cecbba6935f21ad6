package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleSupervisor    Role = "supervisor"
	RoleTechnician    Role = "technician"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleSupervisor, RoleTechnician:
		return true
	}
	return false
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Role     Role
	Email    string
	FullName string
}

func (p Principal) IsAdministrator() bool {
	return p.Role == RoleAdministrator
}

func (p Principal) IsSupervisor() bool {
	return p.Role == RoleSupervisor
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}
