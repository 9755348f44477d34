package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator roles, ordered by privilege.
const (
	RoleAdmin       = "admin"
	RoleGerente     = "gerente"
	RoleSupervisor  = "supervisor"
	RoleColaborador = "colaborador"
)

// Operator is the authenticated identity performing every pipeline
// operation. Authentication itself lives outside the core; the pipeline
// consumes operators for role checks and the manager-password override.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanManage reports whether the role may authorize removals and transfers.
func (o *Operator) CanManage() bool {
	switch o.Role {
	case RoleAdmin, RoleGerente, RoleSupervisor:
		return true
	}
	return false
}

// IsManager is the stricter gate for table-to-table transfers.
func (o *Operator) IsManager() bool {
	return o.Role == RoleAdmin || o.Role == RoleGerente
}
