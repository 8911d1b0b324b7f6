package models

import "time"

// Role represents profile roles in the system
type Role string

const (
	RoleTechnician     Role = "technician"
	RoleSupervisor     Role = "supervisor"
	RoleManager        Role = "manager"
	RoleAdmin          Role = "admin"
	RoleInventoryClerk Role = "inventory_clerk"
	RoleContractor     Role = "contractor"
	RoleRequester      Role = "requester"
)

// Profile represents a person who can own or be notified about work orders.
type Profile struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	FirstName   string    `bson:"first_name" json:"first_name"`
	LastName    string    `bson:"last_name" json:"last_name"`
	Role        Role      `bson:"role" json:"role"`
	WarehouseID string    `bson:"warehouse_id" json:"warehouse_id"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// FullName returns the first and last name joined by a space.
func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Claims represents JWT claims
type Claims struct {
	UserID      string `json:"user_id"`
	WarehouseID string `json:"warehouse_id"`
	Role        Role   `json:"role"`
	Exp         int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleTechnician, RoleSupervisor, RoleManager, RoleAdmin,
		RoleInventoryClerk, RoleContractor, RoleRequester:
		return true
	default:
		return false
	}
}

// Rank orders the escalation hierarchy. Roles outside the chain rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleSupervisor:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// RoleForLevel maps an escalation level to the role that owns it.
func RoleForLevel(level int) Role {
	switch {
	case level <= 1:
		return RoleSupervisor
	case level == 2:
		return RoleManager
	default:
		return RoleAdmin
	}
}

// HasPermission checks if a profile has permission for a specific action
func (p *Profile) HasPermission(action string) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != "manage_profiles"
	case RoleSupervisor:
		return action == "view_work_orders" || action == "view_compliance" ||
			action == "escalate_work_order" || action == "run_pm_scheduler"
	case RoleTechnician, RoleContractor:
		return action == "view_work_orders" || action == "view_compliance"
	case RoleInventoryClerk, RoleRequester:
		return action == "view_work_orders"
	default:
		return false
	}
}
