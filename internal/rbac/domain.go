package rbac

import "github.com/google/uuid"

// Role is a closed enumeration of platform roles.
type Role string

const (
	RolePlatformOwner    Role = "platform_owner"
	RoleTenantAdmin      Role = "tenant_admin"
	RoleDirector         Role = "director"
	RolePhysician        Role = "physician"
	RoleNurse            Role = "nurse"
	RolePharmacist       Role = "pharmacist"
	RoleLabTechnician    Role = "lab_technician"
	RoleReceptionist     Role = "receptionist"
	RoleBillingStaff     Role = "billing_staff"
	RoleInsuranceManager Role = "insurance_manager"
	RolePatient          Role = "patient"
)

// Roles lists every known role in declaration order.
func Roles() []Role {
	return []Role{
		RolePlatformOwner,
		RoleTenantAdmin,
		RoleDirector,
		RolePhysician,
		RoleNurse,
		RolePharmacist,
		RoleLabTechnician,
		RoleReceptionist,
		RoleBillingStaff,
		RoleInsuranceManager,
		RolePatient,
	}
}

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RolePlatformOwner, RoleTenantAdmin, RoleDirector, RolePhysician,
		RoleNurse, RolePharmacist, RoleLabTechnician, RoleReceptionist,
		RoleBillingStaff, RoleInsuranceManager, RolePatient:
		return true
	}
	return false
}

// PlatformScoped reports whether the role operates across tenants. Every
// other role works inside exactly one tenant.
func (r Role) PlatformScoped() bool {
	return r == RolePlatformOwner
}

// Module is a named functional area of the platform.
type Module string

const (
	ModuleUsers          Module = "users"
	ModulePatients       Module = "patients"
	ModuleAppointments   Module = "appointments"
	ModuleBilling        Module = "billing"
	ModuleReports        Module = "reports"
	ModuleAuditLogs      Module = "audit_logs"
	ModuleTenantSettings Module = "tenant_settings"
	ModuleServicePrice   Module = "service_price"
	ModuleTenants        Module = "tenants"
	ModuleSystemHealth   Module = "system_health"
	ModuleSuppliers      Module = "suppliers"
	ModulePrescriptions  Module = "prescriptions"
	ModuleLabResults     Module = "lab_results"
)

// Modules lists every known module in declaration order.
func Modules() []Module {
	return []Module{
		ModuleUsers,
		ModulePatients,
		ModuleAppointments,
		ModuleBilling,
		ModuleReports,
		ModuleAuditLogs,
		ModuleTenantSettings,
		ModuleServicePrice,
		ModuleTenants,
		ModuleSystemHealth,
		ModuleSuppliers,
		ModulePrescriptions,
		ModuleLabResults,
	}
}

// Valid reports whether the module belongs to the closed enumeration.
func (m Module) Valid() bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

// Action is an operation that can be granted on a module.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionAssign  Action = "assign"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
	ActionManage  Action = "manage"
)

// Actions lists every known action.
func Actions() []Action {
	return []Action{
		ActionView,
		ActionCreate,
		ActionEdit,
		ActionDelete,
		ActionAssign,
		ActionApprove,
		ActionExport,
		ActionManage,
	}
}

// Valid reports whether the action belongs to the closed enumeration.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

// Capability is an atomic (module, action) permission unit.
type Capability struct {
	Module Module
	Action Action
}

// Principal describes the authenticated actor for one request. It is built by
// the external authentication layer and never mutated afterwards.
type Principal struct {
	ID       uuid.UUID
	Role     Role
	TenantID *uuid.UUID
}

// PlatformScoped reports whether the principal operates outside a single
// tenant. Only the platform owner carries a nil tenant.
func (p Principal) PlatformScoped() bool {
	return p.TenantID == nil
}
