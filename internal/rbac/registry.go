package rbac

import "fmt"

// Registry is the static capability table mapping (role, module) to granted
// actions. It is built once at startup, validated, and shared read-only across
// requests.
type Registry struct {
	grants map[Role]map[Module]map[Action]struct{}
}

type grant struct {
	role    Role
	module  Module
	actions []Action
}

func allActionsFor(module Module) grant {
	return grant{module: module, actions: Actions()}
}

// defaultGrants is the capability table. Adding a role or module is a data
// change here, not a new code path.
func defaultGrants() []grant {
	view := []Action{ActionView}
	grants := []grant{
		// Tenant administration.
		{role: RoleTenantAdmin, module: ModuleUsers, actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAssign}},
		{role: RoleTenantAdmin, module: ModulePatients, actions: view},
		{role: RoleTenantAdmin, module: ModuleAppointments, actions: view},
		{role: RoleTenantAdmin, module: ModuleBilling, actions: []Action{ActionView, ActionExport}},
		{role: RoleTenantAdmin, module: ModuleReports, actions: []Action{ActionView, ActionExport}},
		{role: RoleTenantAdmin, module: ModuleAuditLogs, actions: view},
		{role: RoleTenantAdmin, module: ModuleTenantSettings, actions: []Action{ActionView, ActionEdit}},
		{role: RoleTenantAdmin, module: ModuleServicePrice, actions: []Action{ActionView, ActionEdit}},

		// Clinical leadership.
		{role: RoleDirector, module: ModuleUsers, actions: view},
		{role: RoleDirector, module: ModulePatients, actions: view},
		{role: RoleDirector, module: ModuleAppointments, actions: view},
		{role: RoleDirector, module: ModuleBilling, actions: view},
		{role: RoleDirector, module: ModuleReports, actions: []Action{ActionView, ActionExport}},

		// Care delivery.
		{role: RolePhysician, module: ModulePatients, actions: []Action{ActionView, ActionEdit}},
		{role: RolePhysician, module: ModuleAppointments, actions: []Action{ActionView, ActionCreate, ActionEdit}},
		{role: RolePhysician, module: ModulePrescriptions, actions: []Action{ActionView, ActionCreate}},
		{role: RolePhysician, module: ModuleLabResults, actions: view},
		{role: RolePhysician, module: ModuleReports, actions: view},
		{role: RoleNurse, module: ModulePatients, actions: []Action{ActionView, ActionEdit}},
		{role: RoleNurse, module: ModuleAppointments, actions: []Action{ActionView, ActionEdit}},
		{role: RoleNurse, module: ModuleLabResults, actions: view},
		{role: RolePharmacist, module: ModulePrescriptions, actions: []Action{ActionView, ActionApprove}},
		{role: RolePharmacist, module: ModuleSuppliers, actions: view},
		{role: RolePharmacist, module: ModuleServicePrice, actions: view},
		{role: RoleLabTechnician, module: ModuleLabResults, actions: []Action{ActionView, ActionCreate, ActionEdit}},
		{role: RoleLabTechnician, module: ModulePatients, actions: view},

		// Front desk and back office.
		{role: RoleReceptionist, module: ModuleAppointments, actions: []Action{ActionView, ActionCreate, ActionEdit}},
		{role: RoleReceptionist, module: ModulePatients, actions: []Action{ActionView, ActionCreate}},
		{role: RoleBillingStaff, module: ModuleBilling, actions: []Action{ActionView, ActionCreate, ActionEdit, ActionExport}},
		{role: RoleBillingStaff, module: ModuleServicePrice, actions: view},
		{role: RoleBillingStaff, module: ModuleReports, actions: view},
		{role: RoleInsuranceManager, module: ModuleBilling, actions: []Action{ActionView, ActionApprove}},
		{role: RoleInsuranceManager, module: ModulePatients, actions: view},
		{role: RoleInsuranceManager, module: ModuleReports, actions: view},

		// Patient self-service.
		{role: RolePatient, module: ModuleAppointments, actions: []Action{ActionView, ActionCreate}},
		{role: RolePatient, module: ModuleBilling, actions: view},
		{role: RolePatient, module: ModulePrescriptions, actions: view},
		{role: RolePatient, module: ModuleLabResults, actions: view},
	}

	// The platform owner manages every module.
	for _, module := range Modules() {
		g := allActionsFor(module)
		g.role = RolePlatformOwner
		grants = append(grants, g)
	}
	return grants
}

// NewRegistry builds the default capability registry. Construction fails when
// the table references an unknown role, module, or action; missing the problem
// at startup would otherwise surface as silent denials.
func NewRegistry() (*Registry, error) {
	return newRegistryFrom(defaultGrants())
}

func newRegistryFrom(grants []grant) (*Registry, error) {
	table := make(map[Role]map[Module]map[Action]struct{}, len(Roles()))
	for _, g := range grants {
		if !g.role.Valid() {
			return nil, fmt.Errorf("rbac: registry references unknown role %q", g.role)
		}
		if !g.module.Valid() {
			return nil, fmt.Errorf("rbac: registry references unknown module %q", g.module)
		}
		modules, ok := table[g.role]
		if !ok {
			modules = make(map[Module]map[Action]struct{})
			table[g.role] = modules
		}
		actions, ok := modules[g.module]
		if !ok {
			actions = make(map[Action]struct{}, len(g.actions))
			modules[g.module] = actions
		}
		for _, a := range g.actions {
			if !a.Valid() {
				return nil, fmt.Errorf("rbac: registry references unknown action %q for %s/%s", a, g.role, g.module)
			}
			actions[a] = struct{}{}
		}
	}
	return &Registry{grants: table}, nil
}

// Granted reports whether the role holds the capability. Unknown roles and
// modules are denials, never errors.
func (r *Registry) Granted(role Role, module Module, action Action) bool {
	if r == nil {
		return false
	}
	modules, ok := r.grants[role]
	if !ok {
		return false
	}
	actions, ok := modules[module]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// ModulesFor returns the modules on which the role holds at least one action.
func (r *Registry) ModulesFor(role Role) map[Module]struct{} {
	result := make(map[Module]struct{})
	if r == nil {
		return result
	}
	for module, actions := range r.grants[role] {
		if len(actions) > 0 {
			result[module] = struct{}{}
		}
	}
	return result
}

// ActionsFor returns the actions the role holds on the module.
func (r *Registry) ActionsFor(role Role, module Module) map[Action]struct{} {
	result := make(map[Action]struct{})
	if r == nil {
		return result
	}
	for action := range r.grants[role][module] {
		result[action] = struct{}{}
	}
	return result
}
