package rbac

import "sort"

// Resolver answers capability questions for a principal against the static
// registry. All methods are pure functions of their inputs and safe for
// concurrent use.
type Resolver struct {
	registry *Registry
}

// NewResolver wraps the registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// CanAccess reports whether the principal's role holds the (module, action)
// capability. Default-deny: anything not explicitly granted is refused,
// including unknown roles and modules.
func (r *Resolver) CanAccess(p Principal, module Module, action Action) bool {
	if r == nil || r.registry == nil {
		return false
	}
	return r.registry.Granted(p.Role, module, action)
}

// VisibleModules returns the modules for which the principal holds at least
// one action, sorted by module name for stable output.
func (r *Resolver) VisibleModules(p Principal) []Module {
	if r == nil || r.registry == nil {
		return nil
	}
	granted := r.registry.ModulesFor(p.Role)
	modules := make([]Module, 0, len(granted))
	for module := range granted {
		modules = append(modules, module)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })
	return modules
}

// ModulePermissions returns the actions granted to the principal on the
// module, sorted for stable output.
func (r *Resolver) ModulePermissions(p Principal, module Module) []Action {
	if r == nil || r.registry == nil {
		return nil
	}
	granted := r.registry.ActionsFor(p.Role, module)
	actions := make([]Action, 0, len(granted))
	for action := range granted {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
