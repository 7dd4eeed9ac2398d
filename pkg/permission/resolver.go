package permission

import "strings"

// IsGranted reports whether the permission set grants action on route.
//
// Resolution is two-tier: an exact route+action match wins outright;
// otherwise a legacy module-scoped grant matches when its module equals
// the route's first path segment and the grant carries no route of its
// own. Only active records participate in either tier. An empty route is
// never granted — callers must not ask about an undefined target.
func IsGranted(route string, action Action, perms []Permission) bool {
	if route == "" {
		return false
	}

	for _, p := range perms {
		if p.Active() && p.Route == route && p.Action == action {
			return true
		}
	}

	module := ModuleFromRoute(route)
	if module == "" {
		return false
	}
	for _, p := range perms {
		if p.Active() && !p.RouteScoped() && p.Module == module && p.Action == action {
			return true
		}
	}

	return false
}

// HasAnyAction reports whether any CRUD action is granted on route. Menu
// rendering uses it to decide between per-action icons and a generic
// default-option label.
func HasAnyAction(route string, perms []Permission) bool {
	for _, a := range CRUDActions {
		if IsGranted(route, a, perms) {
			return true
		}
	}
	return false
}

// ResolveVector resolves the full CRUD vector for a route in one pass.
func ResolveVector(route string, perms []Permission) ActionVector {
	return ActionVector{
		View:   IsGranted(route, ActionView, perms),
		Create: IsGranted(route, ActionCreate, perms),
		Edit:   IsGranted(route, ActionEdit, perms),
		Delete: IsGranted(route, ActionDelete, perms),
	}
}

// ModuleFromRoute returns the first non-empty path segment of a route,
// which is the unit legacy module-scoped grants are matched against.
// "/security/users" yields "security".
func ModuleFromRoute(route string) string {
	for _, seg := range strings.Split(route, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}
