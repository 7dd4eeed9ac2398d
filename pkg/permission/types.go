package permission

// Action is an operation a permission grants on its target.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
	ActionSwitch Action = "switch"
)

// CRUDActions is the fixed action set menu leaves are annotated with.
var CRUDActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// Status marks whether a permission record counts during resolution.
// Only StatusActive records grant anything; inactive records are kept on
// the wire for audit purposes but never match.
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

// Permission is the atomic grant unit. Exactly one of Route or Module is
// meaningful for matching: a populated Route makes this a route-scoped
// grant, an empty Route with a populated Module makes it a legacy
// module-scoped grant.
type Permission struct {
	ID     string `json:"id,omitempty"`
	Route  string `json:"route,omitempty"`
	Module string `json:"module,omitempty"`
	Action Action `json:"action"`
	Status Status `json:"status"`
}

// Active reports whether the record counts during resolution.
func (p Permission) Active() bool {
	return p.Status == StatusActive
}

// RouteScoped reports whether the grant matches by exact route.
func (p Permission) RouteScoped() bool {
	return p.Route != ""
}

// ActionVector is the resolved CRUD state for a single route.
type ActionVector struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// Any reports whether at least one action is granted.
func (v ActionVector) Any() bool {
	return v.View || v.Create || v.Edit || v.Delete
}

// Get returns the vector entry for an action; unknown actions are false.
func (v ActionVector) Get(a Action) bool {
	switch a {
	case ActionView:
		return v.View
	case ActionCreate:
		return v.Create
	case ActionEdit:
		return v.Edit
	case ActionDelete:
		return v.Delete
	}
	return false
}

// Set returns a copy of the vector with the given action set to val.
func (v ActionVector) Set(a Action, val bool) ActionVector {
	switch a {
	case ActionView:
		v.View = val
	case ActionCreate:
		v.Create = val
	case ActionEdit:
		v.Edit = val
	case ActionDelete:
		v.Delete = val
	}
	return v
}
