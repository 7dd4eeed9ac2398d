package menu

import (
	"sort"

	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// ChangeSet accumulates pending permission edits during a bulk
// grant/revoke flow. Each entry is the desired CRUD vector for a route,
// diffed against the currently resolved state: an entry whose desired
// vector equals the resolved baseline is dropped from the set, so "no net
// change" is represented by an absent key and the submitted diff stays
// minimal.
type ChangeSet struct {
	pending map[string]permission.ActionVector
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{pending: make(map[string]permission.ActionVector)}
}

// Toggle flips one action for a route and returns the resulting desired
// vector. The starting point is the resolved baseline from perms overlaid
// with any pending edit for the route; when the result lands back on the
// baseline the route's entry is removed entirely.
func (cs *ChangeSet) Toggle(route string, action permission.Action, perms []permission.Permission) permission.ActionVector {
	baseline := permission.ResolveVector(route, perms)

	current, ok := cs.pending[route]
	if !ok {
		current = baseline
	}

	desired := current.Set(action, !current.Get(action))
	if desired == baseline {
		delete(cs.pending, route)
	} else {
		cs.pending[route] = desired
	}
	return desired
}

// Desired returns the effective vector for a route: the pending edit if
// one exists, otherwise the resolved baseline.
func (cs *ChangeSet) Desired(route string, perms []permission.Permission) permission.ActionVector {
	if v, ok := cs.pending[route]; ok {
		return v
	}
	return permission.ResolveVector(route, perms)
}

// Pending reports whether a route has an uncommitted edit.
func (cs *ChangeSet) Pending(route string) bool {
	_, ok := cs.pending[route]
	return ok
}

// Entry is one pending change ready for submission.
type Entry struct {
	Route   string                  `json:"route"`
	Desired permission.ActionVector `json:"desired"`
}

// Entries returns the pending changes sorted by route for stable
// submission payloads.
func (cs *ChangeSet) Entries() []Entry {
	out := make([]Entry, 0, len(cs.pending))
	for route, v := range cs.pending {
		out = append(out, Entry{Route: route, Desired: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Len returns the number of routes with pending edits.
func (cs *ChangeSet) Len() int {
	return len(cs.pending)
}

// Reset discards all pending edits, typically after a successful save or
// an explicit cancel.
func (cs *ChangeSet) Reset() {
	cs.pending = make(map[string]permission.ActionVector)
}
