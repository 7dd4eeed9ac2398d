package tenant

import (
	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// Session store namespaces and keys the engine persists under.
const (
	NamespaceUser = "user"
	NamespaceMenu = "menu"

	// KeyCurrent holds the full normalized user (namespace "user") or
	// the cached menu tree (namespace "menu"); both carry a TTL.
	KeyCurrent = "current"

	// KeyCurrentCompanyID and KeyCurrentBranchID persist the active
	// context ids without TTL; they live until explicit clear/logout.
	KeyCurrentCompanyID = "currentCompanyId"
	KeyCurrentBranchID  = "currentBranchId"
)

// State is the session's context snapshot as exposed to consumers. The
// Manager hands out copies; the embedded opaque blobs (branch address,
// contact, settings) are shared and must be treated as read-only.
type State struct {
	CurrentCompany    *identity.Company       `json:"currentCompany,omitempty"`
	CurrentBranch     *identity.Branch        `json:"currentBranch,omitempty"`
	AvailableBranches []identity.Branch       `json:"availableBranches"`
	User              *identity.User          `json:"user,omitempty"`
	Permissions       []permission.Permission `json:"permissions"`
	Menu              []menu.Node             `json:"menu,omitempty"`
	Loading           bool                    `json:"isLoading"`
	Err               error                   `json:"-"`
}

// Established reports whether a context has been installed.
func (s State) Established() bool {
	return s.User != nil && s.CurrentCompany != nil
}

// clone returns a consumer-safe copy: top-level slices and pointed-to
// structs are duplicated so a later switch cannot mutate what a reader
// already holds.
func (s *State) clone() State {
	out := State{
		Loading: s.Loading,
		Err:     s.Err,
	}
	if s.CurrentCompany != nil {
		c := *s.CurrentCompany
		out.CurrentCompany = &c
	}
	if s.CurrentBranch != nil {
		b := *s.CurrentBranch
		out.CurrentBranch = &b
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.AvailableBranches = append([]identity.Branch(nil), s.AvailableBranches...)
	out.Permissions = append([]permission.Permission(nil), s.Permissions...)
	out.Menu = append([]menu.Node(nil), s.Menu...)
	return out
}
