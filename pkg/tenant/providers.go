package tenant

import (
	"context"

	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// PermissionProvider resolves the permission set for a (user, branch)
// pair. Implementations return an empty slice — not an error — when the
// pair simply has no grants; errors are reserved for transport or
// backend failures, which the Manager treats as non-fatal (the context
// installs with an empty permission set).
type PermissionProvider interface {
	GetPermissions(ctx context.Context, userID, branchID string) ([]permission.Permission, error)
}

// MenuProvider serves the menu tree the visibility computation consumes.
// The returned tree is read-only input; the engine never writes back.
type MenuProvider interface {
	GetMenuForCompany(ctx context.Context, companyID string) ([]menu.Node, error)
	GetMenuForBranch(ctx context.Context, branchID string) ([]menu.Node, error)
}
