package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// SQLProvider resolves permissions and menus straight from the admin
// database. Deployments running the engine inside the backend-for-
// frontend use it instead of a second HTTP hop. The schema it expects:
//
//	user_branch_permissions(user_id, branch_id, id, route, module, action, status)
//	menu_nodes(id, company_id, branch_id, parent_id, label, route,
//	           description, icon, is_public, column_title, position)
//
// Menu rows are flat; the provider rebuilds the tree by parent_id, with
// column_title grouping children into mega-menu columns.
type SQLProvider struct {
	db *sql.DB
}

// NewSQLProvider wraps an open database handle. The caller owns the
// handle's lifecycle.
func NewSQLProvider(db *sql.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

// GetPermissions loads the grants for (userID, branchID). Inactive rows
// are returned too — resolution filters by status so audit screens can
// still show them.
func (p *SQLProvider) GetPermissions(ctx context.Context, userID, branchID string) ([]permission.Permission, error) {
	if branchID == "" {
		return []permission.Permission{}, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, COALESCE(route, ''), COALESCE(module, ''), action, status
		FROM user_branch_permissions
		WHERE user_id = $1 AND branch_id = $2
	`, userID, branchID)
	if err != nil {
		return nil, fmt.Errorf("tenant: query permissions: %w", err)
	}
	defer rows.Close()

	perms := []permission.Permission{}
	for rows.Next() {
		var perm permission.Permission
		var action string
		var status int
		if err := rows.Scan(&perm.ID, &perm.Route, &perm.Module, &action, &status); err != nil {
			return nil, fmt.Errorf("tenant: scan permission: %w", err)
		}
		perm.Action = permission.Action(action)
		perm.Status = permission.Status(status)
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant: iterate permissions: %w", err)
	}
	return perms, nil
}

// GetMenuForCompany rebuilds the company's menu tree.
func (p *SQLProvider) GetMenuForCompany(ctx context.Context, companyID string) ([]menu.Node, error) {
	return p.queryMenu(ctx, `
		SELECT id, COALESCE(parent_id, ''), label, COALESCE(route, ''),
		       COALESCE(description, ''), COALESCE(icon, ''), is_public,
		       COALESCE(column_title, ''), position
		FROM menu_nodes
		WHERE company_id = $1
		ORDER BY position
	`, companyID)
}

// GetMenuForBranch rebuilds a branch-specific menu tree.
func (p *SQLProvider) GetMenuForBranch(ctx context.Context, branchID string) ([]menu.Node, error) {
	return p.queryMenu(ctx, `
		SELECT id, COALESCE(parent_id, ''), label, COALESCE(route, ''),
		       COALESCE(description, ''), COALESCE(icon, ''), is_public,
		       COALESCE(column_title, ''), position
		FROM menu_nodes
		WHERE branch_id = $1
		ORDER BY position
	`, branchID)
}

// Ping checks the database, for readiness probes.
func (p *SQLProvider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type menuRow struct {
	node        menu.Node
	parentID    string
	columnTitle string
	position    int
}

func (p *SQLProvider) queryMenu(ctx context.Context, query, arg string) ([]menu.Node, error) {
	rows, err := p.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("tenant: query menu: %w", err)
	}
	defer rows.Close()

	var flat []menuRow
	for rows.Next() {
		var r menuRow
		var isPublic bool
		if err := rows.Scan(&r.node.ID, &r.parentID, &r.node.Label, &r.node.Route,
			&r.node.Description, &r.node.Icon, &isPublic, &r.columnTitle, &r.position); err != nil {
			return nil, fmt.Errorf("tenant: scan menu node: %w", err)
		}
		r.node.IsPublic = identity.Flag(isPublic)
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant: iterate menu: %w", err)
	}

	return buildMenuTree(flat), nil
}

// buildMenuTree assembles flat rows into the nested Node forest. Rows
// arrive position-ordered; children are attached depth-first so deeply
// nested menus work regardless of row order between levels.
func buildMenuTree(flat []menuRow) []menu.Node {
	children := make(map[string][]menuRow)
	var roots []menuRow
	for _, r := range flat {
		if r.parentID == "" {
			roots = append(roots, r)
			continue
		}
		children[r.parentID] = append(children[r.parentID], r)
	}

	var build func(r menuRow) menu.Node
	build = func(r menuRow) menu.Node {
		node := r.node
		kids := children[r.node.ID]
		sort.SliceStable(kids, func(i, j int) bool { return kids[i].position < kids[j].position })

		columnIndex := map[string]int{}
		for _, kid := range kids {
			built := build(kid)
			if kid.columnTitle == "" {
				node.Submenu = append(node.Submenu, built)
				continue
			}
			idx, ok := columnIndex[kid.columnTitle]
			if !ok {
				idx = len(node.Columns)
				columnIndex[kid.columnTitle] = idx
				node.Columns = append(node.Columns, menu.Column{Title: kid.columnTitle})
			}
			node.Columns[idx].Items = append(node.Columns[idx].Items, built)
		}
		return node
	}

	sort.SliceStable(roots, func(i, j int) bool { return roots[i].position < roots[j].position })
	out := make([]menu.Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}
