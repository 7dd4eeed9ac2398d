package menu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenantctx/pkg/permission"
)

func testTree() []Node {
	return []Node{
		{
			ID:    "security",
			Label: "Security",
			Submenu: []Node{
				{ID: "users", Label: "Users", Route: "/security/users"},
				{ID: "roles", Label: "Roles", Route: "/security/roles"},
				{ID: "help", Label: "Help Center", Route: "/security/help", IsPublic: true},
			},
		},
		{
			ID:    "catalog",
			Label: "Catalog",
			Columns: []Column{
				{
					Title: "Products",
					Items: []Node{
						{ID: "items", Label: "Items", Route: "/catalog/items"},
						{ID: "brands", Label: "Brands", Route: "/catalog/brands"},
					},
				},
			},
		},
	}
}

func TestComputeVisibility_GrantedLeavesOnly(t *testing.T) {
	perms := []permission.Permission{
		{Route: "/security/users", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(testTree(), perms, Filter{})

	// Catalog has no visible leaves and is pruned entirely... except the
	// security group keeps users plus the public help leaf.
	require.Len(t, out, 1)
	sec := out[0]
	assert.Equal(t, "Security", sec.Label)
	assert.True(t, sec.Visible)
	assert.Equal(t, 2, sec.VisibleDescendants)
	require.Len(t, sec.Submenu, 2)
	assert.Equal(t, "Users", sec.Submenu[0].Label)
	assert.True(t, sec.Submenu[0].Actions.View)
	assert.Equal(t, "Help Center", sec.Submenu[1].Label)
	assert.True(t, sec.Submenu[1].Public)
}

func TestComputeVisibility_PublicBypassWithEmptyPermissions(t *testing.T) {
	// Numeric isPublic form must survive the wire format.
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"help","label":"Help","route":"/help","isPublic":1}`), &n))

	out := ComputeVisibility([]Node{n}, nil, Filter{})
	require.Len(t, out, 1)
	assert.True(t, out[0].Visible)
	assert.True(t, out[0].Public)
	assert.False(t, out[0].Actions.Any())
}

func TestComputeVisibility_GroupingNodeNeverSelfChecked(t *testing.T) {
	// The group carries a route of its own; it must still be driven by
	// descendant visibility, not by a grant on that route.
	tree := []Node{
		{
			ID:    "g",
			Label: "Group",
			Route: "/group",
			Submenu: []Node{
				{ID: "leaf", Label: "Leaf", Route: "/group/leaf"},
			},
		},
	}
	perms := []permission.Permission{
		{Route: "/group", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(tree, perms, Filter{})
	assert.Empty(t, out)
}

func TestComputeVisibility_ColumnsAggregation(t *testing.T) {
	perms := []permission.Permission{
		{Module: "catalog", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(testTree(), perms, Filter{})

	var catalog *VisibleNode
	for i := range out {
		if out[i].Label == "Catalog" {
			catalog = &out[i]
		}
	}
	require.NotNil(t, catalog)
	assert.Equal(t, 2, catalog.VisibleDescendants)
	require.Len(t, catalog.Columns, 1)
	assert.Equal(t, "Products", catalog.Columns[0].Title)
	assert.Len(t, catalog.Columns[0].Items, 2)
}

func TestComputeVisibility_TextFilter(t *testing.T) {
	perms := []permission.Permission{
		{Module: "security", Action: permission.ActionView, Status: permission.StatusActive},
		{Module: "catalog", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(testTree(), perms, Filter{Text: "role"})
	require.Len(t, out, 1)
	require.Len(t, out[0].Submenu, 1)
	assert.Equal(t, "Roles", out[0].Submenu[0].Label)

	// A group label match keeps the whole subtree.
	out = ComputeVisibility(testTree(), perms, Filter{Text: "catalog"})
	require.Len(t, out, 1)
	assert.Equal(t, "Catalog", out[0].Label)
	assert.Equal(t, 2, out[0].VisibleDescendants)
}

func TestComputeVisibility_ModuleFilterTopLevelExact(t *testing.T) {
	perms := []permission.Permission{
		{Module: "security", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(testTree(), perms, Filter{Module: "Security"})
	require.Len(t, out, 1)
	assert.Equal(t, "Security", out[0].Label)

	// Partial label match is not enough.
	out = ComputeVisibility(testTree(), perms, Filter{Module: "Sec"})
	assert.Empty(t, out)
}

func TestComputeVisibility_ActionFilter(t *testing.T) {
	perms := []permission.Permission{
		{Route: "/security/users", Action: permission.ActionEdit, Status: permission.StatusActive},
		{Route: "/security/roles", Action: permission.ActionView, Status: permission.StatusActive},
	}

	out := ComputeVisibility(testTree(), perms, Filter{Action: permission.ActionEdit})
	require.Len(t, out, 1)

	labels := make([]string, 0, len(out[0].Submenu))
	for _, c := range out[0].Submenu {
		labels = append(labels, c.Label)
	}
	// Roles has no edit grant; the public leaf bypasses the action filter.
	assert.Equal(t, []string{"Users", "Help Center"}, labels)
}

func TestComputeVisibility_IncludeDenied(t *testing.T) {
	out := ComputeVisibility(testTree(), nil, Filter{IncludeDenied: true})

	require.Len(t, out, 2)
	sec := out[0]
	require.Len(t, sec.Submenu, 3)
	assert.False(t, sec.Submenu[0].Visible)
	assert.True(t, sec.Submenu[2].Visible) // public leaf
	assert.Equal(t, 1, sec.VisibleDescendants)
	assert.True(t, sec.Visible)

	catalog := out[1]
	assert.False(t, catalog.Visible)
	assert.Equal(t, 0, catalog.VisibleDescendants)
}

func TestCountVisibleLeaves(t *testing.T) {
	perms := []permission.Permission{
		{Module: "security", Action: permission.ActionView, Status: permission.StatusActive},
	}
	out := ComputeVisibility(testTree(), perms, Filter{})
	assert.Equal(t, 3, CountVisibleLeaves(out))
}

func TestNode_IsLeaf(t *testing.T) {
	assert.True(t, (&Node{ID: "x"}).IsLeaf())
	assert.False(t, (&Node{Submenu: []Node{{}}}).IsLeaf())
	assert.False(t, (&Node{Columns: []Column{{Items: []Node{{}}}}}).IsLeaf())
	// An empty column list still counts as a leaf.
	assert.True(t, (&Node{Columns: []Column{{Title: "Empty"}}}).IsLeaf())
}
