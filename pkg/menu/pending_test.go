package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenantctx/pkg/permission"
)

func TestChangeSet_ToggleTwiceRemovesEntry(t *testing.T) {
	perms := []permission.Permission{
		{Route: "/security/users", Action: permission.ActionView, Status: permission.StatusActive},
	}
	cs := NewChangeSet()

	v := cs.Toggle("/security/users", permission.ActionEdit, perms)
	assert.True(t, v.Edit)
	assert.Equal(t, 1, cs.Len())
	assert.True(t, cs.Pending("/security/users"))

	v = cs.Toggle("/security/users", permission.ActionEdit, perms)
	assert.False(t, v.Edit)
	assert.Equal(t, 0, cs.Len())
	assert.False(t, cs.Pending("/security/users"))
}

func TestChangeSet_ToggleStartsFromResolvedBaseline(t *testing.T) {
	perms := []permission.Permission{
		{Route: "/security/users", Action: permission.ActionView, Status: permission.StatusActive},
		{Module: "security", Action: permission.ActionDelete, Status: permission.StatusActive},
	}
	cs := NewChangeSet()

	// Revoking the module-derived delete grant yields a pending entry
	// that still carries the baseline view grant.
	v := cs.Toggle("/security/users", permission.ActionDelete, perms)
	assert.Equal(t, permission.ActionVector{View: true}, v)
	assert.Equal(t, 1, cs.Len())
}

func TestChangeSet_OverlaysExistingPendingEdit(t *testing.T) {
	cs := NewChangeSet()

	_ = cs.Toggle("/catalog/items", permission.ActionView, nil)
	v := cs.Toggle("/catalog/items", permission.ActionCreate, nil)

	assert.Equal(t, permission.ActionVector{View: true, Create: true}, v)
	assert.Equal(t, 1, cs.Len())
}

func TestChangeSet_EntriesSortedMinimalDiff(t *testing.T) {
	cs := NewChangeSet()
	_ = cs.Toggle("/b", permission.ActionView, nil)
	_ = cs.Toggle("/a", permission.ActionEdit, nil)
	_ = cs.Toggle("/c", permission.ActionView, nil)
	_ = cs.Toggle("/c", permission.ActionView, nil) // net zero, dropped

	entries := cs.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "/a", entries[0].Route)
	assert.Equal(t, "/b", entries[1].Route)
	assert.True(t, entries[0].Desired.Edit)
}

func TestChangeSet_DesiredAndReset(t *testing.T) {
	perms := []permission.Permission{
		{Route: "/a", Action: permission.ActionView, Status: permission.StatusActive},
	}
	cs := NewChangeSet()

	assert.Equal(t, permission.ActionVector{View: true}, cs.Desired("/a", perms))

	_ = cs.Toggle("/a", permission.ActionView, perms)
	assert.Equal(t, permission.ActionVector{}, cs.Desired("/a", perms))

	cs.Reset()
	assert.Equal(t, 0, cs.Len())
	assert.Equal(t, permission.ActionVector{View: true}, cs.Desired("/a", perms))
}
