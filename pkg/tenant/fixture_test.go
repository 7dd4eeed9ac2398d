package tenant

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenantctx/pkg/permission"
)

const fixtureYAML = `
permissions:
  - userId: u1
    branchId: b1
    grants:
      - route: /orders
        action: view
      - module: reports
        action: edit
        status: 0
menus:
  - companyId: c1
    nodes:
      - id: n1
        label: Orders
        route: /orders
branchMenus:
  - branchId: b1
    nodes:
      - id: n2
        label: Branch Home
        route: /home
`

const fixtureJSON = `{
  "permissions": [
    {
      "userId": "u1",
      "branchId": "b1",
      "grants": [{"route": "/orders", "action": "view"}]
    }
  ]
}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixtureProvider_YAML(t *testing.T) {
	p, err := LoadFixtureProvider(writeFixture(t, "fixture.yaml", fixtureYAML), nil)
	require.NoError(t, err)

	perms, err := p.GetPermissions(context.Background(), "u1", "b1")
	require.NoError(t, err)
	require.Len(t, perms, 2)

	// status defaults to active when omitted
	assert.Equal(t, permission.StatusActive, perms[0].Status)
	assert.Equal(t, "/orders", perms[0].Route)

	// explicit status is honored
	assert.Equal(t, permission.StatusInactive, perms[1].Status)
	assert.Equal(t, "reports", perms[1].Module)

	nodes, err := p.GetMenuForCompany(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Orders", nodes[0].Label)

	nodes, err = p.GetMenuForBranch(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Branch Home", nodes[0].Label)
}

func TestLoadFixtureProvider_JSON(t *testing.T) {
	p, err := LoadFixtureProvider(writeFixture(t, "fixture.json", fixtureJSON), nil)
	require.NoError(t, err)

	perms, err := p.GetPermissions(context.Background(), "u1", "b1")
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, permission.ActionView, perms[0].Action)
}

func TestLoadFixtureProvider_Errors(t *testing.T) {
	_, err := LoadFixtureProvider(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = LoadFixtureProvider(writeFixture(t, "broken.json", "{nope"), nil)
	assert.Error(t, err)
}

func TestFixtureProvider_UnknownKeys(t *testing.T) {
	p := NewFixtureProvider(FixtureData{})

	perms, err := p.GetPermissions(context.Background(), "nobody", "nowhere")
	require.NoError(t, err)
	assert.Empty(t, perms)

	nodes, err := p.GetMenuForCompany(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestFixtureProvider_Watch(t *testing.T) {
	path := writeFixture(t, "fixture.yaml", fixtureYAML)
	p, err := LoadFixtureProvider(path, nil)
	require.NoError(t, err)
	require.NoError(t, p.Watch(path))
	defer p.Close()

	// a second watch on the same provider is refused
	assert.Error(t, p.Watch(path))

	updated := `
permissions:
  - userId: u1
    branchId: b1
    grants:
      - route: /inventory
        action: view
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		perms, err := p.GetPermissions(context.Background(), "u1", "b1")
		return err == nil && len(perms) == 1 && perms[0].Route == "/inventory"
	}, 3*time.Second, 25*time.Millisecond, "fixture reload did not land")
}

func TestFixtureProvider_WatchKeepsLastGoodOnParseError(t *testing.T) {
	path := writeFixture(t, "fixture.yaml", fixtureYAML)
	p, err := LoadFixtureProvider(path, nil)
	require.NoError(t, err)
	require.NoError(t, p.Watch(path))
	defer p.Close()

	require.NoError(t, os.WriteFile(path, []byte("{unclosed: ["), 0o644))

	// give the watcher a moment; the dataset must stay intact
	assert.Never(t, func() bool {
		perms, err := p.GetPermissions(context.Background(), "u1", "b1")
		return err != nil || len(perms) != 2
	}, 500*time.Millisecond, 50*time.Millisecond)
}
