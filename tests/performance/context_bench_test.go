package performance

import (
	"context"
	"fmt"
	"testing"

	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
	"github.com/platinummonkey/tenantctx/pkg/session"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

func benchUser() *identity.User {
	branches := make([]identity.Branch, 20)
	for i := range branches {
		branches[i] = identity.Branch{
			ID:        fmt.Sprintf("b%d", i),
			Code:      fmt.Sprintf("BR-%02d", i),
			Name:      fmt.Sprintf("Branch %d", i),
			CompanyID: "c1",
		}
	}
	return &identity.User{
		ID:               "u1",
		Email:            "bench@example.com",
		CompanyIDDefault: "c1",
		Companies: []identity.Company{
			{ID: "c1", Code: "ACME", Name: "Acme", IsDefault: true, Branches: branches},
		},
	}
}

func benchProvider() *tenant.FixtureProvider {
	sets := make([]tenant.FixtureGrantSet, 0, 20)
	for i := 0; i < 20; i++ {
		grants := make([]tenant.FixtureGrant, 0, 200)
		for j := 0; j < 50; j++ {
			route := fmt.Sprintf("/module%d/page%d", j%10, j)
			grants = append(grants,
				tenant.FixtureGrant{Route: route, Action: permission.ActionView},
				tenant.FixtureGrant{Route: route, Action: permission.ActionCreate},
				tenant.FixtureGrant{Route: route, Action: permission.ActionEdit},
				tenant.FixtureGrant{Route: route, Action: permission.ActionDelete},
			)
		}
		sets = append(sets, tenant.FixtureGrantSet{
			UserID:   "u1",
			BranchID: fmt.Sprintf("b%d", i),
			Grants:   grants,
		})
	}

	nodes := make([]menu.Node, 0, 10)
	for i := 0; i < 10; i++ {
		node := menu.Node{Label: fmt.Sprintf("Module %d", i)}
		for j := 0; j < 5; j++ {
			node.Submenu = append(node.Submenu, menu.Node{
				Label: fmt.Sprintf("Page %d", i*5+j),
				Route: fmt.Sprintf("/module%d/page%d", i, i*5+j),
			})
		}
		nodes = append(nodes, node)
	}

	return tenant.NewFixtureProvider(tenant.FixtureData{
		Permissions: sets,
		Menus:       []tenant.FixtureMenu{{CompanyID: "c1", Nodes: nodes}},
	})
}

func benchManager(b *testing.B) *tenant.Manager {
	b.Helper()
	provider := benchProvider()
	m, err := tenant.NewManager(tenant.Options{
		Store:       session.NewMemoryStore(),
		Permissions: provider,
		Menus:       provider,
	})
	if err != nil {
		b.Fatalf("Failed to create manager: %v", err)
	}
	if err := m.Establish(context.Background(), benchUser()); err != nil {
		b.Fatalf("Failed to establish context: %v", err)
	}
	m.Flush()
	return m
}

// BenchmarkEstablish measures the full context installation path,
// including provider fetches and session persistence.
func BenchmarkEstablish(b *testing.B) {
	provider := benchProvider()
	user := benchUser()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, err := tenant.NewManager(tenant.Options{
			Store:       session.NewMemoryStore(),
			Permissions: provider,
			Menus:       provider,
		})
		if err != nil {
			b.Fatalf("Failed to create manager: %v", err)
		}
		if err := m.Establish(ctx, user); err != nil {
			b.Fatalf("Failed to establish context: %v", err)
		}
		m.Flush()
	}
}

// BenchmarkHasPermission measures a cached route lookup, the hot path
// guarding every UI action.
func BenchmarkHasPermission(b *testing.B) {
	m := benchManager(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !m.HasPermission("/module3/page13", permission.ActionView) {
			b.Fatal("Expected grant")
		}
	}
}

// BenchmarkHasPermissionParallel exercises the read lock and cache under
// concurrent checkers.
func BenchmarkHasPermissionParallel(b *testing.B) {
	m := benchManager(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			route := fmt.Sprintf("/module%d/page%d", i%10, i%50)
			m.HasPermission(route, permission.ActionView)
			i++
		}
	})
}

// BenchmarkSwitchBranch measures an atomic branch transition including
// the permission refresh.
func BenchmarkSwitchBranch(b *testing.B) {
	m := benchManager(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		target := fmt.Sprintf("b%d", 1+i%19)
		if err := m.SwitchBranch(ctx, target); err != nil {
			b.Fatalf("Failed to switch branch: %v", err)
		}
		m.Flush()
	}
}

// BenchmarkVisibleMenu measures the annotated tree walk.
func BenchmarkVisibleMenu(b *testing.B) {
	m := benchManager(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if nodes := m.VisibleMenu(menu.Filter{}); len(nodes) == 0 {
			b.Fatal("Expected visible nodes")
		}
	}
}
