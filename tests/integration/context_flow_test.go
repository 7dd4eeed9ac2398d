package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/tenantctx/pkg/api"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
	"github.com/platinummonkey/tenantctx/pkg/session"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

func fixtureProvider() *tenant.FixtureProvider {
	return tenant.NewFixtureProvider(tenant.FixtureData{
		Permissions: []tenant.FixtureGrantSet{
			{
				UserID:   "u1",
				BranchID: "b1",
				Grants: []tenant.FixtureGrant{
					{Route: "/orders", Action: permission.ActionView},
					{Route: "/orders", Action: permission.ActionCreate},
					{Module: "reports", Action: permission.ActionView},
				},
			},
			{
				UserID:   "u1",
				BranchID: "b2",
				Grants: []tenant.FixtureGrant{
					{Route: "/inventory", Action: permission.ActionView},
				},
			},
		},
		Menus: []tenant.FixtureMenu{
			{
				CompanyID: "c1",
				Nodes: []menu.Node{
					{Label: "Orders", Route: "/orders"},
					{Label: "Inventory", Route: "/inventory"},
				},
			},
		},
	})
}

const establishPayload = `{
	"id": "u1",
	"email": "ops@example.com",
	"firstName": "Jamie",
	"lastName": "Ortiz",
	"companyIdDefault": "c1",
	"companies": [
		{
			"id": "c1",
			"code": "ACME",
			"name": "Acme Wholesale",
			"isDefault": "true",
			"branches": [
				{"id": "b1", "code": "HQ-01", "name": "Headquarters"},
				{"id": "b2", "code": "WH-01", "name": "Warehouse"}
			]
		}
	]
}`

func newManager(t *testing.T, store session.Store) *tenant.Manager {
	t.Helper()
	provider := fixtureProvider()
	m, err := tenant.NewManager(tenant.Options{
		Store:       store,
		Permissions: provider,
		Menus:       provider,
	})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func do(t *testing.T, server *api.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// TestContextLifecycle drives the whole flow over the HTTP API:
// establish, query, switch branch, switch company rejection, clear.
func TestContextLifecycle(t *testing.T) {
	manager := newManager(t, session.NewMemoryStore())
	server := api.NewServer(manager, nil)

	// No context yet
	if w := do(t, server, "GET", "/v1/context", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before establish, got %d", w.Code)
	}
	if w := do(t, server, "POST", "/v1/context/branch", `{"branchId":"b2"}`); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 switching without context, got %d", w.Code)
	}

	// Establish
	w := do(t, server, "POST", "/v1/context/establish", establishPayload)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from establish, got %d: %s", w.Code, w.Body.String())
	}
	var state tenant.State
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to parse establish response: %v", err)
	}
	if state.CurrentCompany == nil || state.CurrentCompany.ID != "c1" {
		t.Errorf("Expected company c1, got %+v", state.CurrentCompany)
	}
	if state.CurrentBranch == nil || state.CurrentBranch.ID != "b1" {
		t.Errorf("Expected branch b1, got %+v", state.CurrentBranch)
	}
	if len(state.AvailableBranches) != 2 {
		t.Errorf("Expected 2 available branches, got %d", len(state.AvailableBranches))
	}

	// Permission checks
	check := func(route, action string) bool {
		w := do(t, server, "GET", "/v1/permissions/check?route="+route+"&action="+action, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200 from check, got %d", w.Code)
		}
		var res struct {
			Granted bool `json:"granted"`
		}
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("Failed to parse check response: %v", err)
		}
		return res.Granted
	}
	if !check("/orders", "view") {
		t.Error("Expected /orders view to be granted on b1")
	}
	if check("/orders", "delete") {
		t.Error("Expected /orders delete to be denied on b1")
	}
	if !check("/reports/daily", "view") {
		t.Error("Expected module fallback to grant /reports/daily view")
	}

	// Switch branch swaps the permission set
	w = do(t, server, "POST", "/v1/context/branch", `{"branchId":"b2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from branch switch, got %d: %s", w.Code, w.Body.String())
	}
	manager.Flush()
	if check("/orders", "view") {
		t.Error("Expected /orders view to be denied after switching to b2")
	}
	if !check("/inventory", "view") {
		t.Error("Expected /inventory view to be granted on b2")
	}

	// Unknown branch and company
	if w := do(t, server, "POST", "/v1/context/branch", `{"branchId":"b99"}`); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for unknown branch, got %d", w.Code)
	}
	if w := do(t, server, "POST", "/v1/context/company", `{"companyId":"c99"}`); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for unknown company, got %d", w.Code)
	}

	// Clear
	if w := do(t, server, "POST", "/v1/context/clear", ""); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 from clear, got %d", w.Code)
	}
	if w := do(t, server, "GET", "/v1/context", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after clear, got %d", w.Code)
	}
}

// TestContextResumeAcrossInstances persists through a shared store and
// resumes on a fresh server instance, as happens after a restart.
func TestContextResumeAcrossInstances(t *testing.T) {
	store := session.NewMemoryStore()

	first := newManager(t, store)
	server1 := api.NewServer(first, nil)
	if w := do(t, server1, "POST", "/v1/context/establish", establishPayload); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from establish, got %d", w.Code)
	}
	if w := do(t, server1, "POST", "/v1/context/branch", `{"branchId":"b2"}`); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from branch switch, got %d", w.Code)
	}
	first.Flush()

	second := newManager(t, store)
	server2 := api.NewServer(second, nil)

	w := do(t, server2, "POST", "/v1/context/resume", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from resume, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Resumed bool `json:"resumed"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("Failed to parse resume response: %v", err)
	}
	if !res.Resumed {
		t.Fatal("Expected resume to restore the persisted context")
	}

	w = do(t, server2, "GET", "/v1/context", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from context after resume, got %d", w.Code)
	}
	var state tenant.State
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to parse context response: %v", err)
	}
	if state.CurrentBranch == nil || state.CurrentBranch.ID != "b2" {
		t.Errorf("Expected resumed branch b2, got %+v", state.CurrentBranch)
	}
}

// TestMenuEndpointFilters exercises the menu query parameters end to end.
func TestMenuEndpointFilters(t *testing.T) {
	manager := newManager(t, session.NewMemoryStore())
	server := api.NewServer(manager, nil)
	if w := do(t, server, "POST", "/v1/context/establish", establishPayload); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 from establish, got %d", w.Code)
	}

	decode := func(w *httptest.ResponseRecorder) []menu.VisibleNode {
		var nodes []menu.VisibleNode
		if err := json.NewDecoder(w.Body).Decode(&nodes); err != nil {
			t.Fatalf("Failed to parse menu response: %v", err)
		}
		return nodes
	}

	// Default filter drops the denied Inventory leaf on b1
	nodes := decode(do(t, server, "GET", "/v1/menu", ""))
	if len(nodes) != 1 || nodes[0].Label != "Orders" {
		t.Errorf("Expected only Orders to be visible, got %+v", nodes)
	}

	// includeDenied keeps it with the verdict attached
	nodes = decode(do(t, server, "GET", "/v1/menu?includeDenied=true", ""))
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes with includeDenied, got %d", len(nodes))
	}
	if nodes[1].Visible {
		t.Error("Expected Inventory to be marked not visible")
	}

	// Text filter
	nodes = decode(do(t, server, "GET", "/v1/menu?text=ord", ""))
	if len(nodes) != 1 || nodes[0].Label != "Orders" {
		t.Errorf("Expected text filter to keep Orders only, got %+v", nodes)
	}
	nodes = decode(do(t, server, "GET", "/v1/menu?text=zzz", ""))
	if len(nodes) != 0 {
		t.Errorf("Expected no matches for text=zzz, got %d", len(nodes))
	}
}
