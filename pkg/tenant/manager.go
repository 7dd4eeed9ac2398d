package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/observability"
	"github.com/platinummonkey/tenantctx/pkg/permission"
	"github.com/platinummonkey/tenantctx/pkg/session"
)

const (
	// DefaultUserTTL and DefaultMenuTTL bound how long persisted session
	// state survives a reload.
	DefaultUserTTL = 30 * time.Minute
	DefaultMenuTTL = 30 * time.Minute

	persistTimeout = 5 * time.Second
)

// Options configures a Manager. Store and Permissions are required;
// everything else has a usable default.
type Options struct {
	Store       session.Store
	Permissions PermissionProvider
	Menus       MenuProvider
	Logger      *observability.Logger
	Metrics     *Metrics

	// UserTTL/MenuTTL control persisted session expiry.
	UserTTL time.Duration
	MenuTTL time.Duration

	// CacheSize/CacheTTL tune the per-route action vector cache.
	CacheSize int
	CacheTTL  time.Duration
}

// Manager is the single owner of a session's context state. All
// mutation goes through Establish, SwitchBranch, SwitchCompany and
// Clear; consumers read via Snapshot, the query helpers, or a
// subscription.
type Manager struct {
	mu    sync.RWMutex
	state State

	store   session.Store
	perms   PermissionProvider
	menus   MenuProvider
	log     *observability.Logger
	metrics *Metrics
	cache   *permission.VectorCache
	userTTL time.Duration
	menuTTL time.Duration
	clock   func() time.Time

	persistWG sync.WaitGroup

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewManager creates a Manager. It returns an error when a required
// dependency is missing.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tenant: session store is required")
	}
	if opts.Permissions == nil {
		return nil, fmt.Errorf("tenant: permission provider is required")
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.UserTTL <= 0 {
		opts.UserTTL = DefaultUserTTL
	}
	if opts.MenuTTL <= 0 {
		opts.MenuTTL = DefaultMenuTTL
	}

	return &Manager{
		store:   opts.Store,
		perms:   opts.Permissions,
		menus:   opts.Menus,
		log:     opts.Logger.WithField("component", "tenant"),
		metrics: opts.Metrics,
		cache:   permission.NewVectorCache(opts.CacheSize, opts.CacheTTL),
		userTTL: opts.UserTTL,
		menuTTL: opts.MenuTTL,
		clock:   time.Now,
		subs:    make(map[int]func(State)),
	}, nil
}

// Snapshot returns a copy of the current state. The copy is stable: a
// later switch never mutates what the caller holds.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Subscribe registers a callback invoked with a state snapshot after
// every published transition. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// Establish installs the context for a freshly authenticated user.
//
// Company preference: the user's default company id, then the company
// flagged as default, then the first company. With no company at all it
// fails with NoCompanyAvailableError. The available branch set is the
// user's branches owned by the resolved company — branches of other
// companies never enter the set. Branch preference: the user's current
// branch id among the filtered set, then the first branch, else unset
// (permissions resolve to the empty set). Provider failures are
// non-fatal: the context still installs, with empty permissions and/or
// no menu, and the failure is logged.
func (m *Manager) Establish(ctx context.Context, user *identity.User) error {
	start := m.clock()

	if user == nil {
		m.metrics.establish("error", m.clock().Sub(start).Seconds())
		return fmt.Errorf("tenant: establish: user is nil")
	}

	company := resolveCompany(user)
	if company == nil {
		m.metrics.establish("no_company", m.clock().Sub(start).Seconds())
		return &NoCompanyAvailableError{UserID: user.ID}
	}

	branches := branchesForCompany(user, company.ID)
	branch := resolveBranch(user.CurrentBranchID, branches)

	perms, nodes := m.fetchContextData(ctx, user.ID, branch, company.ID)

	u := *user
	if branch != nil {
		u.CurrentBranchID = branch.ID
	}

	next := State{
		CurrentCompany:    company,
		CurrentBranch:     branch,
		AvailableBranches: branches,
		User:              &u,
		Permissions:       perms,
		Menu:              nodes,
	}
	m.publish(next)

	m.persistAsync(func(pctx context.Context) {
		m.persistSet(pctx, NamespaceUser, KeyCurrent, &u, session.SetOptions{TTL: m.userTTL})
		m.persistRaw(pctx, NamespaceUser, KeyCurrentCompanyID, company.ID, session.SetOptions{})
		branchID := ""
		if branch != nil {
			branchID = branch.ID
		}
		m.persistRaw(pctx, NamespaceUser, KeyCurrentBranchID, branchID, session.SetOptions{})
		if nodes != nil {
			m.persistSet(pctx, NamespaceMenu, KeyCurrent, nodes, session.SetOptions{TTL: m.menuTTL})
		}
	})

	m.metrics.establish("ok", m.clock().Sub(start).Seconds())
	m.log.WithFields(map[string]interface{}{
		"user_id":    u.ID,
		"company_id": company.ID,
		"branch_set": branch != nil,
	}).Info("context established")
	return nil
}

// EstablishFromPayload normalizes a wire payload and establishes the
// context from it.
func (m *Manager) EstablishFromPayload(ctx context.Context, p *identity.UserPayload) error {
	return m.Establish(ctx, identity.Normalize(p))
}

// SwitchBranch makes branchID the active branch of the current company.
//
// Switching to the already-active branch is a no-op: the state is left
// byte-for-byte identical and no persistence write is issued. A target
// outside the available set is rejected with BranchNotAvailableError and
// the state is untouched. Otherwise the in-memory branch changes
// synchronously — any reader after this call returns sees it — while
// persistence and the permission refresh for the new branch run
// asynchronously; the persistence write skips the change broadcast so
// the process's own write does not loop back as a reload trigger.
func (m *Manager) SwitchBranch(ctx context.Context, branchID string) error {
	m.mu.Lock()
	if !m.state.Established() {
		m.mu.Unlock()
		m.metrics.switched("branch", "rejected")
		return ErrNoActiveContext
	}
	if m.state.CurrentBranch != nil && m.state.CurrentBranch.ID == branchID {
		m.mu.Unlock()
		m.metrics.switched("branch", "noop")
		return nil
	}

	var target *identity.Branch
	for i := range m.state.AvailableBranches {
		if m.state.AvailableBranches[i].ID == branchID {
			b := m.state.AvailableBranches[i]
			target = &b
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		m.metrics.switched("branch", "rejected")
		return &BranchNotAvailableError{BranchID: branchID}
	}

	m.state.CurrentBranch = target
	m.state.User.CurrentBranchID = branchID
	m.cache.Purge()
	userID := m.state.User.ID
	snap := m.state.clone()
	m.mu.Unlock()

	m.notify(snap)

	m.persistAsync(func(pctx context.Context) {
		m.persistRaw(pctx, NamespaceUser, KeyCurrentBranchID, branchID, session.SetOptions{SkipBroadcast: true})
		m.refreshPermissions(pctx, userID, branchID)
	})

	m.metrics.switched("branch", "ok")
	return nil
}

// SwitchCompany re-runs the establish steps scoped to the target
// company. Branches and permissions of the previous company are
// discarded entirely — the new state is swapped in atomically, so not
// even a transient read can observe a cross-tenant mix. Switching to the
// active company is a no-op.
func (m *Manager) SwitchCompany(ctx context.Context, companyID string) error {
	m.mu.RLock()
	if !m.state.Established() {
		m.mu.RUnlock()
		m.metrics.switched("company", "rejected")
		return ErrNoActiveContext
	}
	if m.state.CurrentCompany.ID == companyID {
		m.mu.RUnlock()
		m.metrics.switched("company", "noop")
		return nil
	}
	user := *m.state.User
	m.mu.RUnlock()

	company := user.CompanyByID(companyID)
	if company == nil {
		m.metrics.switched("company", "rejected")
		return &CompanyNotAvailableError{CompanyID: companyID}
	}

	branches := branchesForCompany(&user, companyID)
	branch := resolveBranch(user.CurrentBranchID, branches)
	perms, nodes := m.fetchContextData(ctx, user.ID, branch, companyID)

	u := user
	u.CurrentBranchID = ""
	if branch != nil {
		u.CurrentBranchID = branch.ID
	}

	m.mu.Lock()
	// The context may have been cleared while the providers were in
	// flight; installing a stale result would resurrect a logged-out
	// session.
	if !m.state.Established() || m.state.User.ID != user.ID {
		m.mu.Unlock()
		m.metrics.switched("company", "rejected")
		return ErrNoActiveContext
	}
	m.state = State{
		CurrentCompany:    company,
		CurrentBranch:     branch,
		AvailableBranches: branches,
		User:              &u,
		Permissions:       perms,
		Menu:              nodes,
	}
	m.cache.Purge()
	snap := m.state.clone()
	m.mu.Unlock()

	m.notify(snap)

	m.persistAsync(func(pctx context.Context) {
		m.persistSet(pctx, NamespaceUser, KeyCurrent, &u, session.SetOptions{TTL: m.userTTL})
		m.persistRaw(pctx, NamespaceUser, KeyCurrentCompanyID, companyID, session.SetOptions{})
		m.persistRaw(pctx, NamespaceUser, KeyCurrentBranchID, u.CurrentBranchID, session.SetOptions{})
		if nodes != nil {
			m.persistSet(pctx, NamespaceMenu, KeyCurrent, nodes, session.SetOptions{TTL: m.menuTTL})
		}
	})

	m.metrics.switched("company", "ok")
	return nil
}

// Clear tears the context down at logout. The in-memory reset is
// synchronous; wiping the session store is best-effort and must not
// block navigation, so it runs asynchronously.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.state = State{
		AvailableBranches: []identity.Branch{},
		Permissions:       []permission.Permission{},
	}
	m.cache.Purge()
	snap := m.state.clone()
	m.mu.Unlock()

	m.notify(snap)

	m.persistAsync(func(pctx context.Context) {
		if err := m.store.ClearAll(pctx); err != nil {
			m.metrics.persistError()
			m.log.WithError(err).Warn("session store clear failed")
		}
	})
}

// Resume restores a context persisted by a previous process run. It
// returns false when nothing usable was persisted (or the TTL elapsed).
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	var user identity.User
	if err := session.GetJSON(ctx, m.store, NamespaceUser, KeyCurrent, &user); err != nil {
		if err == session.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("tenant: resume: %w", err)
	}

	if raw, err := m.store.Get(ctx, NamespaceUser, KeyCurrentCompanyID); err == nil && len(raw) > 0 {
		user.CompanyIDDefault = string(raw)
	}
	if raw, err := m.store.Get(ctx, NamespaceUser, KeyCurrentBranchID); err == nil {
		user.CurrentBranchID = string(raw)
	}

	if err := m.Establish(ctx, &user); err != nil {
		return false, err
	}
	return true, nil
}

// HasPermission reports whether the active context grants action on
// route. CRUD actions go through the per-route vector cache.
func (m *Manager) HasPermission(route string, action permission.Action) bool {
	m.mu.RLock()
	perms := m.state.Permissions
	m.mu.RUnlock()

	var granted bool
	switch action {
	case permission.ActionView, permission.ActionCreate, permission.ActionEdit, permission.ActionDelete:
		granted = m.cache.Resolve(route, perms).Get(action)
	default:
		granted = permission.IsGranted(route, action, perms)
	}
	m.metrics.permissionCheck(granted)
	return granted
}

// HasModuleAccess reports whether any active grant gives action within
// the coarse module, via either a module-scoped grant or a route-scoped
// grant whose route lives under the module.
func (m *Manager) HasModuleAccess(module string, action permission.Action) bool {
	m.mu.RLock()
	perms := m.state.Permissions
	m.mu.RUnlock()

	for _, p := range perms {
		if !p.Active() || p.Action != action {
			continue
		}
		if p.RouteScoped() {
			if permission.ModuleFromRoute(p.Route) == module {
				return true
			}
		} else if p.Module == module {
			return true
		}
	}
	return false
}

// VisibleMenu annotates the cached menu tree for the active context.
func (m *Manager) VisibleMenu(f menu.Filter) []menu.VisibleNode {
	m.mu.RLock()
	nodes := m.state.Menu
	perms := m.state.Permissions
	m.mu.RUnlock()
	return menu.ComputeVisibility(nodes, perms, f)
}

// Flush waits for in-flight asynchronous persistence and refresh work.
// Used at shutdown and by tests; regular callers never need it.
func (m *Manager) Flush() {
	m.persistWG.Wait()
}

// fetchContextData resolves permissions and the menu concurrently.
// Either provider failing is non-fatal: the failure is logged and
// counted, and the corresponding data defaults to empty.
func (m *Manager) fetchContextData(ctx context.Context, userID string, branch *identity.Branch, companyID string) ([]permission.Permission, []menu.Node) {
	perms := []permission.Permission{}
	var nodes []menu.Node

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if branch == nil {
			// No branch resolved: permission resolution yields the
			// empty set without a provider round trip.
			return nil
		}
		p, err := m.perms.GetPermissions(gctx, userID, branch.ID)
		if err != nil {
			m.metrics.providerError("permissions")
			m.log.WithError(err).Warn("permission provider failed; continuing with empty set")
			return nil
		}
		if p != nil {
			perms = p
		}
		return nil
	})
	if m.menus != nil {
		g.Go(func() error {
			n, err := m.menus.GetMenuForCompany(gctx, companyID)
			if err != nil {
				m.metrics.providerError("menu")
				m.log.WithError(err).Warn("menu provider failed; continuing without menu")
				return nil
			}
			nodes = n
			return nil
		})
	}
	_ = g.Wait()

	return perms, nodes
}

// refreshPermissions re-resolves permissions after a branch switch and
// applies the result only if that branch is still active — a result that
// arrives after a subsequent switch is discarded.
func (m *Manager) refreshPermissions(ctx context.Context, userID, branchID string) {
	perms, err := m.perms.GetPermissions(ctx, userID, branchID)
	if err != nil {
		m.metrics.providerError("permissions")
		m.log.WithError(err).Warn("permission refresh failed; keeping previous set")
		return
	}
	if perms == nil {
		perms = []permission.Permission{}
	}

	m.mu.Lock()
	if !m.state.Established() || m.state.User.ID != userID ||
		m.state.CurrentBranch == nil || m.state.CurrentBranch.ID != branchID {
		m.mu.Unlock()
		return
	}
	m.state.Permissions = perms
	m.cache.Purge()
	snap := m.state.clone()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) publish(next State) {
	m.mu.Lock()
	m.state = next
	m.cache.Purge()
	snap := m.state.clone()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) notify(snap State) {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// persistAsync runs fn with its own deadline, decoupled from the caller:
// in-memory state is already published when fn starts, and fn's failure
// must never surface to the caller.
func (m *Manager) persistAsync(fn func(ctx context.Context)) {
	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()
		defer observability.RecoverPanic(m.log, "context persistence")
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (m *Manager) persistSet(ctx context.Context, namespace, key string, v interface{}, opts session.SetOptions) {
	if err := session.SetJSON(ctx, m.store, namespace, key, v, opts); err != nil {
		m.metrics.persistError()
		m.log.WithError(err).WithFields(map[string]interface{}{
			"namespace": namespace,
			"key":       key,
		}).Warn("session persistence failed")
	}
}

func (m *Manager) persistRaw(ctx context.Context, namespace, key, value string, opts session.SetOptions) {
	if err := m.store.Set(ctx, namespace, key, []byte(value), opts); err != nil {
		m.metrics.persistError()
		m.log.WithError(err).WithFields(map[string]interface{}{
			"namespace": namespace,
			"key":       key,
		}).Warn("session persistence failed")
	}
}

// resolveCompany picks the active company: default id, default flag,
// then first.
func resolveCompany(u *identity.User) *identity.Company {
	if c := u.CompanyByID(u.CompanyIDDefault); c != nil {
		c2 := *c
		return &c2
	}
	for i := range u.Companies {
		if u.Companies[i].IsDefault {
			c := u.Companies[i]
			return &c
		}
	}
	if len(u.Companies) > 0 {
		c := u.Companies[0]
		return &c
	}
	return nil
}

// branchesForCompany filters the user's branch access records to those
// owned by companyID. This is the tenant isolation boundary: a record
// whose owning company differs never enters the active set.
func branchesForCompany(u *identity.User, companyID string) []identity.Branch {
	out := []identity.Branch{}
	for _, b := range u.Branches {
		if b.CompanyID == companyID {
			out = append(out, b)
		}
	}
	return out
}

// resolveBranch picks the active branch from the filtered set:
// preferredID when present, else the first branch, else nil. A stale
// preferred id (branch removed server-side since last login) falls back
// to the first available branch.
func resolveBranch(preferredID string, branches []identity.Branch) *identity.Branch {
	if preferredID != "" {
		for i := range branches {
			if branches[i].ID == preferredID {
				b := branches[i]
				return &b
			}
		}
	}
	if len(branches) > 0 {
		b := branches[0]
		return &b
	}
	return nil
}
