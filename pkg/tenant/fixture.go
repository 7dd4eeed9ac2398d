package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/observability"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// FixtureData is the in-memory dataset served by the fixture provider.
// It doubles as the schema of fixture files (YAML or JSON).
type FixtureData struct {
	Permissions []FixtureGrantSet `json:"permissions" yaml:"permissions"`
	Menus       []FixtureMenu     `json:"menus" yaml:"menus"`
	BranchMenus []FixtureMenu     `json:"branchMenus" yaml:"branchMenus"`
}

// FixtureGrantSet is the permission list for one (user, branch) pair.
type FixtureGrantSet struct {
	UserID   string         `json:"userId" yaml:"userId"`
	BranchID string         `json:"branchId" yaml:"branchId"`
	Grants   []FixtureGrant `json:"grants" yaml:"grants"`
}

// FixtureGrant is a single grant in a fixture file. Status is optional
// and defaults to active — fixture authors list what they mean to grant.
type FixtureGrant struct {
	Route  string             `json:"route,omitempty" yaml:"route,omitempty"`
	Module string             `json:"module,omitempty" yaml:"module,omitempty"`
	Action permission.Action  `json:"action" yaml:"action"`
	Status *permission.Status `json:"status,omitempty" yaml:"status,omitempty"`
}

// FixtureMenu is the menu tree for one company or branch.
type FixtureMenu struct {
	CompanyID string      `json:"companyId,omitempty" yaml:"companyId,omitempty"`
	BranchID  string      `json:"branchId,omitempty" yaml:"branchId,omitempty"`
	Nodes     []menu.Node `json:"nodes" yaml:"nodes"`
}

// FixtureProvider serves permissions and menus from an in-memory
// dataset, optionally hot-reloaded from a fixture file on change. It
// implements both PermissionProvider and MenuProvider and is the default
// backend for local development and tests.
type FixtureProvider struct {
	mu   sync.RWMutex
	data FixtureData

	log     *observability.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFixtureProvider wraps a literal dataset.
func NewFixtureProvider(data FixtureData) *FixtureProvider {
	return &FixtureProvider{
		data: data,
		log:  observability.NewLogger(observability.InfoLevel, nil),
	}
}

// LoadFixtureProvider reads a fixture file (.yaml/.yml or .json).
func LoadFixtureProvider(path string, logger *observability.Logger) (*FixtureProvider, error) {
	data, err := ReadFixtureFile(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &FixtureProvider{
		data: *data,
		log:  logger.WithField("component", "fixture-provider"),
	}, nil
}

// Watch reloads the fixture file whenever it changes on disk. The swap
// is atomic: readers see either the old or the new dataset, never a
// partial one. A file that fails to parse is logged and skipped, keeping
// the last good dataset.
func (p *FixtureProvider) Watch(path string) error {
	if p.watcher != nil {
		return fmt.Errorf("tenant: fixture watch already active")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tenant: fixture watch: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save
	// and a watch on the old inode would go quiet.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("tenant: fixture watch %s: %w", path, err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		defer observability.RecoverPanic(p.log, "fixture watcher")
		base := filepath.Base(path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				data, err := ReadFixtureFile(path)
				if err != nil {
					p.log.WithError(err).Warn("fixture reload failed; keeping previous dataset")
					continue
				}
				p.mu.Lock()
				p.data = *data
				p.mu.Unlock()
				p.log.WithField("path", path).Info("fixture reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.log.WithError(err).Warn("fixture watcher error")
			}
		}
	}()
	return nil
}

// GetPermissions returns the grants for (userID, branchID); an unknown
// pair yields an empty slice.
func (p *FixtureProvider) GetPermissions(_ context.Context, userID, branchID string) ([]permission.Permission, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, set := range p.data.Permissions {
		if set.UserID == userID && set.BranchID == branchID {
			out := make([]permission.Permission, 0, len(set.Grants))
			for _, g := range set.Grants {
				status := permission.StatusActive
				if g.Status != nil {
					status = *g.Status
				}
				out = append(out, permission.Permission{
					Route:  g.Route,
					Module: g.Module,
					Action: g.Action,
					Status: status,
				})
			}
			return out, nil
		}
	}
	return []permission.Permission{}, nil
}

// GetMenuForCompany returns the company's menu tree, or an empty forest.
func (p *FixtureProvider) GetMenuForCompany(_ context.Context, companyID string) ([]menu.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, fm := range p.data.Menus {
		if fm.CompanyID == companyID {
			return fm.Nodes, nil
		}
	}
	return []menu.Node{}, nil
}

// GetMenuForBranch returns the branch's menu tree, or an empty forest.
func (p *FixtureProvider) GetMenuForBranch(_ context.Context, branchID string) ([]menu.Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, fm := range p.data.BranchMenus {
		if fm.BranchID == branchID {
			return fm.Nodes, nil
		}
	}
	return []menu.Node{}, nil
}

// Close stops the file watcher, if any.
func (p *FixtureProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	p.watcher = nil
	return err
}

// ReadFixtureFile parses a fixture file. The extension picks the codec:
// .json is JSON, everything else is YAML.
func ReadFixtureFile(path string) (*FixtureData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read fixture %s: %w", path, err)
	}

	var data FixtureData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("tenant: parse fixture %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("tenant: parse fixture %s: %w", path, err)
		}
	}
	return &data, nil
}
