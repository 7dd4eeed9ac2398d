package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

// tenantctx-check validates a fixture file before it is handed to the
// fixture provider. It exits non-zero when the file cannot be parsed or
// contains entries the provider would silently mis-serve, like duplicate
// user/branch pairs or grants that target nothing.
func main() {
	verbose := flag.Bool("verbose", false, "Log every validated entry")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <fixture-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	data, err := tenant.ReadFixtureFile(path)
	if err != nil {
		logger.WithError(err).Error("Failed to read fixture file")
		os.Exit(1)
	}

	problems := validate(data, logger)
	if problems > 0 {
		logger.Errorf("Fixture invalid: %d problem(s) found in %s", problems, path)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"permissionSets": len(data.Permissions),
		"companyMenus":   len(data.Menus),
		"branchMenus":    len(data.BranchMenus),
	}).Infof("Fixture OK: %s", path)
}

var knownActions = map[permission.Action]bool{
	permission.ActionView:   true,
	permission.ActionCreate: true,
	permission.ActionEdit:   true,
	permission.ActionDelete: true,
	permission.ActionManage: true,
	permission.ActionSwitch: true,
}

func validate(data *tenant.FixtureData, logger *logrus.Logger) int {
	problems := 0

	// The provider returns the first matching set, so a duplicate
	// user/branch pair means later grants are unreachable.
	seenSets := map[string]bool{}
	for i, set := range data.Permissions {
		entry := logger.WithFields(logrus.Fields{"userId": set.UserID, "branchId": set.BranchID})

		if set.UserID == "" || set.BranchID == "" {
			entry.Errorf("permissions[%d]: userId and branchId are required", i)
			problems++
		}
		key := set.UserID + "\x00" + set.BranchID
		if seenSets[key] {
			entry.Errorf("permissions[%d]: duplicate user/branch pair, only the first is served", i)
			problems++
		}
		seenSets[key] = true

		for j, g := range set.Grants {
			if g.Route == "" && g.Module == "" {
				entry.Errorf("permissions[%d].grants[%d]: grant targets neither a route nor a module", i, j)
				problems++
			}
			if g.Action == "" {
				entry.Errorf("permissions[%d].grants[%d]: action is required", i, j)
				problems++
			} else if !knownActions[g.Action] {
				entry.Warnf("permissions[%d].grants[%d]: unrecognized action %q", i, j, g.Action)
			}
		}
		entry.Debugf("validated %d grant(s)", len(set.Grants))
	}

	problems += validateMenus(data.Menus, "menus", false, logger)
	problems += validateMenus(data.BranchMenus, "branchMenus", true, logger)
	return problems
}

func validateMenus(menus []tenant.FixtureMenu, field string, byBranch bool, logger *logrus.Logger) int {
	problems := 0
	seen := map[string]bool{}
	for i, fm := range menus {
		key := fm.CompanyID
		keyName := "companyId"
		if byBranch {
			key = fm.BranchID
			keyName = "branchId"
		}
		if key == "" {
			logger.Errorf("%s[%d]: %s is required", field, i, keyName)
			problems++
			continue
		}
		if seen[key] {
			logger.Errorf("%s[%d]: duplicate %s %q, only the first is served", field, i, keyName, key)
			problems++
		}
		seen[key] = true

		for j := range fm.Nodes {
			problems += validateNode(&fm.Nodes[j], fmt.Sprintf("%s[%d].nodes[%d]", field, i, j), logger)
		}
		logger.WithField(keyName, key).Debugf("validated %d root node(s)", len(fm.Nodes))
	}
	return problems
}

func validateNode(n *menu.Node, path string, logger *logrus.Logger) int {
	problems := 0
	if n.Label == "" {
		logger.Errorf("%s: label is required", path)
		problems++
	}
	if n.Route == "" && len(n.Submenu) == 0 && len(n.Columns) == 0 {
		logger.Warnf("%s: leaf %q has no route and is never visible", path, n.Label)
	}
	for i := range n.Submenu {
		problems += validateNode(&n.Submenu[i], fmt.Sprintf("%s.submenu[%d]", path, i), logger)
	}
	for i, col := range n.Columns {
		if col.Title == "" {
			logger.Errorf("%s.columns[%d]: title is required", path, i)
			problems++
		}
		for j := range col.Items {
			problems += validateNode(&n.Columns[i].Items[j], fmt.Sprintf("%s.columns[%d].items[%d]", path, i, j), logger)
		}
	}
	return problems
}
