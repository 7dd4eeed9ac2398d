package menu

import (
	"strings"

	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// ComputeVisibility walks the menu tree and annotates every surviving
// node with its visibility verdict for the given permission set.
//
// Filtering happens during the walk: the module filter applies to
// top-level labels only, the text filter keeps a node when it or any
// descendant matches, and the action filter narrows leaf grants to a
// single action. The input tree is never mutated and no I/O happens
// here; callers re-run the computation after a context switch.
func ComputeVisibility(nodes []Node, perms []permission.Permission, f Filter) []VisibleNode {
	out := make([]VisibleNode, 0, len(nodes))
	for i := range nodes {
		if f.Module != "" && nodes[i].Label != f.Module {
			continue
		}
		if vn, ok := annotate(&nodes[i], perms, f); ok {
			out = append(out, vn)
		}
	}
	return out
}

// CountVisibleLeaves returns the number of visible leaves in an
// annotated forest.
func CountVisibleLeaves(nodes []VisibleNode) int {
	total := 0
	for i := range nodes {
		n := &nodes[i]
		if n.IsLeaf() {
			if n.Visible {
				total++
			}
			continue
		}
		total += n.VisibleDescendants
	}
	return total
}

func annotate(n *Node, perms []permission.Permission, f Filter) (VisibleNode, bool) {
	if n.IsLeaf() {
		return annotateLeaf(n, perms, f)
	}

	// A grouping node that matches the text filter keeps its whole
	// subtree; otherwise the text filter is pushed down to descendants.
	childFilter := f
	childFilter.Module = ""
	if f.Text != "" && matchesText(n, f.Text) {
		childFilter.Text = ""
	}

	vn := VisibleNode{Node: *n}
	vn.Submenu = make([]VisibleNode, 0, len(n.Submenu))
	for i := range n.Submenu {
		if child, ok := annotate(&n.Submenu[i], perms, childFilter); ok {
			vn.Submenu = append(vn.Submenu, child)
			vn.VisibleDescendants += visibleLeafCount(&child)
		}
	}
	for ci := range n.Columns {
		col := VisibleColumn{Title: n.Columns[ci].Title}
		for i := range n.Columns[ci].Items {
			if child, ok := annotate(&n.Columns[ci].Items[i], perms, childFilter); ok {
				col.Items = append(col.Items, child)
				vn.VisibleDescendants += visibleLeafCount(&child)
			}
		}
		if len(col.Items) > 0 {
			vn.Columns = append(vn.Columns, col)
		}
	}

	vn.Visible = vn.VisibleDescendants > 0
	keep := len(vn.Submenu) > 0 || len(vn.Columns) > 0
	return vn, keep
}

func annotateLeaf(n *Node, perms []permission.Permission, f Filter) (VisibleNode, bool) {
	if f.Text != "" && !matchesText(n, f.Text) {
		return VisibleNode{}, false
	}

	vn := VisibleNode{
		Node:    *n,
		Public:  n.IsPublic.Bool(),
		Actions: permission.ResolveVector(n.Route, perms),
	}

	if f.Action != "" {
		vn.Visible = vn.Public || permission.IsGranted(n.Route, f.Action, perms)
	} else {
		vn.Visible = vn.Public || vn.Actions.Any()
	}

	if !vn.Visible && !f.IncludeDenied {
		return VisibleNode{}, false
	}
	return vn, true
}

func visibleLeafCount(n *VisibleNode) int {
	if n.IsLeaf() {
		if n.Visible {
			return 1
		}
		return 0
	}
	return n.VisibleDescendants
}

func matchesText(n *Node, text string) bool {
	t := strings.ToLower(text)
	if strings.Contains(strings.ToLower(n.Label), t) ||
		strings.Contains(strings.ToLower(n.Route), t) ||
		strings.Contains(strings.ToLower(n.Description), t) {
		return true
	}
	for i := range n.Submenu {
		if matchesText(&n.Submenu[i], text) {
			return true
		}
	}
	for ci := range n.Columns {
		for i := range n.Columns[ci].Items {
			if matchesText(&n.Columns[ci].Items[i], text) {
				return true
			}
		}
	}
	return false
}
