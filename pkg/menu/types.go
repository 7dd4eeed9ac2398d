package menu

import (
	"github.com/platinummonkey/tenantctx/pkg/identity"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

// Node is a menu tree node as delivered by the menu provider. A node with
// a non-empty Submenu or Columns is a grouping node; a node with neither
// is a leaf and is the unit permission checks apply to.
type Node struct {
	ID          string        `json:"id"`
	Label       string        `json:"label" yaml:"label"`
	Route       string        `json:"route,omitempty" yaml:"route,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string        `json:"icon,omitempty" yaml:"icon,omitempty"`
	IsPublic    identity.Flag `json:"isPublic,omitempty" yaml:"isPublic,omitempty"`
	Submenu     []Node        `json:"submenu,omitempty" yaml:"submenu,omitempty"`
	Columns     []Column      `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Column is a titled group of nodes inside a mega-menu style entry.
type Column struct {
	Title string `json:"title" yaml:"title"`
	Items []Node `json:"items" yaml:"items"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	if len(n.Submenu) > 0 {
		return false
	}
	for i := range n.Columns {
		if len(n.Columns[i].Items) > 0 {
			return false
		}
	}
	return true
}

// VisibleNode is a menu node annotated with the visibility verdict for
// the active context. The annotated tree mirrors the input tree shape.
type VisibleNode struct {
	Node

	// Visible is the verdict for this node: for a leaf, granted or
	// public; for a grouping node, at least one visible descendant.
	Visible bool `json:"visible"`

	// Public is the normalized public flag (leaves only).
	Public bool `json:"public"`

	// Actions is the resolved CRUD vector for a leaf's route.
	Actions permission.ActionVector `json:"actions"`

	// VisibleDescendants counts visible leaves beneath a grouping node;
	// rendered as the badge next to the group label.
	VisibleDescendants int `json:"visibleDescendants"`

	Submenu []VisibleNode   `json:"submenu,omitempty"`
	Columns []VisibleColumn `json:"columns,omitempty"`
}

// VisibleColumn mirrors Column in the annotated tree.
type VisibleColumn struct {
	Title string        `json:"title"`
	Items []VisibleNode `json:"items"`
}

// Filter narrows the annotated tree before rendering. Zero value means
// no filtering.
type Filter struct {
	// Text keeps nodes whose label, route or description contains the
	// text (case-insensitive), or that have a matching descendant.
	Text string

	// Module keeps only top-level nodes whose label equals it exactly.
	Module string

	// Action keeps leaves granted that action (and their ancestors).
	Action permission.Action

	// IncludeDenied keeps ungranted leaves in the output with
	// Visible=false instead of pruning them. Bulk-edit screens use it
	// to show the full tree with toggleable action vectors.
	IncludeDenied bool
}
