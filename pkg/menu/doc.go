// Package menu computes per-node visibility over a hierarchical menu
// tree using the resolved permission set for the active context.
//
// The tree is read-only input: grouping nodes (submenu or columns) are
// never permission-checked themselves, only their leaves are, and a leaf
// flagged public is always visible regardless of grants. The package also
// accumulates pending permission edits for bulk grant/revoke screens as a
// minimal diff against the resolved state.
package menu
