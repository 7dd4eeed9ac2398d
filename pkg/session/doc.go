// Package session provides namespaced key/value persistence with
// per-key TTL and an opt-out change broadcast.
//
// The store is a leaf component: it knows nothing about companies,
// branches or permissions. The context engine persists its active state
// through it so a reload can resume where the user left off. Writers that
// persist as a side effect of an already-applied in-memory change treat
// store errors as fire-and-forget; the in-memory state stays
// authoritative for the process lifetime.
//
// Three backends exist: an in-process map (default), Redis for
// deployments sharing a cache tier, and SQLite for embedded clients that
// need reload survival without a server.
package session
