// Package tenant owns the active (company, branch) context for a
// session and the permission set derived from it.
//
// A single Manager instance holds the authoritative in-memory state. All
// mutation goes through four operations — Establish, SwitchBranch,
// SwitchCompany and Clear — each of which transitions between two
// complete states; a reader can never observe a half-applied switch.
// Writes are two-phase: the in-memory state is updated synchronously,
// then persisted to the session store asynchronously as a best-effort
// side effect. A persistence failure is logged and otherwise invisible;
// the in-memory state stays authoritative for the process lifetime.
//
// Permission and menu data come from providers behind small interfaces,
// with fixture, HTTP and SQL implementations selected by configuration,
// so the switching protocol itself is transport-free.
package tenant
