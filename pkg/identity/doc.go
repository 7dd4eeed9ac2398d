// Package identity normalizes wire-format user payloads from the auth
// service into the shapes the context engine works with.
//
// The auth service returns a nested user document (companies, each with
// branches and roles). The adapter flattens it into lookup-friendly
// entities: every branch carries its owning company id and an inferred
// branch type, every role is reduced to its descriptive fields, and every
// loosely-typed boolean is decoded into a plain bool at the JSON boundary
// so downstream code never sees the tri-form (true/"true"/1) encoding.
package identity
