// Package state defines persistence-facing contracts for loading and saving
// per-scope snapshots, plus a small resolver that orchestrates scope loading
// and delegates layering/provenance to the core immutable primitives.
//
// Responsibilities:
//   - Store[S] only loads/saves a single snapshot for a single Ref.
//   - Resolver[S] loads snapshots for multiple scopes and merges them by
//     constructing immutable.Layer[S] + immutable.Stack[S].
//   - The core immutable package remains persistence-agnostic; all
//     persistence logic stays behind Store implementations supplied by
//     consumers.
//
// Data flow:
//
//	Store -> Resolver -> immutable.NewStack(...).Merge(...) -> *immutable.Immutable[S]
//
// Provenance:
//
//	Meta.SnapshotID is mapped onto immutable.Layer[S].SnapshotID (via
//	immutable.WithSnapshotID), which is then observable through
//	ResolveWithTrace(...) and SchemaDocument.Scopes.
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key format based on the
//	scope model (`system/tenant/org/team/user`).
package state
