// Package engine runs the hint render pipeline for callers that want more
// than a single compile pass.
//
// For each input the engine:
//   - computes a fingerprint over the tree, the attached hints, the
//     vocabulary and the ordering (internal/ir/hash.go)
//   - serves repeated inputs from an in-memory cache
//   - resolves and renders through querysql.HintCompiler
//   - with a store, appends the first render of each fingerprint to the
//     render log and fails with NON_DETERMINISTIC when a later render of the
//     same fingerprint produces different comments
//
// Replay re-renders stored plans and reports whether the comments still
// match, which is how a vocabulary or engine change is checked against
// past output.
//
// Render IDs come from an IDGenerator: UUIDv7Generator in production,
// FixedGenerator in tests.
package engine
