// Package store provides SQLite-backed durable storage for render records.
//
// Every render pass the engine persists is appended to the log:
//   - renders: fingerprint, comments digest, source plan and engine version
//   - render_comments: the rendered comment of each level, in level order
//
// # Ordering
//
// All ordering uses the seq column (a logical counter assigned on write),
// never timestamps. Queries order by seq ASC, id ASC COLLATE BINARY so
// listings are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints and digests are computed by internal/ir/hash.go.
package store
