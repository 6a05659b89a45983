// Package ir provides the foundational value and record types for sqlhint.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - hint parameters are int64 or strings
//   - All JSON tags use snake_case
//   - Logical sequence numbers only, never wall-clock timestamps
//   - Fingerprints are SHA-256 over RFC 8785 canonical JSON
package ir
