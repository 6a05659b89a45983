package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sqlhint/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRender creates a render record with one comment per block.
func createTestRender(id, fingerprint string, blocks ...string) ir.RenderRecord {
	comments := make([]ir.BlockComment, len(blocks))
	for i, b := range blocks {
		comments[i] = ir.BlockComment{Block: b, Comment: "/*+ FULL(p@" + b + ") */"}
	}
	return ir.RenderRecord{
		ID:            id,
		Fingerprint:   fingerprint,
		Digest:        "digest-" + id,
		EngineVersion: "0.1.0",
		Comments:      comments,
	}
}
