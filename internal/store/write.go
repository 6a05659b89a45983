package store

import (
	"context"
	"fmt"

	"github.com/roach88/sqlhint/internal/ir"
)

// WriteRender appends a render record and its comments in one transaction.
// The store assigns the record's seq (one past the current maximum) and
// returns it.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an ID that is
// already stored leaves the log untouched and returns the existing seq with
// inserted=false.
func (s *Store) WriteRender(ctx context.Context, rec ir.RenderRecord) (seq int64, inserted bool, err error) {
	if rec.ID == "" {
		return 0, false, fmt.Errorf("write render: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write render: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM renders`).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("write render: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO renders
		(id, fingerprint, digest, plan, engine_version, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Fingerprint,
		rec.Digest,
		rec.Plan,
		rec.EngineVersion,
		seq,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write render: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write render: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		err = tx.QueryRowContext(ctx, `SELECT seq FROM renders WHERE id = ?`, rec.ID).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("write render: select existing: %w", err)
		}
		return seq, false, tx.Commit()
	}

	for i, c := range rec.Comments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO render_comments
			(render_id, ordinal, block, comment)
			VALUES (?, ?, ?, ?)
		`, rec.ID, i, c.Block, c.Comment)
		if err != nil {
			return 0, false, fmt.Errorf("write render: insert comment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write render: commit: %w", err)
	}

	return seq, true, nil
}
