package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sqlhint/internal/ir"
)

const renderColumns = `id, fingerprint, digest, plan, engine_version, seq`

// ReadRender retrieves a single render record, comments included.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRender(ctx context.Context, id string) (ir.RenderRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		WHERE id = ?
	`, id)

	rec, err := scanRender(row)
	if err != nil {
		return ir.RenderRecord{}, err
	}
	if rec.Comments, err = s.readComments(ctx, rec.ID); err != nil {
		return ir.RenderRecord{}, err
	}
	return rec, nil
}

// LatestByFingerprint returns the most recent render of a fingerprint.
// ok is false when the fingerprint has never been rendered.
func (s *Store) LatestByFingerprint(ctx context.Context, fingerprint string) (rec ir.RenderRecord, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		WHERE fingerprint = ?
		ORDER BY seq DESC
		LIMIT 1
	`, fingerprint)

	rec, err = scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RenderRecord{}, false, nil
	}
	if err != nil {
		return ir.RenderRecord{}, false, err
	}
	if rec.Comments, err = s.readComments(ctx, rec.ID); err != nil {
		return ir.RenderRecord{}, false, err
	}
	return rec, true, nil
}

// ListRenders returns every render record with its comments.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ListRenders(ctx context.Context) ([]ir.RenderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+renderColumns+`
		FROM renders
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	records := []ir.RenderRecord{}
	index := make(map[string]int)
	for rows.Next() {
		rec, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		rec.Comments = []ir.BlockComment{}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}

	// One pass over all comments instead of a query per render.
	crows, err := s.db.QueryContext(ctx, `
		SELECT render_id, block, comment
		FROM render_comments
		ORDER BY render_id COLLATE BINARY ASC, ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query render comments: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var id string
		var c ir.BlockComment
		if err := crows.Scan(&id, &c.Block, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan render comment: %w", err)
		}
		if i, ok := index[id]; ok {
			records[i].Comments = append(records[i].Comments, c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render comments: %w", err)
	}

	return records, nil
}

// CountRenders returns the number of stored renders of a fingerprint.
func (s *Store) CountRenders(ctx context.Context, fingerprint string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM renders WHERE fingerprint = ?
	`, fingerprint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count renders: %w", err)
	}
	return count, nil
}

func (s *Store) readComments(ctx context.Context, renderID string) ([]ir.BlockComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block, comment
		FROM render_comments
		WHERE render_id = ?
		ORDER BY ordinal ASC
	`, renderID)
	if err != nil {
		return nil, fmt.Errorf("query render comments: %w", err)
	}
	defer rows.Close()

	comments := []ir.BlockComment{}
	for rows.Next() {
		var c ir.BlockComment
		if err := rows.Scan(&c.Block, &c.Comment); err != nil {
			return nil, fmt.Errorf("scan render comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render comments: %w", err)
	}
	return comments, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRender(row scanner) (ir.RenderRecord, error) {
	var rec ir.RenderRecord
	err := row.Scan(&rec.ID, &rec.Fingerprint, &rec.Digest, &rec.Plan, &rec.EngineVersion, &rec.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RenderRecord{}, err
	}
	if err != nil {
		return ir.RenderRecord{}, fmt.Errorf("scan render: %w", err)
	}
	return rec, nil
}
