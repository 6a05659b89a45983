package engine

import (
	"context"
	"fmt"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/querysql"
)

// ReplayResult compares a stored render with a fresh render of its plan.
type ReplayResult struct {
	RenderID    string
	Fingerprint string
	Match       bool

	// Skipped is true for renders that carry no plan (registries built in
	// code). They cannot be replayed and are neither a match nor a mismatch.
	Skipped bool

	// Stored and Replayed are the comments of each side, in level order.
	Stored   []ir.BlockComment
	Replayed []ir.BlockComment
}

// Replay re-renders a stored record's plan and compares the comments with
// the stored ones. It bypasses the cache and never writes to the log.
//
// A record whose fingerprint no longer matches its plan (for example after
// a vocabulary change) is reported as a mismatch, not an error.
func (e *Engine) Replay(ctx context.Context, rec ir.RenderRecord) (*ReplayResult, error) {
	if rec.Plan == "" {
		return nil, &EngineError{
			Code:        ErrCodeMissingPlan,
			Message:     "render was not produced from a plan",
			Fingerprint: rec.Fingerprint,
			RenderID:    rec.ID,
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, err := UnmarshalPlan(rec.Plan)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	built, err := compiler.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	ordering, err := e.planOrdering(spec)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}

	fp, err := Fingerprint(built.Registry, ordering)
	if err != nil {
		return nil, err
	}
	out, err := querysql.NewHintCompiler(querysql.WithOrdering(ordering)).Compile(built.Registry)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}

	comments := out.Comments.Blocks()
	digest, err := ir.CommentsDigest(comments)
	if err != nil {
		return nil, err
	}

	res := &ReplayResult{
		RenderID:    rec.ID,
		Fingerprint: fp,
		Match:       fp == rec.Fingerprint && digest == rec.Digest,
		Stored:      rec.Comments,
		Replayed:    comments,
	}
	e.logger.Debug("render replayed",
		"render_id", rec.ID,
		"fingerprint", fp,
		"match", res.Match,
	)
	return res, nil
}

// ReplayAll replays every render in the log, in log order. Renders without
// a stored plan are reported as skipped.
func (e *Engine) ReplayAll(ctx context.Context) ([]*ReplayResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("replay: engine has no store")
	}
	records, err := e.store.ListRenders(ctx)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeStoreFailed, Message: "list renders", Err: err}
	}

	results := make([]*ReplayResult, 0, len(records))
	for _, rec := range records {
		if rec.Plan == "" {
			results = append(results, &ReplayResult{
				RenderID:    rec.ID,
				Fingerprint: rec.Fingerprint,
				Skipped:     true,
				Stored:      rec.Comments,
			})
			continue
		}
		r, err := e.Replay(ctx, rec)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
