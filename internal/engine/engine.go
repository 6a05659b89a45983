package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/querysql"
	"github.com/roach88/sqlhint/internal/store"
)

// Engine renders hinted query trees and, when a store is configured, keeps
// a log of every distinct render.
//
// Each input is identified by its fingerprint: the canonical tree, the
// registry contents, the vocabulary and the ordering. Renders are cached
// by fingerprint. With a store, the first render of a fingerprint is
// written to the log and later renders are checked against it.
//
// Thread-safety: Render, RenderPlan and Replay are safe for concurrent use
// across independent registries. A Registry must not be mutated while it
// is being rendered.
type Engine struct {
	store    *store.Store
	logger   *slog.Logger
	ids      IDGenerator
	ordering querysql.Ordering

	mu    sync.Mutex
	cache map[string]*Result
	stats Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore enables the render log.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the render ID generator. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithOrdering sets the default hint ordering. A plan's own order wins.
func WithOrdering(o querysql.Ordering) Option {
	return func(e *Engine) {
		e.ordering = o
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		cache:  make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is one render.
type Result struct {
	// ID is the render's ID in the log, or a fresh ID when no store is used.
	ID          string
	Fingerprint string
	Digest      string
	Comments    []ir.BlockComment
	SQL         string

	// Cached is true when the result came from the in-memory cache.
	Cached bool

	// Stored is true when this call appended a record to the log.
	Stored bool
}

// Stats counts cache behaviour.
type Stats struct {
	Hits   int
	Misses int
}

// Stats returns a snapshot of the cache counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Render renders the registry's tree with the engine's default ordering.
func (e *Engine) Render(ctx context.Context, reg *hint.Registry) (*Result, error) {
	return e.render(ctx, reg, e.ordering, "")
}

// RenderPlan builds a plan and renders it. The plan is stored with the
// render so the log can be replayed.
func (e *Engine) RenderPlan(ctx context.Context, spec *compiler.PlanSpec) (*Result, error) {
	built, err := compiler.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("build plan %q: %w", spec.Name, err)
	}
	ordering, err := e.planOrdering(spec)
	if err != nil {
		return nil, err
	}
	plan, err := MarshalPlan(spec)
	if err != nil {
		return nil, err
	}
	return e.render(ctx, built.Registry, ordering, plan)
}

func (e *Engine) planOrdering(spec *compiler.PlanSpec) (querysql.Ordering, error) {
	if spec.Order == "" {
		return e.ordering, nil
	}
	return querysql.ParseOrdering(spec.Order)
}

func (e *Engine) render(ctx context.Context, reg *hint.Registry, ordering querysql.Ordering, plan string) (*Result, error) {
	if reg == nil || reg.Tree() == nil {
		return nil, fmt.Errorf("cannot render nil registry")
	}

	fp, err := Fingerprint(reg, ordering)
	if err != nil {
		return nil, err
	}

	if cached, ok := e.lookup(fp); ok {
		e.logger.Debug("render cache hit", "fingerprint", fp)
		return cached, nil
	}

	out, err := querysql.NewHintCompiler(querysql.WithOrdering(ordering)).Compile(reg)
	if err != nil {
		e.logger.Debug("render failed", "fingerprint", fp, "error", err)
		return nil, err
	}

	comments := out.Comments.Blocks()
	digest, err := ir.CommentsDigest(comments)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Fingerprint: fp,
		Digest:      digest,
		Comments:    comments,
		SQL:         out.SQL,
	}

	if e.store == nil {
		res.ID = e.ids.Generate()
	} else if err := e.persist(ctx, res, plan); err != nil {
		return nil, err
	}

	e.logger.Info("render complete",
		"render_id", res.ID,
		"fingerprint", fp,
		"levels", len(comments),
		"stored", res.Stored,
	)

	e.remember(res)
	return res, nil
}

// persist checks the result against the log and appends it when the
// fingerprint is new.
func (e *Engine) persist(ctx context.Context, res *Result, plan string) error {
	prev, ok, err := e.store.LatestByFingerprint(ctx, res.Fingerprint)
	if err != nil {
		return &EngineError{
			Code:        ErrCodeStoreFailed,
			Message:     "read render log",
			Fingerprint: res.Fingerprint,
			Err:         err,
		}
	}
	if ok {
		if prev.Digest != res.Digest {
			e.logger.Error("render differs from stored render",
				"render_id", prev.ID,
				"fingerprint", res.Fingerprint,
				"stored_digest", prev.Digest,
				"digest", res.Digest,
			)
			return &EngineError{
				Code:        ErrCodeNonDeterministic,
				Message:     "comments differ from the stored render of the same input",
				Fingerprint: res.Fingerprint,
				RenderID:    prev.ID,
			}
		}
		res.ID = prev.ID
		return nil
	}

	rec := ir.RenderRecord{
		ID:            e.ids.Generate(),
		Fingerprint:   res.Fingerprint,
		Digest:        res.Digest,
		Plan:          plan,
		EngineVersion: ir.EngineVersion,
		Comments:      res.Comments,
	}
	_, inserted, err := e.store.WriteRender(ctx, rec)
	if err != nil {
		return &EngineError{
			Code:        ErrCodeStoreFailed,
			Message:     "write render log",
			Fingerprint: res.Fingerprint,
			RenderID:    rec.ID,
			Err:         err,
		}
	}
	res.ID = rec.ID
	res.Stored = inserted
	return nil
}

func (e *Engine) lookup(fp string) (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cached, ok := e.cache[fp]
	if !ok {
		e.stats.Misses++
		return nil, false
	}
	e.stats.Hits++
	hit := *cached
	hit.Comments = append([]ir.BlockComment(nil), cached.Comments...)
	hit.Cached = true
	hit.Stored = false
	return &hit, true
}

func (e *Engine) remember(res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored := *res
	stored.Comments = append([]ir.BlockComment(nil), res.Comments...)
	e.cache[res.Fingerprint] = &stored
}

// Fingerprint computes the identity of a render input.
func Fingerprint(reg *hint.Registry, ordering querysql.Ordering) (string, error) {
	kinds := ir.IRArray{}
	for _, k := range reg.Vocabulary().Kinds() {
		kinds = append(kinds, ir.IRObject{
			"kind":      ir.IRString(k.Kind),
			"category":  ir.IRString(k.Category.String()),
			"separator": ir.IRString(k.Separator),
		})
	}

	fp, err := ir.TreeFingerprint(ir.IRObject{
		"tree":       reg.Tree().Canonical(),
		"hints":      reg.Canonical(),
		"vocabulary": kinds,
		"order":      ir.IRString(ordering.String()),
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fp, nil
}

// MarshalPlan encodes a plan for the render log.
func MarshalPlan(spec *compiler.PlanSpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return string(data), nil
}

// UnmarshalPlan decodes a plan stored by MarshalPlan. Numbers are kept as
// json.Number so large integers survive.
func UnmarshalPlan(data string) (*compiler.PlanSpec, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var spec compiler.PlanSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &spec, nil
}
