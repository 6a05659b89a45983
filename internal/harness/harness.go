package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/engine"
	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/querysql"
	"github.com/roach88/sqlhint/internal/store"
	"github.com/roach88/sqlhint/internal/testutil"
)

// Harness renders scenarios through the engine with deterministic render
// IDs and an isolated render log.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database. A render error is
// part of the result (so error_code assertions can check it), not an
// error of Run. Run itself fails only when the harness cannot start.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the plan and render it through the engine
// 3. Evaluate assertions against the comments or the error
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		engine: engine.New(
			engine.WithStore(st),
			engine.WithLogger(logger),
			engine.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)),
		),
		logger: logger,
	}

	return h.run(context.Background(), scenario), nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) *Result {
	plan := scenario.Plan
	if plan.Name == "" {
		plan.Name = scenario.Name
	}
	if scenario.Order != "" {
		plan.Order = scenario.Order
	}

	result := NewResult()
	render, err := h.engine.RenderPlan(ctx, &plan)
	if err != nil {
		result.ErrorCode = ErrorCode(err)
		result.Error = err.Error()
		h.logger.Debug("scenario render failed", "scenario", scenario.Name, "code", result.ErrorCode)
	} else {
		result.RenderID = render.ID
		result.Comments = render.Comments
		result.SQL = render.SQL
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result
}

// ErrorCode extracts the code of a typed error from any layer: plan
// validation, hint registration, rendering or the engine. Returns "" for
// untyped errors.
func ErrorCode(err error) string {
	var re *querysql.RenderError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var he *hint.Error
	if errors.As(err, &he) {
		return string(he.Code)
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
