package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/engine"
	"github.com/roach88/sqlhint/internal/harness"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/querysql"
	"github.com/roach88/sqlhint/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string // optional render log
	Order    string // overrides every plan's order
	Plan     string // render one plan only
}

// PlanRender is the render of one plan.
type PlanRender struct {
	Plan        string            `json:"plan"`
	RenderID    string            `json:"render_id,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Comments    []ir.BlockComment `json:"comments,omitempty"`
	SQL         string            `json:"sql,omitempty"`
	Stored      bool              `json:"stored,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// RenderResult holds the renders of a plans directory.
type RenderResult struct {
	Renders []PlanRender `json:"renders"`
	Failed  int          `json:"failed"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <plans-dir>",
		Short: "Render the hint comments of CUE plans",
		Long: `Render every plan in a CUE directory to per-block hint comments and a
skeleton SQL statement carrying them.

With --db each render is appended to a SQLite render log. A plan whose
render differs from the logged render of the same fingerprint fails with
NON_DETERMINISTIC.

Exit codes:
  0 - All plans rendered
  1 - One or more plans failed to render
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  sqlhint render ./plans
  sqlhint render ./plans --plan TableID3 --order attachment
  sqlhint render ./plans --db ./renders.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "append renders to this SQLite database")
	cmd.Flags().StringVar(&opts.Order, "order", "", "hint order for every plan (query-first|attachment)")
	cmd.Flags().StringVar(&opts.Plan, "plan", "", "render only the named plan")

	return cmd
}

func runRender(opts *RenderOptions, plansDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Order != "" {
		if _, err := querysql.ParseOrdering(opts.Order); err != nil {
			return commandError(formatter, compiler.ErrInvalidOrder, err.Error())
		}
	}

	plans, err := selectPlans(formatter, plansDir, opts.Plan)
	if err != nil {
		return err
	}

	engineOpts := []engine.Option{engine.WithLogger(commandLogger(opts.RootOptions, formatter))}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		engineOpts = append(engineOpts, engine.WithStore(st))
	}
	eng := engine.New(engineOpts...)

	result := RenderResult{Renders: make([]PlanRender, 0, len(plans))}
	for _, plan := range plans {
		if opts.Order != "" {
			plan.Order = opts.Order
		}
		pr := PlanRender{Plan: plan.Name}
		res, err := eng.RenderPlan(ctx, &plan)
		if err != nil {
			if engine.IsStoreError(err) {
				return WrapExitError(ExitCommandError, "render log", err)
			}
			pr.ErrorCode = harness.ErrorCode(err)
			pr.Error = err.Error()
			result.Failed++
		} else {
			pr.RenderID = res.ID
			pr.Fingerprint = res.Fingerprint
			pr.Comments = res.Comments
			pr.SQL = res.SQL
			pr.Stored = res.Stored
		}
		result.Renders = append(result.Renders, pr)
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_RENDER_FAILED", Message: fmt.Sprintf("%d plan(s) failed to render", result.Failed)}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputRenderText(formatter.Writer, result, opts.Verbose)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d plan(s) failed to render", result.Failed))
	}
	return nil
}

// selectPlans loads a plans directory and narrows it to one plan when name
// is set. Load failures are reported through the formatter.
func selectPlans(formatter *OutputFormatter, plansDir, name string) ([]compiler.PlanSpec, error) {
	loaded, loadErrs := LoadPlans(plansDir, LoadModeFailFast)
	if len(loadErrs) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrs[0], &loadErr) {
			return nil, commandError(formatter, loadErr.Code, loadErr.Error())
		}
		return nil, commandError(formatter, ErrCodeGeneric, loadErrs[0].Error())
	}
	formatter.VerboseLog("Loaded %d plan(s) from %d CUE file(s) in %s", len(loaded.Plans), loaded.FileCount, plansDir)

	if name == "" {
		return loaded.Plans, nil
	}
	plan, ok := loaded.Plan(name)
	if !ok {
		return nil, commandError(formatter, ErrCodeNoPlan,
			fmt.Sprintf("no plan named %q (have %v)", name, loaded.PlanNames()))
	}
	return []compiler.PlanSpec{*plan}, nil
}

// commandError reports an error and returns it with the command error exit code.
func commandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// commandLogger logs engine events to stderr in verbose mode and discards
// them otherwise.
func commandLogger(opts *RootOptions, formatter *OutputFormatter) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func outputRenderText(w io.Writer, result RenderResult, verbose bool) {
	for _, r := range result.Renders {
		if r.Error != "" {
			fmt.Fprintf(w, "✗ %s\n", r.Plan)
			fmt.Fprintf(w, "  %s\n\n", r.Error)
			continue
		}

		fmt.Fprintf(w, "✓ %s", r.Plan)
		if verbose {
			fmt.Fprintf(w, " (render %s)", r.RenderID)
		}
		fmt.Fprintln(w)
		for _, c := range r.Comments {
			fmt.Fprintf(w, "  %s: %s\n", c.Block, c.Comment)
		}
		fmt.Fprintf(w, "  SQL: %s\n\n", r.SQL)
	}

	fmt.Fprintf(w, "Render Summary: %d rendered, %d failed\n", len(result.Renders)-result.Failed, result.Failed)
}
