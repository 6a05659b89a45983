package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlhint/internal/engine"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RenderID string // optional - specific render only
}

// ReplayRenderResult holds the replay result for a single render.
type ReplayRenderResult struct {
	RenderID      string            `json:"render_id"`
	Fingerprint   string            `json:"fingerprint"`
	Deterministic bool              `json:"deterministic"`
	Skipped       bool              `json:"skipped,omitempty"`
	Stored        []ir.BlockComment `json:"stored,omitempty"`
	Replayed      []ir.BlockComment `json:"replayed,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Renders          []ReplayRenderResult `json:"renders"`
	TotalRenders     int                  `json:"total_renders"`
	Skipped          int                  `json:"skipped"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the render log and verify determinism",
		Long: `Re-render every logged plan and compare the result with the logged
comments.

A render is deterministic when its plan still produces the logged
fingerprint and byte-identical comments. Renders logged without a plan
are skipped.

Exit codes:
  0 - All renders are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  sqlhint replay --db ./renders.db
  sqlhint replay --db ./renders.db --render 0190a5b2-...
  sqlhint replay --db ./renders.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RenderID, "render", "", "replay specific render only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	eng := engine.New(engine.WithStore(st), engine.WithLogger(commandLogger(opts.RootOptions, formatter)))

	replays, err := replayRenders(ctx, st, eng, opts.RenderID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay renders", err)
	}

	result := ReplayResult{
		Renders:          make([]ReplayRenderResult, 0, len(replays)),
		TotalRenders:     len(replays),
		AllDeterministic: true,
	}
	for _, r := range replays {
		rr := ReplayRenderResult{
			RenderID:      r.RenderID,
			Fingerprint:   r.Fingerprint,
			Deterministic: r.Match || r.Skipped,
			Skipped:       r.Skipped,
		}
		if r.Skipped {
			result.Skipped++
		}
		if !rr.Deterministic {
			rr.Stored = r.Stored
			rr.Replayed = r.Replayed
			result.AllDeterministic = false
		}
		result.Renders = append(result.Renders, rr)
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	if result.TotalRenders == 0 {
		fmt.Fprintln(formatter.Writer, "No renders found in database.")
		return nil
	}
	return outputReplayText(formatter.Writer, result, opts.Verbose)
}

func replayRenders(ctx context.Context, st *store.Store, eng *engine.Engine, renderID string) ([]*engine.ReplayResult, error) {
	if renderID == "" {
		return eng.ReplayAll(ctx)
	}

	rec, err := st.ReadRender(ctx, renderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("render %q not found", renderID)
	}
	if err != nil {
		return nil, err
	}
	if rec.Plan == "" {
		return []*engine.ReplayResult{{RenderID: rec.ID, Fingerprint: rec.Fingerprint, Skipped: true, Stored: rec.Comments}}, nil
	}
	r, err := eng.Replay(ctx, rec)
	if err != nil {
		return nil, err
	}
	return []*engine.ReplayResult{r}, nil
}

func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    string(engine.ErrCodeNonDeterministic),
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d render(s), %d skipped\n", result.TotalRenders, result.Skipped)
	fmt.Fprintln(w)

	for _, r := range result.Renders {
		switch {
		case r.Skipped:
			fmt.Fprintf(w, "- Render: %s (no plan, skipped)\n", r.RenderID)
			continue
		case r.Deterministic:
			fmt.Fprintf(w, "✓ Render: %s\n", r.RenderID)
		default:
			fmt.Fprintf(w, "✗ Render: %s\n", r.RenderID)
		}

		if verbose {
			fmt.Fprintf(w, "  Fingerprint: %s\n", r.Fingerprint)
		}
		if !r.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
			writeCommentDiff(w, r.Stored, r.Replayed)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All renders verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}

func writeCommentDiff(w io.Writer, stored, replayed []ir.BlockComment) {
	fmt.Fprintln(w, "  Logged:")
	for _, c := range stored {
		fmt.Fprintf(w, "    %s: %s\n", c.Block, c.Comment)
	}
	fmt.Fprintln(w, "  Replayed:")
	for _, c := range replayed {
		fmt.Fprintf(w, "    %s: %s\n", c.Block, c.Comment)
	}
}
