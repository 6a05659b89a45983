package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/harness"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
	"github.com/roach88/sqlhint/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Plan  string
	Order string
}

// ExplainBlock describes how one SELECT was resolved.
type ExplainBlock struct {
	Label       string `json:"label"`
	Disposition string `json:"disposition"`
	Name        string `json:"name,omitempty"`       // QB_NAME, when the block is named
	HintLevel   string `json:"hint_level,omitempty"` // block whose comment carries its query hints
}

// ExplainTable describes how one table reference is addressed.
type ExplainTable struct {
	Table   string `json:"table"`
	Alias   string `json:"alias"`
	Address string `json:"address"`
	Mode    string `json:"mode"`
	Level   string `json:"level"`
}

// Explanation is the resolution of one plan.
type Explanation struct {
	Plan     string            `json:"plan"`
	Order    string            `json:"order"`
	Blocks   []ExplainBlock    `json:"blocks"`
	Tables   []ExplainTable    `json:"tables"`
	Comments []ir.BlockComment `json:"comments"`
	SQL      string            `json:"sql"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <plans-dir>",
		Short: "Show how a plan's blocks and tables are resolved",
		Long: `Show the resolution behind a plan's hint comments.

The output includes:
- Blocks: effective disposition, query block name and hint level of
  every SELECT, labelled sel_N by pre-order position
- Tables: final alias and address (bare, dotted or block-qualified) of
  every table reference and the block whose comment carries its hints
- Comments and the skeleton SQL

Examples:
  sqlhint explain ./plans --plan TableID3
  sqlhint explain ./plans --plan TableID3 --order attachment --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Plan, "plan", "", "plan to explain (required)")
	_ = cmd.MarkFlagRequired("plan")
	cmd.Flags().StringVar(&opts.Order, "order", "", "hint order (query-first|attachment), default from the plan")

	return cmd
}

func runExplain(opts *ExplainOptions, plansDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	plans, err := selectPlans(formatter, plansDir, opts.Plan)
	if err != nil {
		return err
	}
	plan := plans[0]
	if opts.Order != "" {
		plan.Order = opts.Order
	}

	exp, err := Explain(&plan)
	if err != nil {
		code := harness.ErrorCode(err)
		if code == "" {
			code = ErrCodeGeneric
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("explain %s", plan.Name), err)
	}

	if formatter.JSON() {
		return formatter.Success(exp)
	}
	outputExplainText(formatter.Writer, exp)
	return nil
}

// Explain builds, resolves and renders a plan, and describes the result.
func Explain(plan *compiler.PlanSpec) (*Explanation, error) {
	ordering, err := querysql.ParseOrdering(plan.Order)
	if err != nil {
		return nil, err
	}
	built, err := compiler.Build(plan)
	if err != nil {
		return nil, err
	}
	out, err := querysql.NewHintCompiler(querysql.WithOrdering(ordering)).Compile(built.Registry)
	if err != nil {
		return nil, err
	}

	res := out.Resolution
	tree := res.Tree()
	exp := &Explanation{
		Plan:     plan.Name,
		Order:    ordering.String(),
		Blocks:   []ExplainBlock{},
		Tables:   []ExplainTable{},
		Comments: out.Comments.Blocks(),
		SQL:      out.SQL,
	}

	for _, id := range res.Order() {
		n := tree.Node(id)
		switch n.Kind {
		case queryir.KindSelect:
			b := ExplainBlock{
				Label:       res.Label(id),
				Disposition: res.Disposition(id).String(),
			}
			if name, ok := res.BlockName(id); ok {
				b.Name = name
			}
			if level := res.HintLevel(id); level.Valid() {
				b.HintLevel = res.Label(level)
			}
			exp.Blocks = append(exp.Blocks, b)

		case queryir.KindTable:
			addr, _ := res.Address(id)
			exp.Tables = append(exp.Tables, ExplainTable{
				Table:   n.Table,
				Alias:   res.Alias(id),
				Address: addr.String(),
				Mode:    addr.Mode.String(),
				Level:   res.Label(res.RenderLevel(id)),
			})
		}
	}
	return exp, nil
}

func outputExplainText(w io.Writer, exp *Explanation) {
	fmt.Fprintf(w, "Plan: %s (order %s)\n\n", exp.Plan, exp.Order)

	fmt.Fprintln(w, "Blocks:")
	for _, b := range exp.Blocks {
		fmt.Fprintf(w, "  %-8s %-10s", b.Label, b.Disposition)
		if b.Name != "" {
			fmt.Fprintf(w, " name=%s", b.Name)
		}
		if b.HintLevel != "" && b.HintLevel != b.Label {
			fmt.Fprintf(w, " hints→%s", b.HintLevel)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tables:")
	for _, t := range exp.Tables {
		fmt.Fprintf(w, "  %-12s alias=%-6s %s (%s) at %s\n", t.Table, t.Alias, t.Address, t.Mode, t.Level)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Comments:")
	if len(exp.Comments) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range exp.Comments {
		fmt.Fprintf(w, "  %s: %s\n", c.Block, c.Comment)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "SQL: %s\n", exp.SQL)
}
