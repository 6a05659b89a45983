package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/harness"
	"github.com/roach88/sqlhint/internal/querysql"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Resolve bool // also build and resolve each plan
}

// Problem is one validation finding.
type Problem struct {
	Plan    string `json:"plan,omitempty"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Plans    int       `json:"plans"`
	Problems []Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <plans-dir>",
		Short: "Validate plans without rendering",
		Long: `Validate CUE plans and vocabulary extensions without rendering.

Checks field names and types, plan shape, set operations, dispositions
and that every table and block parameter names a declared id or ref.
With --resolve each plan is also built and resolved, which catches
errors that depend on the optimizer's dispositions (for example a
named block that was flattened).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Resolve, "resolve", false, "also build and resolve each plan")

	return cmd
}

func runValidate(opts *ValidateOptions, plansDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, loadErrs := LoadPlans(plansDir, LoadModeCollectAll)
	if loaded == nil {
		var loadErr *LoadError
		if errors.As(loadErrs[0], &loadErr) {
			return commandError(formatter, loadErr.Code, loadErr.Message)
		}
		return commandError(formatter, ErrCodeGeneric, loadErrs[0].Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, plansDir)

	result := ValidationResult{Plans: len(loaded.Plans)}
	for _, err := range loadErrs {
		result.Problems = append(result.Problems, loadProblem(err))
	}
	for i := range loaded.Plans {
		plan := &loaded.Plans[i]
		formatter.VerboseLog("Validating plan: %s", plan.Name)
		result.Problems = append(result.Problems, validatePlan(plan, opts.Resolve)...)
	}
	result.Valid = len(result.Problems) == 0

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// validatePlan runs static validation and, when resolve is set, a dry render
// pass over a valid plan.
func validatePlan(plan *compiler.PlanSpec, resolve bool) []Problem {
	var problems []Problem
	for _, ve := range compiler.Validate(plan) {
		problems = append(problems, Problem{Plan: plan.Name, Field: ve.Field, Code: ve.Code, Message: ve.Message})
	}
	if len(problems) > 0 || !resolve {
		return problems
	}

	built, err := compiler.Build(plan)
	if err == nil {
		_, err = querysql.Resolve(built.Registry)
	}
	if err != nil {
		code := harness.ErrorCode(err)
		if code == "" {
			code = ErrCodeGeneric
		}
		problems = append(problems, Problem{Plan: plan.Name, Field: "plan", Code: code, Message: err.Error()})
	}
	return problems
}

func loadProblem(err error) Problem {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		p := Problem{Field: "load", Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			p.Line = loadErr.Pos.Line()
		}
		return p
	}
	return Problem{Field: "load", Code: ErrCodeGeneric, Message: err.Error()}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All plans valid (%d)\n", result.Plans)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Problems)))

	if formatter.JSON() {
		first := result.Problems[0]
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range result.Problems {
		writeProblem(formatter.Writer, p)
	}
	return exitErr
}

func writeProblem(w io.Writer, p Problem) {
	switch {
	case p.Plan != "":
		fmt.Fprintf(w, "plan %s, %s\n", p.Plan, p.Field)
	case p.Line > 0:
		fmt.Fprintf(w, "line %d\n", p.Line)
	}
	fmt.Fprintf(w, "  %s: %s\n\n", p.Code, p.Message)
}
