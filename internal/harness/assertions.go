package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlhint/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the rendered comments to help debug the failure.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Comments []ir.BlockComment // Every rendered comment for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Comments) > 0 {
		fmt.Fprintf(&buf, "\nRendered comments:\n")
		for _, c := range e.Comments {
			fmt.Fprintf(&buf, "  %s: %s\n", c.Block, c.Comment)
		}
	}

	return buf.String()
}

func (r *Result) failure(typ, expected, actual string) *AssertionError {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Comments: r.Comments}
}

// assertRendered fails when the render itself failed.
func assertRendered(result *Result, typ string) error {
	if result.Error == "" {
		return nil
	}
	return result.failure(typ, "successful render", "render failed: "+result.Error)
}

func assertComment(result *Result, a Assertion) error {
	if err := assertRendered(result, a.Type); err != nil {
		return err
	}
	got, ok := result.Comment(a.Block)
	if !ok {
		return result.failure(a.Type, fmt.Sprintf("comment on %s", a.Block), "no comment on "+a.Block)
	}

	switch a.Type {
	case AssertCommentEquals:
		if got != a.Comment {
			return result.failure(a.Type, fmt.Sprintf("%s: %s", a.Block, a.Comment), fmt.Sprintf("%s: %s", a.Block, got))
		}
	default:
		if !strings.Contains(got, a.Text) {
			return result.failure(a.Type, fmt.Sprintf("%s containing %q", a.Block, a.Text), fmt.Sprintf("%s: %s", a.Block, got))
		}
	}
	return nil
}

func assertSQL(result *Result, a Assertion) error {
	if err := assertRendered(result, a.Type); err != nil {
		return err
	}

	switch a.Type {
	case AssertSQLEquals:
		if result.SQL != a.SQL {
			return result.failure(a.Type, a.SQL, result.SQL)
		}
	default:
		if !strings.Contains(result.SQL, a.Text) {
			return result.failure(a.Type, fmt.Sprintf("SQL containing %q", a.Text), result.SQL)
		}
	}
	return nil
}

func assertBlockCount(result *Result, a Assertion) error {
	if err := assertRendered(result, a.Type); err != nil {
		return err
	}
	if len(result.Comments) != a.Count {
		return result.failure(a.Type, fmt.Sprintf("%d comments", a.Count), fmt.Sprintf("%d comments", len(result.Comments)))
	}
	return nil
}

func assertErrorCode(result *Result, a Assertion) error {
	if result.Error == "" {
		return result.failure(a.Type, "render error "+a.Code, "render succeeded")
	}
	if result.ErrorCode != a.Code {
		return result.failure(a.Type, "render error "+a.Code, fmt.Sprintf("%s (%s)", result.ErrorCode, result.Error))
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
//
// A render error with no error_code assertion expecting it is itself a
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	expectsError := false

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCommentEquals, AssertCommentContains:
			err = assertComment(result, assertion)
		case AssertSQLEquals, AssertSQLContains:
			err = assertSQL(result, assertion)
		case AssertBlockCount:
			err = assertBlockCount(result, assertion)
		case AssertErrorCode:
			expectsError = true
			err = assertErrorCode(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if result.Error != "" && !expectsError && len(errs) == 0 {
		errs = append(errs, fmt.Sprintf("unexpected render error: %s", result.Error))
	}

	return errs
}
