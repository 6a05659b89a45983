package harness

import "github.com/roach88/sqlhint/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the plan rendered (or failed) as every assertion
	// expects.
	Pass bool `json:"pass"`

	// RenderID identifies the render in the scenario's log.
	RenderID string `json:"render_id,omitempty"`

	// Comments holds the rendered comment of each level, in level order.
	Comments []ir.BlockComment `json:"comments"`

	// SQL is the skeleton statement carrying the comments.
	SQL string `json:"sql,omitempty"`

	// ErrorCode and Error describe a failed render. Empty on success.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Comments: []ir.BlockComment{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Comment returns the comment rendered for a block label.
func (r *Result) Comment(block string) (string, bool) {
	for _, c := range r.Comments {
		if c.Block == block {
			return c.Comment, true
		}
	}
	return "", false
}
