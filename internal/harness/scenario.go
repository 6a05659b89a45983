package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlhint/internal/compiler"
	"github.com/roach88/sqlhint/internal/querysql"
)

// Scenario defines a render test: a plan and what its render must look like.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Order overrides the plan's hint ordering when set.
	Order string `yaml:"order,omitempty"`

	// Plan is the query tree, dispositions and hints to render.
	Plan compiler.PlanSpec `yaml:"plan"`

	// Assertions validate the rendered comments or the render error.
	// Supported types: comment_equals, comment_contains, sql_equals,
	// sql_contains, block_count, error_code
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a render.
type Assertion struct {
	// Type specifies the assertion type:
	// - "comment_equals": Block's comment is exactly Comment
	// - "comment_contains": Block's comment contains Text
	// - "sql_equals": Skeleton SQL is exactly SQL
	// - "sql_contains": Skeleton SQL contains Text
	// - "block_count": Exactly Count levels have a comment
	// - "error_code": Render failed with Code
	Type string `yaml:"type"`

	// Block is the level label, e.g. sel_1 (comment_equals, comment_contains).
	Block string `yaml:"block,omitempty"`

	// Comment is the expected comment (comment_equals).
	Comment string `yaml:"comment,omitempty"`

	// Text is the expected substring (comment_contains, sql_contains).
	Text string `yaml:"text,omitempty"`

	// SQL is the expected statement (sql_equals).
	SQL string `yaml:"sql,omitempty"`

	// Count is the expected number of comments (block_count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code (error_code).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertCommentEquals   = "comment_equals"
	AssertCommentContains = "comment_contains"
	AssertSQLEquals       = "sql_equals"
	AssertSQLContains     = "sql_contains"
	AssertBlockCount      = "block_count"
	AssertErrorCode       = "error_code"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields. The plan itself is validated
// when it is built, so its errors can be asserted on.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Plan.Select == nil && s.Plan.SetOp == nil {
		return fmt.Errorf("plan needs a select or a set_op")
	}
	if s.Order != "" {
		if _, err := querysql.ParseOrdering(s.Order); err != nil {
			return fmt.Errorf("order: %w", err)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("at least one assertion is required")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCommentEquals:
		if a.Block == "" || a.Comment == "" {
			return fmt.Errorf("assertions[%d]: block and comment are required for comment_equals", index)
		}
	case AssertCommentContains:
		if a.Block == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: block and text are required for comment_contains", index)
		}
	case AssertSQLEquals:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for sql_equals", index)
		}
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	case AssertBlockCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for block_count", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
