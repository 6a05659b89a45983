package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sqlhint/internal/ir"
)

// RenderSnapshot captures the render of a scenario.
// Serialized as canonical JSON for deterministic comparison.
type RenderSnapshot struct {
	ScenarioName string            `json:"scenario_name"`
	RenderID     string            `json:"render_id,omitempty"`
	Comments     []ir.BlockComment `json:"comments"`
	SQL          string            `json:"sql,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
}

// Canonical converts the snapshot to an IRObject for canonical JSON.
func (s *RenderSnapshot) Canonical() ir.IRObject {
	comments := make(ir.IRArray, len(s.Comments))
	for i, c := range s.Comments {
		comments[i] = ir.IRObject{
			"block":   ir.IRString(c.Block),
			"comment": ir.IRString(c.Comment),
		}
	}

	obj := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"comments":      comments,
	}
	if s.RenderID != "" {
		obj["render_id"] = ir.IRString(s.RenderID)
	}
	if s.SQL != "" {
		obj["sql"] = ir.IRString(s.SQL)
	}
	if s.ErrorCode != "" {
		obj["error_code"] = ir.IRString(s.ErrorCode)
	}
	return obj
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(scenarioName string, result *Result) RenderSnapshot {
	return RenderSnapshot{
		ScenarioName: scenarioName,
		RenderID:     result.RenderID,
		Comments:     result.Comments,
		SQL:          result.SQL,
		ErrorCode:    result.ErrorCode,
	}
}

// RunWithGolden executes a scenario and compares its render against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the render doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := ir.MarshalCanonical(snapshot.Canonical())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
