package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullScenario = `name: single_table_full
description: "Bare alias in the statement's own block"
plan:
  select:
    from:
      - table: Parent
        alias: p
        hints:
          - kind: FULL
assertions:
  - type: comment_equals
    block: sel_1
    comment: "/*+ FULL(p) */"
`

const flattenedScenario = `name: flattened_named_block
description: "A named block that was flattened cannot be addressed"
plan:
  select:
    from:
      - alias: s
        select:
          name: inner
          disposition: flattened
          from:
            - table: A
              alias: a
              hints:
                - kind: FULL
assertions:
  - type: error_code
    code: UNADDRESSABLE_BLOCK
`

const wrongScenario = `name: wrong_comment
description: "Expects the wrong comment"
plan:
  select:
    from:
      - table: Parent
        alias: p
        hints:
          - kind: FULL
assertions:
  - type: comment_equals
    block: sel_1
    comment: "/*+ NO_INDEX(p) */"
`

// writeScenarios lays out root/scenarios with the given files and returns
// the scenarios directory. Golden files default to root/golden.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"single_table_full.yaml":     fullScenario,
		"flattened_named_block.yaml": flattenedScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)

	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_table_full")
	assert.Contains(t, out, "✓ flattened_named_block")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"single_table_full.yaml": fullScenario,
		"wrong_comment.yaml":     wrongScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	for _, sr := range resp.Data.Scenarios {
		if sr.Name == "wrong_comment" {
			assert.False(t, sr.Pass)
			assert.NotEmpty(t, sr.Errors)
		}
	}
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"single_table_full.yaml": fullScenario})
	goldenPath := filepath.Join(filepath.Dir(dir), "golden", "single_table_full.golden")

	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), "/*+ FULL(p) */")

	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err, "render matches the golden file it just wrote")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0644))
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "render does not match golden file")
}

func TestTestCommandGoldenFlag(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"single_table_full.yaml": fullScenario})
	goldenDir := filepath.Join(t.TempDir(), "elsewhere")

	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update", "--golden", goldenDir)

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "single_table_full.golden"))
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"single_table_full.yaml": fullScenario,
		"wrong_comment.yaml":     wrongScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "single_*")

	require.NoError(t, err)
	assert.NotContains(t, out, "wrong_comment")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\nplan: [\n"})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)

	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandNoScenarios(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), writeScenarios(t, nil))
		require.NoError(t, err)
		assert.Contains(t, out, "No scenarios found.")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "scenarios directory not found")
	})
}
