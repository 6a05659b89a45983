package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	paths, err := DiscoverScenarios(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, paths)
}

func TestDiscoverScenarios_Errors(t *testing.T) {
	var dirErr *ScenarioDirError

	_, err := DiscoverScenarios(filepath.Join(t.TempDir(), "missing"))
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, "does not exist", dirErr.Reason)

	_, err = DiscoverScenarios(t.TempDir())
	require.ErrorAs(t, err, &dirErr)
	assert.Contains(t, dirErr.Reason, "no .yaml scenarios")
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	good := `
name: good
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_good.yaml"), []byte(good), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_broken.yaml"), []byte("name: [\n"), 0644))

	results, err := RunSuite(dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed())
	assert.Equal(t, "good", results[0].Scenario)
	assert.False(t, results[1].Passed())
	assert.NotEmpty(t, results[1].LoadError)
}
