package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestPlan(t *testing.T, name string) *LoadResult {
	t.Helper()
	loaded, errs := LoadPlans(writePlans(t, map[string]string{"plans.cue": testPlans}), LoadModeFailFast)
	require.Empty(t, errs)
	_, ok := loaded.Plan(name)
	require.True(t, ok, "plan %s not loaded", name)
	return loaded
}

func TestExplainTableID3(t *testing.T) {
	loaded := loadTestPlan(t, "TableID3")
	plan, _ := loaded.Plan("TableID3")

	exp, err := Explain(plan)
	require.NoError(t, err)

	assert.Equal(t, "TableID3", exp.Plan)
	assert.Equal(t, "attachment", exp.Order)

	require.Len(t, exp.Blocks, 3)
	assert.Equal(t, ExplainBlock{Label: "sel_1", Disposition: "isolated", HintLevel: "sel_1"}, exp.Blocks[0])
	assert.Equal(t, "sel_2", exp.Blocks[1].Label)
	assert.Equal(t, "named", exp.Blocks[1].Disposition)
	assert.Equal(t, "qn", exp.Blocks[1].Name)
	assert.Equal(t, "flattened", exp.Blocks[2].Disposition)
	assert.Empty(t, exp.Blocks[2].Name)

	assert.Equal(t, []ExplainTable{
		{Table: "Parent", Alias: "p", Address: "p_1.p@qn", Mode: "block_qualified", Level: "sel_1"},
		{Table: "Child", Alias: "c", Address: "c", Mode: "bare", Level: "sel_1"},
	}, exp.Tables)

	require.Len(t, exp.Comments, 2)
	assert.Equal(t, "/*+ FULL(p_1.p@qn) LEADING(p_1.p@qn c) */", exp.Comments[0].Comment)
}

func TestExplainErrors(t *testing.T) {
	loaded := loadTestPlan(t, "Simple")
	plan, _ := loaded.Plan("Simple")

	bad := *plan
	bad.Order = "sideways"
	_, err := Explain(&bad)
	assert.Error(t, err)
}

func TestExplainCommandText(t *testing.T) {
	dir := writePlans(t, map[string]string{"plans.cue": testPlans})

	out, err := execute(NewExplainCommand(&RootOptions{Format: "text"}), dir, "--plan", "TableID3", "--order", "query-first")
	require.NoError(t, err)

	assert.Contains(t, out, "Plan: TableID3 (order query_first)")
	assert.Contains(t, out, "name=qn")
	assert.Contains(t, out, "p_1.p@qn (block_qualified) at sel_1")
	assert.Contains(t, out, "sel_1: /*+ LEADING(p_1.p@qn c) FULL(p_1.p@qn) */")
	assert.Contains(t, out, "SQL: SELECT /*+ LEADING(p_1.p@qn c) FULL(p_1.p@qn) */")
}

func TestExplainCommandErrors(t *testing.T) {
	dir := writePlans(t, map[string]string{"plans.cue": testPlans, "bad.cue": flattenedNamedPlan})

	t.Run("plan flag required", func(t *testing.T) {
		_, err := execute(NewExplainCommand(&RootOptions{Format: "text"}), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := execute(NewExplainCommand(&RootOptions{Format: "text"}), dir, "--plan", "Nope")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unrenderable plan", func(t *testing.T) {
		out, err := execute(NewExplainCommand(&RootOptions{Format: "text"}), dir, "--plan", "Flattened")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "Error [UNADDRESSABLE_BLOCK]")
	})
}
