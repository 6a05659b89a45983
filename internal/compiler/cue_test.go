package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/querysql"
)

func lookup(t *testing.T, src, path string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v.LookupPath(cue.ParsePath(path))
}

func orderingOf(t *testing.T, spec *PlanSpec) querysql.Option {
	t.Helper()
	o, err := querysql.ParseOrdering(spec.Order)
	require.NoError(t, err)
	return querysql.WithOrdering(o)
}

func TestCompilePlanBasic(t *testing.T) {
	v := lookup(t, `
		plan: TableID3: {
			order: "attachment"
			select: {
				hints: [{kind: "LEADING", params: [{table: "Pr"}, {table: "Ch"}]}]
				from: [
					{
						alias: "p"
						select: {
							name: "qn"
							from: [{
								alias: "p"
								select: from: [{table: "Parent", alias: "p", id: "Pr", hints: ["FULL"]}]
							}]
						}
					},
					{table: "Child", alias: "c", id: "Ch"},
				]
			}
		}
	`, "plan.TableID3")

	spec, err := CompilePlan(v)
	require.NoError(t, err)

	assert.Equal(t, "TableID3", spec.Name)
	assert.Equal(t, "attachment", spec.Order)
	require.NotNil(t, spec.Select)
	require.Len(t, spec.Select.From, 2)
	assert.Equal(t, "qn", spec.Select.From[0].Select.Name)
	inner := spec.Select.From[0].Select.From[0].Select.From[0]
	assert.Equal(t, "Parent", inner.Table)
	assert.Equal(t, "Pr", inner.ID)
	assert.Equal(t, []HintSpec{{Kind: "FULL"}}, inner.Hints)
	assert.Equal(t, []ParamSpec{{Table: "Pr"}, {Table: "Ch"}}, spec.Select.Hints[0].Params)

	assert.Equal(t, "SELECT /*+ FULL(p_1.p@qn) LEADING(p_1.p@qn c) */ * FROM "+
		"(SELECT /*+ QB_NAME(qn) */ * FROM (SELECT * FROM Parent p) p_1) p_2, Child c",
		compileSQL(t, spec, orderingOf(t, spec)))
}

func TestCompilePlanParams(t *testing.T) {
	v := lookup(t, `
		plan: P: select: {
			hints: [{kind: "FIRST_ROWS", params: [25]}]
			from: [{
				table: "Parent"
				alias: "p"
				hints: [
					{kind: "PARALLEL", params: ["DEFAULT"]},
					{kind: "DYNAMIC_SAMPLING", sep: ", ", params: [{value: 4}]},
					{kind: "INDEX", indexes: ["parent_ix"]},
					{kind: "X_FLAG", params: [true]},
				]
			}]
		}
	`, "plan.P")

	spec, err := CompilePlan(v)
	require.NoError(t, err)

	assert.Equal(t, []ParamSpec{{Value: int64(25)}}, spec.Select.Hints[0].Params)
	hints := spec.Select.From[0].Hints
	assert.Equal(t, []ParamSpec{{Value: "DEFAULT"}}, hints[0].Params)
	assert.Equal(t, ", ", hints[1].Sep)
	assert.Equal(t, []ParamSpec{{Value: int64(4)}}, hints[1].Params)
	assert.Equal(t, []string{"parent_ix"}, hints[2].Indexes)
	assert.Equal(t, []ParamSpec{{Value: true}}, hints[3].Params)
}

func TestCompilePlanSetOp(t *testing.T) {
	v := lookup(t, `
		plan: U: set_op: {
			kind: "union all"
			branches: [
				{name: "qb_1", from: [{table: "A", alias: "a"}]},
				{name: "qb_2", ref: "two", disposition: "named", from: [{table: "B"}]},
			]
		}
	`, "plan.U")

	spec, err := CompilePlan(v)
	require.NoError(t, err)

	require.NotNil(t, spec.SetOp)
	assert.Equal(t, "union all", spec.SetOp.Kind)
	require.Len(t, spec.SetOp.Branches, 2)
	assert.Equal(t, "two", spec.SetOp.Branches[1].Ref)
	assert.Equal(t, "named", spec.SetOp.Branches[1].Disposition)
}

func TestCompilePlanNameOverride(t *testing.T) {
	v := lookup(t, `plan: short: {name: "a longer name", select: {}}`, "plan.short")

	spec, err := CompilePlan(v)
	require.NoError(t, err)

	assert.Equal(t, "a longer name", spec.Name)
}

func TestCompilePlanErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing root", `plan: X: {order: "attachment"}`, "plan"},
		{"both roots", `plan: X: {select: {}, set_op: {branches: []}}`, "plan"},
		{"unknown field", `plan: X: {select: {form: []}}`, "form"},
		{"float param", `plan: X: select: hints: [{kind: "X", params: [1.5]}]`, "params"},
		{"missing branches", `plan: X: set_op: {kind: "union"}`, "branches"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompilePlan(lookup(t, tt.src, "plan.X"))

			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompilePlanTypeError(t *testing.T) {
	_, err := CompilePlan(lookup(t, `plan: X: {order: 5, select: {}}`, "plan.X"))

	assert.Error(t, err)
}

func TestCompileVocabulary(t *testing.T) {
	v := lookup(t, `
		vocabulary: Extra: {
			kinds: [
				{kind: "NO_GATHER_OPTIMIZER_STATISTICS", category: "query"},
				{kind: "PQ_DISTRIBUTE", category: "table", separator: " "},
			]
		}
	`, "vocabulary.Extra")

	vocab, err := CompileVocabulary(v)
	require.NoError(t, err)

	assert.Equal(t, "Extra", vocab.Name())
	ks, ok := vocab.Lookup("NO_GATHER_OPTIMIZER_STATISTICS")
	require.True(t, ok)
	assert.Equal(t, hint.CategoryQuery, ks.Category)
	_, ok = vocab.Lookup(hint.Full)
	assert.True(t, ok, "oracle kinds are kept")
}

func TestCompileVocabularyEmptyBase(t *testing.T) {
	v := lookup(t, `vocabulary: V: {base: "none", kinds: [{kind: "A", category: "index"}]}`, "vocabulary.V")

	vocab, err := CompileVocabulary(v)
	require.NoError(t, err)

	assert.Len(t, vocab.Kinds(), 1)
}

func TestCompileVocabularyErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no kinds", `vocabulary: V: {}`},
		{"unknown base", `vocabulary: V: {base: "mysql", kinds: []}`},
		{"bad category", `vocabulary: V: kinds: [{kind: "A", category: "row"}]`},
		{"missing category", `vocabulary: V: kinds: [{kind: "A"}]`},
		{"reserved kind", `vocabulary: V: kinds: [{kind: "QB_NAME", category: "query"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileVocabulary(lookup(t, tt.src, "vocabulary.V"))
			assert.Error(t, err)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "kinds", Message: "kinds is required"}
	assert.Equal(t, "kinds: kinds is required", err.Error())
}
