package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/queryir"
	"github.com/roach88/sqlhint/internal/querysql"
)

func compileSQL(t *testing.T, spec *PlanSpec, opts ...querysql.Option) string {
	t.Helper()
	built, err := Build(spec)
	require.NoError(t, err)
	out, err := querysql.NewHintCompiler(opts...).Compile(built.Registry)
	require.NoError(t, err)
	return out.SQL
}

func TestBuildSimplePlan(t *testing.T) {
	spec := &PlanSpec{
		Name: "simple",
		Select: &SelectSpec{
			From: []SourceSpec{
				{Table: "Parent", Alias: "p", Hints: []HintSpec{{Kind: "FULL"}}},
			},
		},
	}

	assert.Equal(t, "SELECT /*+ FULL(p) */ * FROM Parent p", compileSQL(t, spec))
}

func TestBuildNestedSubqueries(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			From: []SourceSpec{{
				Alias: "p",
				Select: &SelectSpec{
					From: []SourceSpec{{
						Alias: "p",
						Select: &SelectSpec{
							From: []SourceSpec{
								{Table: "Parent", Alias: "p", Hints: []HintSpec{{Kind: "FULL"}}},
							},
						},
					}},
				},
			}},
		},
	}

	assert.Equal(t,
		"SELECT /*+ FULL(p_2.p_1.p) */ * FROM (SELECT * FROM (SELECT * FROM Parent p) p_1) p_2",
		compileSQL(t, spec))
}

// Hints inside FROM items are attached before the hints of the enclosing
// block, so attachment order puts FULL ahead of LEADING.
func TestBuildAttachmentOrder(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Hints: []HintSpec{{Kind: "LEADING", Params: []ParamSpec{{Table: "Pr"}, {Table: "Ch"}}}},
			From: []SourceSpec{
				{Table: "Parent", Alias: "p", ID: "Pr", Hints: []HintSpec{{Kind: "FULL"}}},
				{Table: "Child", Alias: "c", ID: "Ch"},
			},
		},
	}

	assert.Equal(t, "SELECT /*+ FULL(p) LEADING(p c) */ * FROM Parent p, Child c",
		compileSQL(t, spec, querysql.WithOrdering(querysql.OrderAttachment)))
	assert.Equal(t, "SELECT /*+ LEADING(p c) FULL(p) */ * FROM Parent p, Child c",
		compileSQL(t, spec))
}

func TestBuildParamsAndIndexes(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Hints: []HintSpec{{Kind: "FIRST_ROWS", Params: []ParamSpec{{Value: 25}}}},
			From: []SourceSpec{{
				Table: "Parent",
				Alias: "p",
				Hints: []HintSpec{
					{Kind: "PARALLEL", Params: []ParamSpec{{Value: "DEFAULT"}}},
					{Kind: "INDEX", Indexes: []string{"parent_ix", "parent2_ix"}},
					{Kind: "DYNAMIC_SAMPLING", Sep: ", ", Params: []ParamSpec{{Value: 4}}},
				},
			}},
		},
	}

	assert.Equal(t,
		"SELECT /*+ FIRST_ROWS(25) PARALLEL(p, DEFAULT) INDEX(p parent_ix parent2_ix) DYNAMIC_SAMPLING(p, 4) */ * FROM Parent p",
		compileSQL(t, spec))
}

func TestBuildBlockParam(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Hints: []HintSpec{{Kind: "NO_UNNEST", Params: []ParamSpec{{Block: "inner"}}}},
			From: []SourceSpec{
				{Table: "Child", Alias: "c"},
				{Alias: "p", Select: &SelectSpec{
					Ref:  "inner",
					From: []SourceSpec{{Table: "Parent", Alias: "p"}},
				}},
			},
		},
	}

	assert.Equal(t,
		"SELECT /*+ NO_UNNEST(@sel_2) */ * FROM Child c, (SELECT /*+ QB_NAME(sel_2) */ * FROM Parent p) p_1",
		compileSQL(t, spec))
}

func TestBuildSetOpRoot(t *testing.T) {
	branch := func(name string) SelectSpec {
		return SelectSpec{
			Name: name,
			From: []SourceSpec{
				{Table: "Child", Alias: "c"},
				{Table: "Parent", Alias: "p", Hints: []HintSpec{{Kind: "FULL"}}},
			},
		}
	}
	spec := &PlanSpec{
		SetOp: &SetOpSpec{Kind: "union", Branches: []SelectSpec{branch("qb_1"), branch("qb_2")}},
	}

	assert.Equal(t,
		"SELECT /*+ QB_NAME(qb_1) FULL(p@qb_1) FULL(p_1@qb_2) */ * FROM Child c, Parent p "+
			"UNION SELECT /*+ QB_NAME(qb_2) */ * FROM Child c_1, Parent p_1",
		compileSQL(t, spec))
}

func TestBuildCloneBranch(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			From: []SourceSpec{{
				Alias: "p",
				SetOp: &SetOpSpec{Branches: []SelectSpec{
					{Ref: "q", From: []SourceSpec{{Table: "Parent", Alias: "p", Hints: []HintSpec{{Kind: "FULL"}}}}},
					{CloneOf: "q"},
				}},
			}},
		},
	}

	built, err := Build(spec)
	require.NoError(t, err)

	out, err := querysql.NewHintCompiler().Compile(built.Registry)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT /*+ FULL(p_2.p) FULL(p_2.p_1) */ * FROM (SELECT * FROM Parent p UNION SELECT * FROM Parent p_1) p_2",
		out.SQL)
	assert.Len(t, built.Registry.HintedNodes(), 2)
}

func TestBuildPinnedAndDisposition(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			From: []SourceSpec{{
				Alias:  "v",
				Pinned: true,
				Select: &SelectSpec{
					Disposition: "isolated",
					From:        []SourceSpec{{Table: "Parent", Alias: "p", Hints: []HintSpec{{Kind: "CACHE"}}}},
				},
			}},
		},
	}

	built, err := Build(spec)
	require.NoError(t, err)

	var sub queryir.NodeID
	built.Tree.Walk(func(n *queryir.Node) bool {
		if n.Kind == queryir.KindSelect && n.ID != built.Tree.Root() {
			sub = n.ID
		}
		return true
	})
	require.True(t, sub.Valid())
	assert.True(t, built.Tree.Node(sub).Pinned)
	assert.Equal(t, queryir.Isolated, built.Tree.Node(sub).Disposition)
	assert.Equal(t, "SELECT * FROM (SELECT /*+ CACHE(p) */ * FROM Parent p) v", compileSQL(t, spec))
}

func TestBuildRawHint(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Hints: []HintSpec{{Raw: "OPT_PARAM('star_transformation_enabled' 'true')"}},
			From:  []SourceSpec{{Table: "Sales", Alias: "s"}},
		},
	}

	assert.Equal(t, "SELECT /*+ OPT_PARAM('star_transformation_enabled' 'true') */ * FROM Sales s", compileSQL(t, spec))
}

func TestBuildCustomKinds(t *testing.T) {
	spec := &PlanSpec{
		Name:  "custom",
		Kinds: []KindSpec{{Kind: "NO_GATHER_OPTIMIZER_STATISTICS", Category: "query"}},
		Select: &SelectSpec{
			Hints: []HintSpec{{Kind: "NO_GATHER_OPTIMIZER_STATISTICS"}},
			From:  []SourceSpec{{Table: "Sales", Alias: "s"}},
		},
	}

	built, err := Build(spec)
	require.NoError(t, err)

	ks, ok := built.Registry.Vocabulary().Lookup("NO_GATHER_OPTIMIZER_STATISTICS")
	require.True(t, ok)
	assert.Equal(t, hint.CategoryQuery, ks.Category)
	assert.Equal(t, "custom", built.Registry.Vocabulary().Name())
}

func TestBuildRejectsInvalidPlan(t *testing.T) {
	_, err := Build(&PlanSpec{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrPlanRoot)
}

func TestBuildRejectsCategoryMismatch(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Hints: []HintSpec{{Kind: "FULL"}},
			From:  []SourceSpec{{Table: "Parent", Alias: "p"}},
		},
	}

	_, err := Build(spec)

	require.Error(t, err)
	assert.True(t, hint.IsInvalidHint(err), "unexpected error: %v", err)
	assert.Contains(t, err.Error(), "select.hints[0]")
}

func TestBuildRefsExposed(t *testing.T) {
	spec := &PlanSpec{
		Select: &SelectSpec{
			Ref: "top",
			From: []SourceSpec{
				{Alias: "s", Select: &SelectSpec{Ref: "inner", From: []SourceSpec{{Table: "A", Alias: "a"}}}},
			},
		},
	}

	built, err := Build(spec)
	require.NoError(t, err)

	assert.Equal(t, built.Tree.Root(), built.Refs["top"])
	assert.Equal(t, queryir.KindSelect, built.Tree.Node(built.Refs["inner"]).Kind)
}
