package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/ir"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		in      string
		want    Ordering
		wantErr bool
	}{
		{"", OrderQueryFirst, false},
		{"query_first", OrderQueryFirst, false},
		{"query-first", OrderQueryFirst, false},
		{"ATTACHMENT", OrderAttachment, false},
		{"random", OrderQueryFirst, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrdering(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Ordering {
	t.Helper()
	o, err := ParseOrdering(s)
	require.NoError(t, err)
	return o
}

func TestRender_BlocksInEncounterOrder(t *testing.T) {
	f := newFixture(t)
	f.table(f.root, "Child", "c")
	s1 := f.sub(f.root, "p")
	p := f.table(s1, "Parent", "p")
	f.name(s1, "qn")
	f.tableHint(p, hint.Full)
	f.queryHint(s1, hint.NoUnnest)

	res, err := Resolve(f.reg)
	require.NoError(t, err)
	comments, err := Render(res)
	require.NoError(t, err)

	assert.Equal(t, []ir.BlockComment{
		{Block: "sel_1", Comment: "/*+ FULL(p@qn) */"},
		{Block: "sel_2", Comment: "/*+ QB_NAME(qn) NO_UNNEST */"},
	}, comments.Blocks())
	assert.Equal(t, 2, comments.Len())
}

func TestRender_QueryFirstKeepsGroupOrder(t *testing.T) {
	f := newFixture(t)
	p := f.table(f.root, "Parent", "p")
	c := f.table(f.root, "Child", "c")
	f.tableHint(c, hint.Full)
	f.queryHint(f.root, hint.Ordered)
	f.tableHint(p, hint.Cache)
	f.queryHint(f.root, hint.AllRows)

	assert.Equal(t, "/*+ ORDERED ALL_ROWS FULL(c) CACHE(p) */", f.comment(f.compile(), f.root))
	assert.Equal(t, "/*+ FULL(c) ORDERED CACHE(p) ALL_ROWS */",
		f.comment(f.compile(WithOrdering(OrderAttachment)), f.root))
}

func TestRender_QueryHintParamsUseSeparator(t *testing.T) {
	f := newFixture(t)
	f.table(f.root, "Parent", "p")
	vocab := f.reg.Vocabulary()
	require.Equal(t, hint.DefaultSeparator, vocab.Separator(hint.Leading))

	f.queryHint(f.root, hint.Leading, hint.Str("p"), hint.Str("x"))

	assert.Equal(t, "/*+ LEADING(p x) */", f.comment(f.compile(), f.root))
}
