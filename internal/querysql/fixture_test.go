package querysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/queryir"
)

// fixture builds a tree and its registry side by side.
type fixture struct {
	t    *testing.T
	tree *queryir.Tree
	root queryir.NodeID
	reg  *hint.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tree, root := queryir.NewTree()
	return &fixture{t: t, tree: tree, root: root, reg: hint.NewRegistry(tree)}
}

func newSetOpFixture(t *testing.T, op queryir.SetOpKind) *fixture {
	t.Helper()
	tree, root := queryir.NewSetOpTree(op)
	return &fixture{t: t, tree: tree, root: root, reg: hint.NewRegistry(tree)}
}

func (f *fixture) table(sel queryir.NodeID, name, alias string) queryir.NodeID {
	f.t.Helper()
	id, err := f.tree.AddTable(sel, name, alias)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) sub(sel queryir.NodeID, alias string) queryir.NodeID {
	f.t.Helper()
	id, err := f.tree.AddSubquery(sel, alias)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) setOp(sel queryir.NodeID, alias string) queryir.NodeID {
	f.t.Helper()
	id, err := f.tree.AddSetOp(sel, queryir.Union, alias)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) branch(setOp queryir.NodeID) queryir.NodeID {
	f.t.Helper()
	id, err := f.tree.AddBranch(setOp)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) pin(id queryir.NodeID) {
	f.t.Helper()
	require.NoError(f.t, f.tree.Pin(id))
}

func (f *fixture) dispose(sel queryir.NodeID, d queryir.Disposition) {
	f.t.Helper()
	require.NoError(f.t, f.tree.SetDisposition(sel, d))
}

func (f *fixture) name(sel queryir.NodeID, name string) {
	f.t.Helper()
	require.NoError(f.t, f.reg.SetQueryBlockName(sel, name))
}

func (f *fixture) id(table queryir.NodeID, name string) {
	f.t.Helper()
	require.NoError(f.t, f.reg.RegisterTableIdentifier(table, name))
}

func (f *fixture) tableHint(table queryir.NodeID, kind hint.Kind, params ...hint.Param) {
	f.t.Helper()
	require.NoError(f.t, f.reg.AttachTableHint(table, kind, params...))
}

func (f *fixture) queryHint(sel queryir.NodeID, kind hint.Kind, params ...hint.Param) {
	f.t.Helper()
	require.NoError(f.t, f.reg.AttachQueryHint(sel, kind, params...))
}

func (f *fixture) compile(opts ...Option) *Output {
	f.t.Helper()
	out, err := NewHintCompiler(opts...).Compile(f.reg)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) compileErr(opts ...Option) error {
	f.t.Helper()
	_, err := NewHintCompiler(opts...).Compile(f.reg)
	require.Error(f.t, err)
	return err
}

// comment returns the comment rendered for a block ("" when none).
func (f *fixture) comment(out *Output, sel queryir.NodeID) string {
	c, _ := out.Comments.For(sel)
	return c
}
