package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/queryir"
)

// HintCompiler resolves a hinted query tree and renders its hint comments
// and a SQL skeleton carrying them.
//
// The skeleton is not the final SQL of the enclosing system: it selects *
// from every FROM item and has no predicates. It exists so the placement
// of each comment can be checked (and shown) in context.
type HintCompiler struct {
	opts []Option
}

// NewHintCompiler creates a new HintCompiler.
func NewHintCompiler(opts ...Option) *HintCompiler {
	return &HintCompiler{opts: opts}
}

// Output is the result of one compile pass.
type Output struct {
	Resolution *Resolution
	Comments   *Comments
	SQL        string
}

// Compile resolves and renders the registry's tree.
// The pass is pure: the same registry always yields the same output.
func (c *HintCompiler) Compile(reg *hint.Registry) (*Output, error) {
	if reg == nil || reg.Tree() == nil {
		return nil, fmt.Errorf("cannot compile nil registry")
	}

	res, err := Resolve(reg)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	comments, err := Render(res, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &Output{
		Resolution: res,
		Comments:   comments,
		SQL:        assemble(res, comments),
	}, nil
}

// assemble writes the SQL skeleton, splicing each comment right after its
// block's SELECT keyword.
func assemble(res *Resolution, comments *Comments) string {
	var b strings.Builder
	writeNode(&b, res, comments, res.tree.Root())
	return b.String()
}

func writeNode(b *strings.Builder, res *Resolution, comments *Comments, id queryir.NodeID) {
	n := res.tree.Node(id)
	switch n.Kind {
	case queryir.KindTable:
		b.WriteString(n.Table)
		b.WriteByte(' ')
		b.WriteString(res.alias[id])

	case queryir.KindSelect:
		derived := res.tree.IsDerived(id)
		if derived {
			b.WriteByte('(')
		}
		b.WriteString("SELECT ")
		if c, ok := comments.For(id); ok {
			b.WriteString(c)
			b.WriteByte(' ')
		}
		b.WriteString("* FROM ")
		if len(n.Children) == 0 {
			b.WriteString("DUAL")
		}
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, res, comments, c)
		}
		if derived {
			b.WriteString(") ")
			b.WriteString(res.alias[id])
		}

	case queryir.KindSetOp:
		derived := res.tree.IsDerived(id)
		if derived {
			b.WriteByte('(')
		}
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(' ')
				b.WriteString(string(n.SetOp))
				b.WriteByte(' ')
			}
			writeNode(b, res, comments, c)
		}
		if derived {
			b.WriteString(") ")
			b.WriteString(res.alias[id])
		}
	}
}
