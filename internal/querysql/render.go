package querysql

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
)

// Ordering selects how query-level and table-level hints interleave in a
// comment. QB_NAME always comes first.
type Ordering uint8

const (
	// OrderQueryFirst emits query-level hints, then table and index hints,
	// each group in attachment order.
	OrderQueryFirst Ordering = iota

	// OrderAttachment emits all hints in one attachment-ordered sequence.
	OrderAttachment
)

func (o Ordering) String() string {
	if o == OrderAttachment {
		return "attachment"
	}
	return "query_first"
}

// ParseOrdering parses the textual form produced by Ordering.String.
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "", "query_first":
		return OrderQueryFirst, nil
	case "attachment":
		return OrderAttachment, nil
	default:
		return OrderQueryFirst, fmt.Errorf("unknown ordering %q", s)
	}
}

// Option configures rendering.
type Option func(*options)

type options struct {
	ordering Ordering
}

// WithOrdering sets the hint ordering within a comment.
func WithOrdering(o Ordering) Option {
	return func(opts *options) {
		opts.ordering = o
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Comments holds the rendered hint comment of every render level.
type Comments struct {
	levels []queryir.NodeID
	labels map[queryir.NodeID]string
	text   map[queryir.NodeID]string
}

// For returns the comment of a block, or false when it has none.
func (c *Comments) For(sel queryir.NodeID) (string, bool) {
	s, ok := c.text[sel]
	return s, ok
}

// Blocks returns the non-empty comments in encounter order, labelled with
// the block's position label.
func (c *Comments) Blocks() []ir.BlockComment {
	out := make([]ir.BlockComment, 0, len(c.text))
	for _, id := range c.levels {
		if s, ok := c.text[id]; ok {
			out = append(out, ir.BlockComment{Block: c.labels[id], Comment: s})
		}
	}
	return out
}

// Len returns the number of non-empty comments.
func (c *Comments) Len() int {
	return len(c.text)
}

// item is one hint waiting to be placed in a comment.
type item struct {
	seq   int64
	enc   int
	pos   int
	query bool
	token string
}

func compareItems(a, b item) int {
	return cmp.Or(
		cmp.Compare(a.seq, b.seq),
		cmp.Compare(a.enc, b.enc),
		cmp.Compare(a.pos, b.pos),
	)
}

// Render produces the comment of every render level.
//
// Within a level, hints are ordered by attachment sequence; equal sequences
// (hints copied onto cloned nodes) fall back to tree encounter order.
// A level with nothing to say gets no comment at all.
func Render(res *Resolution, opts ...Option) (*Comments, error) {
	o := buildOptions(opts)
	out := &Comments{
		levels: res.levels,
		labels: make(map[queryir.NodeID]string, len(res.levels)),
		text:   make(map[queryir.NodeID]string),
	}

	byLevel := make(map[queryir.NodeID][]item)
	for _, id := range res.order {
		n := res.tree.Node(id)
		var level queryir.NodeID
		var entries []hint.Entry
		switch n.Kind {
		case queryir.KindTable:
			level, entries = res.tableLevel[id], res.reg.TableHints(id)
		case queryir.KindSelect:
			level, entries = res.blockLevel[id], res.reg.QueryHints(id)
		default:
			continue
		}
		for pos, e := range entries {
			token, err := res.renderHint(id, level, e.Hint)
			if err != nil {
				return nil, err
			}
			byLevel[level] = append(byLevel[level], item{
				seq:   e.Seq,
				enc:   res.encounter[id],
				pos:   pos,
				query: n.Kind == queryir.KindSelect,
				token: token,
			})
		}
	}

	for _, level := range res.levels {
		out.labels[level] = res.Label(level)

		var tokens []string
		if name, ok := res.names[level]; ok {
			tokens = append(tokens, fmt.Sprintf("%s(%s)", hint.QBName, name))
		}
		items := byLevel[level]
		if o.ordering == OrderQueryFirst {
			slices.SortStableFunc(items, func(a, b item) int {
				if a.query != b.query {
					if a.query {
						return -1
					}
					return 1
				}
				return compareItems(a, b)
			})
		} else {
			slices.SortStableFunc(items, compareItems)
		}
		for _, it := range items {
			tokens = append(tokens, it.token)
		}
		if len(tokens) > 0 {
			out.text[level] = "/*+ " + strings.Join(tokens, " ") + " */"
		}
	}
	return out, nil
}

// renderHint renders one hint attached to owner, placed at level.
func (r *Resolution) renderHint(owner, level queryir.NodeID, h hint.Hint) (string, error) {
	switch v := h.(type) {
	case hint.TableHint:
		parts := []string{r.addressAt(owner, level).String()}
		for _, p := range v.Params {
			tok, err := r.renderParam(owner, level, p)
			if err != nil {
				return "", err
			}
			parts = append(parts, tok)
		}
		return fmt.Sprintf("%s(%s)", v.Kind, strings.Join(parts, v.Sep)), nil

	case hint.IndexHint:
		parts := append([]string{r.addressAt(owner, level).String()}, v.Indexes...)
		return fmt.Sprintf("%s(%s)", v.Kind, strings.Join(parts, " ")), nil

	case hint.QueryHint:
		if len(v.Params) == 0 {
			return string(v.Kind), nil
		}
		parts := make([]string, 0, len(v.Params))
		for _, p := range v.Params {
			tok, err := r.renderParam(owner, level, p)
			if err != nil {
				return "", err
			}
			parts = append(parts, tok)
		}
		return fmt.Sprintf("%s(%s)", v.Kind, strings.Join(parts, v.Sep)), nil

	case hint.RawHint:
		return v.Text, nil

	default:
		return "", newRenderError(ErrCodeInvalidParam, owner, "", "unsupported hint type %T", h)
	}
}

func (r *Resolution) renderParam(owner, level queryir.NodeID, p hint.Param) (string, error) {
	switch v := p.(type) {
	case hint.Value:
		tok, err := ir.Token(v.V)
		if err != nil {
			return "", newRenderError(ErrCodeInvalidParam, owner, "", "%v", err)
		}
		if name, ok := strings.CutPrefix(tok, "@"); ok && !r.hasBlockName(name) {
			return "", newRenderError(ErrCodeUnknownBlockName, owner, name, "no query block has this name")
		}
		return tok, nil

	case hint.TableID:
		table, err := r.lookupTable(v)
		if err != nil {
			return "", err
		}
		return r.addressAt(table, level).String(), nil

	case hint.BlockRef:
		name, ok := r.names[v.Block]
		if !ok {
			return "", newRenderError(ErrCodeUnaddressableBlock, v.Block, "", "referenced block has no name")
		}
		return "@" + name, nil

	default:
		return "", newRenderError(ErrCodeInvalidParam, owner, "", "unsupported parameter type %T", p)
	}
}
