package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
)

// PlanSpec is the declarative form of an optimized query: its block tree,
// the optimizer's dispositions, and the hints attached by the provider.
//
// Exactly one of Select and SetOp is set. Plans come from CUE files, YAML
// scenarios, or the JSON stored with each render.
type PlanSpec struct {
	Name   string      `json:"name" yaml:"name"`
	Order  string      `json:"order,omitempty" yaml:"order,omitempty"`
	Kinds  []KindSpec  `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	Select *SelectSpec `json:"select,omitempty" yaml:"select,omitempty"`
	SetOp  *SetOpSpec  `json:"set_op,omitempty" yaml:"set_op,omitempty"`
}

// KindSpec declares a hint kind beyond the built-in vocabulary.
type KindSpec struct {
	Kind      string `json:"kind" yaml:"kind"`
	Category  string `json:"category" yaml:"category"`
	Separator string `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// SelectSpec is one query block.
type SelectSpec struct {
	// Name is the user-assigned query block name (QB_NAME).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Ref labels the block so block parameters and clones can point at it.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// CloneOf copies the block labelled by this ref, hints included.
	CloneOf string `json:"clone_of,omitempty" yaml:"clone_of,omitempty"`

	Disposition string       `json:"disposition,omitempty" yaml:"disposition,omitempty"`
	Hints       []HintSpec   `json:"hints,omitempty" yaml:"hints,omitempty"`
	From        []SourceSpec `json:"from,omitempty" yaml:"from,omitempty"`
}

// SourceSpec is one FROM item: a table, a derived select or a derived set
// operation. Alias and Pinned apply to all three.
type SourceSpec struct {
	Table  string      `json:"table,omitempty" yaml:"table,omitempty"`
	Alias  string      `json:"alias,omitempty" yaml:"alias,omitempty"`
	Pinned bool        `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	ID     string      `json:"id,omitempty" yaml:"id,omitempty"`
	Hints  []HintSpec  `json:"hints,omitempty" yaml:"hints,omitempty"`
	Select *SelectSpec `json:"select,omitempty" yaml:"select,omitempty"`
	SetOp  *SetOpSpec  `json:"set_op,omitempty" yaml:"set_op,omitempty"`
}

// SetOpSpec is a set operation over two or more branches.
type SetOpSpec struct {
	Kind     string       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Branches []SelectSpec `json:"branches" yaml:"branches"`
}

// HintSpec is one attached hint.
//
// On a table, a hint with Indexes is an index hint, anything else a table
// hint. On a select, Raw is a verbatim token, anything else a query hint.
type HintSpec struct {
	Kind    string      `json:"kind,omitempty" yaml:"kind,omitempty"`
	Sep     string      `json:"sep,omitempty" yaml:"sep,omitempty"`
	Params  []ParamSpec `json:"params,omitempty" yaml:"params,omitempty"`
	Indexes []string    `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Raw     string      `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// ParamSpec is one hint parameter. Exactly one field is set: Value is a
// literal scalar, Table a table identifier, Block the ref of a select.
type ParamSpec struct {
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	Block string `json:"block,omitempty" yaml:"block,omitempty"`
}

// Built is a plan turned into a tree and registry.
type Built struct {
	Tree     *queryir.Tree
	Registry *hint.Registry

	// Refs maps select refs to node IDs.
	Refs map[string]queryir.NodeID
}

// pending is a hint waiting for the tree to be complete.
type pending struct {
	node  queryir.NodeID
	table bool
	spec  HintSpec
	path  string
}

type cloneJob struct {
	parent queryir.NodeID
	ref    string
	path   string
}

type builder struct {
	tree   *queryir.Tree
	reg    *hint.Registry
	refs   map[string]queryir.NodeID
	hints  []pending
	clones []cloneJob
}

// Build validates a plan and constructs its tree and registry.
//
// Structure comes first, then names, identifiers and dispositions, then
// hints. Hints are attached in post-order of the plan: the hints of a FROM
// item before the hints of the block that contains it, and within one node
// in declaration order. Clones are made last and appended after their
// declared siblings, so they carry every hint of their source.
func Build(spec *PlanSpec) (*Built, error) {
	if errs := Validate(spec); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}

	vocab, err := planVocabulary(spec)
	if err != nil {
		return nil, err
	}

	b := &builder{refs: make(map[string]queryir.NodeID)}
	switch {
	case spec.Select != nil:
		tree, root := queryir.NewTree()
		b.tree = tree
		b.reg = hint.NewRegistry(tree, hint.WithVocabulary(vocab))
		if err := b.buildSelect(root, spec.Select, "select"); err != nil {
			return nil, err
		}
	default:
		op, err := queryir.ParseSetOpKind(spec.SetOp.Kind)
		if err != nil {
			return nil, err
		}
		tree, root := queryir.NewSetOpTree(op)
		b.tree = tree
		b.reg = hint.NewRegistry(tree, hint.WithVocabulary(vocab))
		if err := b.buildBranches(root, spec.SetOp, "set_op"); err != nil {
			return nil, err
		}
	}

	for _, p := range b.hints {
		if err := b.attach(p); err != nil {
			return nil, fmt.Errorf("%s: %w", p.path, err)
		}
	}
	for _, c := range b.clones {
		mapping, err := b.tree.Clone(b.refs[c.ref], c.parent)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
		b.reg.CopyHints(mapping)
	}

	return &Built{Tree: b.tree, Registry: b.reg, Refs: b.refs}, nil
}

func planVocabulary(spec *PlanSpec) (*hint.Vocabulary, error) {
	if len(spec.Kinds) == 0 {
		return hint.Oracle(), nil
	}
	vocab := hint.Oracle().Clone(spec.Name)
	for i, k := range spec.Kinds {
		cat, err := hint.ParseCategory(k.Category)
		if err != nil {
			return nil, fmt.Errorf("kinds[%d]: %w", i, err)
		}
		if err := vocab.Define(hint.KindSpec{Kind: hint.Kind(k.Kind), Category: cat, Separator: k.Separator}); err != nil {
			return nil, fmt.Errorf("kinds[%d]: %w", i, err)
		}
	}
	return vocab, nil
}

// buildSelect fills an existing select node from its spec.
func (b *builder) buildSelect(id queryir.NodeID, spec *SelectSpec, path string) error {
	if spec.Ref != "" {
		b.refs[spec.Ref] = id
	}
	if spec.Name != "" {
		if err := b.reg.SetQueryBlockName(id, spec.Name); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if spec.Disposition != "" {
		d, err := queryir.ParseDisposition(spec.Disposition)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := b.tree.SetDisposition(id, d); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for i := range spec.From {
		if err := b.buildSource(id, &spec.From[i], fmt.Sprintf("%s.from[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, h := range spec.Hints {
		b.hints = append(b.hints, pending{node: id, spec: h, path: fmt.Sprintf("%s.hints[%d]", path, i)})
	}
	return nil
}

func (b *builder) buildSource(sel queryir.NodeID, src *SourceSpec, path string) error {
	var (
		id  queryir.NodeID
		err error
	)
	switch {
	case src.Table != "":
		id, err = b.tree.AddTable(sel, src.Table, src.Alias)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if src.ID != "" {
			if err := b.reg.RegisterTableIdentifier(id, src.ID); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		for i, h := range src.Hints {
			b.hints = append(b.hints, pending{node: id, table: true, spec: h, path: fmt.Sprintf("%s.hints[%d]", path, i)})
		}

	case src.Select != nil:
		id, err = b.tree.AddSubquery(sel, src.Alias)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := b.buildSelect(id, src.Select, path+".select"); err != nil {
			return err
		}

	default:
		op, perr := queryir.ParseSetOpKind(src.SetOp.Kind)
		if perr != nil {
			return fmt.Errorf("%s: %w", path, perr)
		}
		id, err = b.tree.AddSetOp(sel, op, src.Alias)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := b.buildBranches(id, src.SetOp, path+".set_op"); err != nil {
			return err
		}
	}

	if src.Pinned {
		if err := b.tree.Pin(id); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (b *builder) buildBranches(setOp queryir.NodeID, spec *SetOpSpec, path string) error {
	for i := range spec.Branches {
		branch := &spec.Branches[i]
		bpath := fmt.Sprintf("%s.branches[%d]", path, i)
		if branch.CloneOf != "" {
			b.clones = append(b.clones, cloneJob{parent: setOp, ref: branch.CloneOf, path: bpath})
			continue
		}
		id, err := b.tree.AddBranch(setOp)
		if err != nil {
			return fmt.Errorf("%s: %w", bpath, err)
		}
		if err := b.buildSelect(id, branch, bpath); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) attach(p pending) error {
	h := p.spec
	kind := hint.Kind(h.Kind)

	if p.table {
		if len(h.Indexes) > 0 {
			return b.reg.AttachIndexHint(p.node, kind, h.Indexes...)
		}
		params, err := b.params(h.Params)
		if err != nil {
			return err
		}
		if h.Sep != "" {
			return b.reg.AttachTableHintEx(p.node, kind, h.Sep, params...)
		}
		return b.reg.AttachTableHint(p.node, kind, params...)
	}

	if h.Raw != "" {
		return b.reg.AttachRawHint(p.node, h.Raw)
	}
	params, err := b.params(h.Params)
	if err != nil {
		return err
	}
	return b.reg.AttachQueryHint(p.node, kind, params...)
}

func (b *builder) params(specs []ParamSpec) ([]hint.Param, error) {
	params := make([]hint.Param, 0, len(specs))
	for i, ps := range specs {
		switch {
		case ps.Table != "":
			params = append(params, hint.TableID(ps.Table))
		case ps.Block != "":
			id, ok := b.refs[ps.Block]
			if !ok {
				return nil, fmt.Errorf("params[%d]: no select has ref %q", i, ps.Block)
			}
			params = append(params, hint.BlockRef{Block: id})
		default:
			v, err := ir.ScalarFromAny(ps.Value)
			if err != nil {
				return nil, fmt.Errorf("params[%d]: %w", i, err)
			}
			params = append(params, hint.Value{V: v})
		}
	}
	return params, nil
}
