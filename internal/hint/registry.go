package hint

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
)

// Registry collects the hints, block names and symbolic table identifiers
// attached to one query tree.
//
// A Registry belongs to exactly one query. It is append-only: attachments
// are never reordered or removed. It is not safe for concurrent mutation.
type Registry struct {
	tree  *queryir.Tree
	vocab *Vocabulary
	clock *Clock

	tableHints map[queryir.NodeID][]Entry
	queryHints map[queryir.NodeID][]Entry
	names      map[queryir.NodeID]string
	ids        map[string]queryir.NodeID
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithVocabulary sets the vocabulary used for categories and separators.
// Default is Oracle().
func WithVocabulary(v *Vocabulary) RegistryOption {
	return func(r *Registry) {
		r.vocab = v
	}
}

// WithClock sets the clock used to stamp attachments.
func WithClock(c *Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = c
	}
}

// NewRegistry creates an empty registry for tree.
func NewRegistry(tree *queryir.Tree, opts ...RegistryOption) *Registry {
	r := &Registry{
		tree:       tree,
		tableHints: make(map[queryir.NodeID][]Entry),
		queryHints: make(map[queryir.NodeID][]Entry),
		names:      make(map[queryir.NodeID]string),
		ids:        make(map[string]queryir.NodeID),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.vocab == nil {
		r.vocab = Oracle()
	}
	if r.clock == nil {
		r.clock = NewClock()
	}
	return r
}

// Tree returns the tree the registry is bound to.
func (r *Registry) Tree() *queryir.Tree {
	return r.tree
}

// Vocabulary returns the registry's vocabulary.
func (r *Registry) Vocabulary() *Vocabulary {
	return r.vocab
}

// AttachTableHint appends a table hint using the kind's separator.
func (r *Registry) AttachTableHint(table queryir.NodeID, kind Kind, params ...Param) error {
	return r.AttachTableHintEx(table, kind, r.vocab.Separator(kind), params...)
}

// AttachTableHintEx appends a table hint with an explicit separator.
func (r *Registry) AttachTableHintEx(table queryir.NodeID, kind Kind, sep string, params ...Param) error {
	if err := r.checkTable(table); err != nil {
		return err
	}
	if err := r.checkKind(table, kind, CategoryTable, CategoryIndex); err != nil {
		return err
	}
	if err := r.checkParams(table, params); err != nil {
		return err
	}
	if sep == "" {
		sep = DefaultSeparator
	}
	if endsComment(sep) {
		return invalidHint(table, "separator %q would terminate the comment", sep)
	}
	r.tableHints[table] = append(r.tableHints[table], Entry{
		Seq:  r.clock.Next(),
		Hint: TableHint{Kind: kind, Sep: sep, Params: slices.Clone(params)},
	})
	return nil
}

// AttachIndexHint appends an index hint naming one or more indexes.
func (r *Registry) AttachIndexHint(table queryir.NodeID, kind Kind, indexes ...string) error {
	if err := r.checkTable(table); err != nil {
		return err
	}
	if err := r.checkKind(table, kind, CategoryIndex, CategoryTable); err != nil {
		return err
	}
	if len(indexes) == 0 {
		return invalidHint(table, "index hint %s names no index", kind)
	}
	for _, ix := range indexes {
		if strings.TrimSpace(ix) == "" {
			return invalidHint(table, "index hint %s has an empty index name", kind)
		}
		if endsComment(ix) {
			return invalidHint(table, "index name %q would terminate the comment", ix)
		}
	}
	r.tableHints[table] = append(r.tableHints[table], Entry{
		Seq:  r.clock.Next(),
		Hint: IndexHint{Kind: kind, Indexes: slices.Clone(indexes)},
	})
	return nil
}

// AttachQueryHint appends a query-level hint to a block.
func (r *Registry) AttachQueryHint(block queryir.NodeID, kind Kind, params ...Param) error {
	if err := r.checkBlock(block); err != nil {
		return err
	}
	if err := r.checkKind(block, kind, CategoryQuery); err != nil {
		return err
	}
	if err := r.checkParams(block, params); err != nil {
		return err
	}
	r.queryHints[block] = append(r.queryHints[block], Entry{
		Seq:  r.clock.Next(),
		Hint: QueryHint{Kind: kind, Sep: r.vocab.Separator(kind), Params: slices.Clone(params)},
	})
	return nil
}

// AttachFirstRows appends FIRST_ROWS(n) to a block.
func (r *Registry) AttachFirstRows(block queryir.NodeID, n int64) error {
	if n < 1 {
		return invalidHint(block, "%s needs a positive row count, got %d", FirstRows, n)
	}
	return r.AttachQueryHint(block, FirstRows, Int(n))
}

// AttachRawHint appends a verbatim token to a block's comment.
func (r *Registry) AttachRawHint(block queryir.NodeID, text string) error {
	if err := r.checkBlock(block); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return invalidHint(block, "raw hint is empty")
	}
	if endsComment(text) {
		return invalidHint(block, "raw hint %q would terminate the comment", text)
	}
	r.queryHints[block] = append(r.queryHints[block], Entry{
		Seq:  r.clock.Next(),
		Hint: RawHint{Text: text},
	})
	return nil
}

// SetQueryBlockName assigns a user name to a block. Names are unique per
// registry and immutable once set.
func (r *Registry) SetQueryBlockName(block queryir.NodeID, name string) error {
	if err := r.checkBlock(block); err != nil {
		return err
	}
	if !validName(name) {
		return &Error{Code: ErrCodeInvalidHint, Message: "invalid query block name", Node: block, Name: name}
	}
	if existing, ok := r.names[block]; ok {
		if existing == name {
			return nil
		}
		return &Error{
			Code:    ErrCodeInvalidTarget,
			Message: fmt.Sprintf("block is already named %s", existing),
			Node:    block,
			Name:    name,
		}
	}
	for other, n := range r.names {
		if n == name {
			return &Error{
				Code:    ErrCodeDuplicateBlockName,
				Message: fmt.Sprintf("name already used by block %d", other),
				Node:    block,
				Name:    name,
			}
		}
	}
	r.names[block] = name
	return nil
}

// RegisterTableIdentifier binds a symbolic identifier to a table. The same
// table may carry several identifiers; an identifier names one table.
func (r *Registry) RegisterTableIdentifier(table queryir.NodeID, name string) error {
	if err := r.checkTable(table); err != nil {
		return err
	}
	if name == "" {
		return invalidHint(table, "table identifier is empty")
	}
	if other, ok := r.ids[name]; ok {
		return &Error{
			Code:    ErrCodeDuplicateIdentifier,
			Message: fmt.Sprintf("identifier already bound to table %d", other),
			Node:    table,
			Name:    name,
		}
	}
	r.ids[name] = table
	return nil
}

// CopyHints copies the hints of cloned nodes onto their clones, keeping the
// original sequence numbers. mapping is the result of queryir.Tree.Clone.
// Block names and identifiers are not copied; they are unique per query.
func (r *Registry) CopyHints(mapping map[queryir.NodeID]queryir.NodeID) {
	for _, src := range sortedNodes(mapping) {
		dst := mapping[src]
		if entries := r.tableHints[src]; len(entries) > 0 {
			r.tableHints[dst] = append(r.tableHints[dst], entries...)
		}
		if entries := r.queryHints[src]; len(entries) > 0 {
			r.queryHints[dst] = append(r.queryHints[dst], entries...)
		}
	}
}

// TableHints returns the table and index hints of a table in attachment order.
func (r *Registry) TableHints(table queryir.NodeID) []Entry {
	return r.tableHints[table]
}

// QueryHints returns the query-level hints of a block in attachment order.
func (r *Registry) QueryHints(block queryir.NodeID) []Entry {
	return r.queryHints[block]
}

// BlockName returns the user-assigned name of a block.
func (r *Registry) BlockName(block queryir.NodeID) (string, bool) {
	name, ok := r.names[block]
	return name, ok
}

// LookupIdentifier returns the table bound to a symbolic identifier.
func (r *Registry) LookupIdentifier(name string) (queryir.NodeID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// HintedNodes returns every node carrying at least one hint, in ID order.
func (r *Registry) HintedNodes() []queryir.NodeID {
	seen := make(map[queryir.NodeID]bool)
	for id, e := range r.tableHints {
		if len(e) > 0 {
			seen[id] = true
		}
	}
	for id, e := range r.queryHints {
		if len(e) > 0 {
			seen[id] = true
		}
	}
	return sortedNodes(seen)
}

func (r *Registry) checkTable(id queryir.NodeID) error {
	n := r.tree.Node(id)
	if n == nil || n.Eliminated {
		return invalidTarget(id, "table does not exist")
	}
	if n.Kind != queryir.KindTable {
		return invalidTarget(id, "table hint target is a %s", n.Kind)
	}
	return nil
}

func (r *Registry) checkBlock(id queryir.NodeID) error {
	n := r.tree.Node(id)
	if n == nil || n.Eliminated {
		return invalidTarget(id, "query block does not exist")
	}
	if n.Kind != queryir.KindSelect {
		return invalidTarget(id, "query hint target is a %s", n.Kind)
	}
	return nil
}

// checkKind rejects empty and reserved kinds, and known kinds whose category
// is not in allowed. Unknown kinds pass: the vocabulary is open.
func (r *Registry) checkKind(node queryir.NodeID, kind Kind, allowed ...Category) error {
	if strings.TrimSpace(string(kind)) == "" {
		return invalidHint(node, "hint kind is empty")
	}
	if kind == QBName {
		return invalidHint(node, "%s is emitted for named blocks; use SetQueryBlockName", QBName)
	}
	spec, ok := r.vocab.Lookup(kind)
	if !ok || slices.Contains(allowed, spec.Category) {
		return nil
	}
	return invalidHint(node, "%s is a %s hint", kind, spec.Category)
}

func (r *Registry) checkParams(node queryir.NodeID, params []Param) error {
	for i, p := range params {
		switch v := p.(type) {
		case Value:
			if _, err := ir.Token(v.V); err != nil {
				return invalidHint(node, "param %d: %v", i, err)
			}
			if str, ok := v.V.(ir.IRString); ok && endsComment(string(str)) {
				return invalidHint(node, "param %d: %q would terminate the comment", i, str)
			}
		case TableID:
			if v == "" {
				return invalidHint(node, "param %d: empty table identifier", i)
			}
		case BlockRef:
			if err := r.checkBlock(v.Block); err != nil {
				return invalidTarget(node, "param %d: block %d: %v", i, v.Block, err)
			}
		case nil:
			return invalidHint(node, "param %d is nil", i)
		}
	}
	return nil
}

// endsComment reports whether s would close a /*+ ... */ comment.
func endsComment(s string) bool {
	return strings.Contains(s, "*/")
}

// validName accepts names usable inside QB_NAME(...) and after @.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if c == '_' || c == '$' || c == '#' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

func sortedNodes[V any](m map[queryir.NodeID]V) []queryir.NodeID {
	ids := make([]queryir.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
