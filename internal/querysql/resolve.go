package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlhint/internal/hint"
	"github.com/roach88/sqlhint/internal/queryir"
)

// AddressMode says how a table is addressed at its render level.
type AddressMode uint8

const (
	// Bare is a plain alias: the table sits directly in its render level.
	Bare AddressMode = iota

	// Dotted is a path of aliases through flattened derived tables.
	Dotted

	// BlockQualified is an alias (or in-block path) followed by @block.
	BlockQualified
)

func (m AddressMode) String() string {
	switch m {
	case Bare:
		return "bare"
	case Dotted:
		return "dotted"
	case BlockQualified:
		return "block_qualified"
	default:
		return fmt.Sprintf("AddressMode(%d)", uint8(m))
	}
}

// Address is the rendered target of a table reference.
//
// Exactly one mode applies per table. A block-qualified address may still
// carry a multi-segment path when flattened derived tables sit between the
// table and the named block (p_1.p@qn); the path is then relative to the
// named block, never to the render level.
type Address struct {
	Mode  AddressMode
	Path  []string
	Block string
}

// String renders the address as it appears inside a hint.
func (a Address) String() string {
	s := strings.Join(a.Path, ".")
	if a.Mode == BlockQualified {
		s += "@" + a.Block
	}
	return s
}

// Resolution is the result of resolving a tree: aliases, addresses, block
// names and render levels. It is computed per render pass and never cached
// across tree mutations.
type Resolution struct {
	tree *queryir.Tree
	reg  *hint.Registry

	order     []queryir.NodeID
	encounter map[queryir.NodeID]int
	offsets   map[queryir.NodeID]int

	disp       map[queryir.NodeID]queryir.Disposition
	alias      map[queryir.NodeID]string
	names      map[queryir.NodeID]string
	addr       map[queryir.NodeID]Address
	tableLevel map[queryir.NodeID]queryir.NodeID
	blockLevel map[queryir.NodeID]queryir.NodeID
	levels     []queryir.NodeID

	// named block each block-qualified table is addressed through
	qualifier  map[queryir.NodeID]queryir.NodeID
	referenced map[queryir.NodeID]bool
	blockNames map[string]queryir.NodeID
}

// Resolve computes the resolution of the registry's tree.
//
// Steps, each of which may fail the whole pass:
//  1. Structural validation of the tree
//  2. Orphaned hint detection (hints on eliminated or detached nodes)
//  3. Effective disposition per block (Auto decided here)
//  4. Alias allocation, post-order, statement-wide
//  5. Render levels and structural addresses
//  6. TableID parameters checked; cross-level references force a name on
//     the referenced table's level
//  7. Block naming (user names verbatim, otherwise sel_N)
//  8. Alias uniqueness per render level
func Resolve(reg *hint.Registry) (*Resolution, error) {
	tree := reg.Tree()
	if result := queryir.Validate(tree); !result.Valid {
		return nil, newRenderError(ErrCodeInconsistentTree, 0, "", "%s", strings.Join(result.Problems, "; "))
	}

	r := &Resolution{
		tree:       tree,
		reg:        reg,
		encounter:  make(map[queryir.NodeID]int),
		offsets:    make(map[queryir.NodeID]int),
		disp:       make(map[queryir.NodeID]queryir.Disposition),
		alias:      make(map[queryir.NodeID]string),
		names:      make(map[queryir.NodeID]string),
		addr:       make(map[queryir.NodeID]Address),
		tableLevel: make(map[queryir.NodeID]queryir.NodeID),
		blockLevel: make(map[queryir.NodeID]queryir.NodeID),
		qualifier:  make(map[queryir.NodeID]queryir.NodeID),
		referenced: make(map[queryir.NodeID]bool),
		blockNames: make(map[string]queryir.NodeID),
	}

	r.order = tree.PreOrder()
	offset := 0
	for i, id := range r.order {
		r.encounter[id] = i
		if tree.Node(id).Kind == queryir.KindSelect {
			offset++
			r.offsets[id] = offset
		}
	}

	steps := []func() error{
		r.checkOrphans,
		r.collectBlockRefs,
		r.decideDispositions,
		r.allocateAliases,
		r.computeLevels,
		r.checkTableIDs,
		r.assignNames,
		r.finalizeAddresses,
		r.checkAliasUniqueness,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Tree returns the resolved tree.
func (r *Resolution) Tree() *queryir.Tree {
	return r.tree
}

// Registry returns the registry the resolution was computed from.
func (r *Resolution) Registry() *hint.Registry {
	return r.reg
}

// Alias returns the resolved alias of a table or derived node.
func (r *Resolution) Alias(id queryir.NodeID) string {
	return r.alias[id]
}

// Address returns the resolved address of a table.
func (r *Resolution) Address(table queryir.NodeID) (Address, bool) {
	a, ok := r.addr[table]
	return a, ok
}

// Disposition returns the effective disposition of a block.
func (r *Resolution) Disposition(sel queryir.NodeID) queryir.Disposition {
	return r.disp[sel]
}

// BlockName returns the effective (user or synthesized) name of a block.
func (r *Resolution) BlockName(sel queryir.NodeID) (string, bool) {
	name, ok := r.names[sel]
	return name, ok
}

// RenderLevel returns the block whose comment carries the table's hints.
func (r *Resolution) RenderLevel(table queryir.NodeID) queryir.NodeID {
	return r.tableLevel[table]
}

// HintLevel returns the block whose comment carries a block's query hints.
func (r *Resolution) HintLevel(sel queryir.NodeID) queryir.NodeID {
	return r.blockLevel[sel]
}

// Levels returns every render level in encounter order.
func (r *Resolution) Levels() []queryir.NodeID {
	return r.levels
}

// Order returns live nodes in encounter order.
func (r *Resolution) Order() []queryir.NodeID {
	return r.order
}

// Encounter returns the encounter index of a live node.
func (r *Resolution) Encounter(id queryir.NodeID) int {
	return r.encounter[id]
}

// Label returns the stable position-derived label of a block: sel_N where N
// is its 1-based pre-order position among SELECTs.
func (r *Resolution) Label(sel queryir.NodeID) string {
	return fmt.Sprintf("sel_%d", r.offsets[sel])
}

// checkOrphans fails when a hinted node is no longer reachable. The hints
// would otherwise vanish from the output.
func (r *Resolution) checkOrphans() error {
	for _, id := range r.reg.HintedNodes() {
		if !r.tree.Reachable(id) {
			return newRenderError(ErrCodeOrphanedHint, id, "",
				"%d hint(s) attached to a node that is no longer in the tree",
				len(r.reg.TableHints(id))+len(r.reg.QueryHints(id)))
		}
	}
	return nil
}

// collectBlockRefs records blocks referenced by BlockRef parameters.
func (r *Resolution) collectBlockRefs() error {
	for _, id := range r.order {
		for _, e := range r.entries(id) {
			for _, p := range params(e.Hint) {
				ref, ok := p.(hint.BlockRef)
				if !ok {
					continue
				}
				if !r.tree.Reachable(ref.Block) {
					return newRenderError(ErrCodeUnaddressableBlock, ref.Block, "",
						"block referenced by %s is no longer in the tree", e.Hint.HintKind())
				}
				r.referenced[ref.Block] = true
			}
		}
	}
	return nil
}

// decideDispositions resolves Auto and rejects named blocks that were
// explicitly flattened.
func (r *Resolution) decideDispositions() error {
	for _, id := range r.order {
		n := r.tree.Node(id)
		if n.Kind != queryir.KindSelect {
			continue
		}
		_, hasName := r.reg.BlockName(id)
		addressed := hasName || r.referenced[id]

		switch {
		case id == r.tree.Root():
			r.disp[id] = queryir.Isolated
		case n.Disposition == queryir.Flattened:
			if addressed {
				return newRenderError(ErrCodeUnaddressableBlock, id, r.userName(id),
					"block is addressed by name but was flattened")
			}
			r.disp[id] = queryir.Flattened
		case n.Disposition != queryir.DispositionAuto:
			r.disp[id] = n.Disposition
		case addressed:
			r.disp[id] = queryir.Named
		case r.tree.IsRootBranch(id):
			r.disp[id] = queryir.Isolated
		default:
			r.disp[id] = queryir.Flattened
		}
	}
	return nil
}

func (r *Resolution) userName(id queryir.NodeID) string {
	name, _ := r.reg.BlockName(id)
	return name
}

// allocateAliases assigns aliases in post-order: a derived node is aliased
// after everything inside it, so the innermost table keeps the plain alias
// and enclosing derived tables take the suffixed ones (p_2.p_1.p).
// Pinned aliases are reserved up front and never suffixed.
func (r *Resolution) allocateAliases() error {
	taken := make(map[string]bool)
	for _, id := range r.order {
		n := r.tree.Node(id)
		if n.Kind != queryir.KindSelect {
			continue
		}
		scope := make(map[string]queryir.NodeID)
		for _, c := range n.Children {
			child := r.tree.Node(c)
			if !child.Pinned {
				continue
			}
			if other, dup := scope[child.Alias]; dup {
				return newRenderError(ErrCodeAliasConflict, c, child.Alias,
					"pinned alias already used by node %d in the same FROM clause", other)
			}
			scope[child.Alias] = c
			taken[child.Alias] = true
		}
	}

	var visit func(id queryir.NodeID)
	visit = func(id queryir.NodeID) {
		n := r.tree.Node(id)
		for _, c := range n.Children {
			visit(c)
		}
		if n.Kind != queryir.KindTable && !r.tree.IsDerived(id) {
			return
		}
		if n.Pinned {
			r.alias[id] = n.Alias
			return
		}
		base := n.DeclaredAlias()
		alias := base
		for i := 1; taken[alias]; i++ {
			alias = fmt.Sprintf("%s_%d", base, i)
		}
		taken[alias] = true
		r.alias[id] = alias
	}
	visit(r.tree.Root())
	return nil
}

// computeLevels finds the render level of every table and block and the
// structural address of every table.
func (r *Resolution) computeLevels() error {
	for _, id := range r.order {
		n := r.tree.Node(id)
		switch n.Kind {
		case queryir.KindSelect:
			if r.disp[id] != queryir.Flattened {
				r.levels = append(r.levels, id)
				r.blockLevel[id] = id
				continue
			}
			level, err := r.nearestLevel(id)
			if err != nil {
				return err
			}
			r.blockLevel[id] = level
		case queryir.KindTable:
			if err := r.resolveTable(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveTable walks up from a table, prepending the alias of every
// flattened scope it crosses, until it reaches a named block or a level.
func (r *Resolution) resolveTable(table queryir.NodeID) error {
	segs := []string{r.alias[table]}
	cur := r.tree.Node(table).Parent
	for {
		switch r.disp[cur] {
		case queryir.Named:
			level, err := r.sinkAbove(cur)
			if err != nil {
				return err
			}
			r.addr[table] = Address{Mode: BlockQualified, Path: segs}
			r.qualifier[table] = cur
			r.tableLevel[table] = level
			return nil
		case queryir.Flattened:
			parent := r.tree.Node(r.tree.Node(cur).Parent)
			if parent == nil {
				return newRenderError(ErrCodeInconsistentTree, cur, "", "flattened block has no enclosing scope")
			}
			if parent.Kind == queryir.KindSetOp {
				if !parent.Parent.Valid() {
					return newRenderError(ErrCodeInconsistentTree, cur, "", "root set operation branch is flattened")
				}
				segs = slices.Insert(segs, 0, r.alias[parent.ID])
				cur = parent.Parent
				continue
			}
			segs = slices.Insert(segs, 0, r.alias[cur])
			cur = parent.ID
		default:
			mode := Bare
			if len(segs) > 1 {
				mode = Dotted
			}
			r.addr[table] = Address{Mode: mode, Path: segs}
			r.tableLevel[table] = cur
			return nil
		}
	}
}

// nearestLevel returns the closest enclosing block that is a render level.
func (r *Resolution) nearestLevel(sel queryir.NodeID) (queryir.NodeID, error) {
	cur := sel
	for {
		parent, err := r.enclosingSelect(cur)
		if err != nil {
			return 0, err
		}
		if r.disp[parent] != queryir.Flattened {
			return parent, nil
		}
		cur = parent
	}
}

// sinkAbove returns the level that receives the table hints of a named
// block: the nearest enclosing isolated block, or the first branch when
// the statement itself is a set operation.
func (r *Resolution) sinkAbove(sel queryir.NodeID) (queryir.NodeID, error) {
	cur := sel
	for {
		n := r.tree.Node(cur)
		if parent := r.tree.Node(n.Parent); parent != nil && parent.Kind == queryir.KindSetOp && !parent.Parent.Valid() {
			return parent.Children[0], nil
		}
		enclosing, err := r.enclosingSelect(cur)
		if err != nil {
			return 0, err
		}
		if r.disp[enclosing] == queryir.Isolated {
			return enclosing, nil
		}
		cur = enclosing
	}
}

// enclosingSelect returns the select whose FROM clause contains sel,
// looking through a derived set operation.
func (r *Resolution) enclosingSelect(sel queryir.NodeID) (queryir.NodeID, error) {
	parent := r.tree.Node(r.tree.Node(sel).Parent)
	if parent == nil {
		return 0, newRenderError(ErrCodeInconsistentTree, sel, "", "block has no enclosing scope")
	}
	if parent.Kind == queryir.KindSetOp {
		parent = r.tree.Node(parent.Parent)
		if parent == nil {
			return 0, newRenderError(ErrCodeInconsistentTree, sel, "", "root set operation branch has no enclosing scope")
		}
	}
	return parent.ID, nil
}

// checkTableIDs resolves every TableID parameter. A reference rendered at
// a different level than the table's own must be qualified with the
// table's level name, so that level is marked as needing a name.
func (r *Resolution) checkTableIDs() error {
	for _, id := range r.order {
		level := r.levelOf(id)
		for _, e := range r.entries(id) {
			for _, p := range params(e.Hint) {
				tid, ok := p.(hint.TableID)
				if !ok {
					continue
				}
				table, err := r.lookupTable(tid)
				if err != nil {
					return err
				}
				if r.addr[table].Mode != BlockQualified && r.tableLevel[table] != level {
					r.referenced[r.tableLevel[table]] = true
				}
			}
		}
	}
	return nil
}

// levelOf returns where hints attached to id are rendered.
func (r *Resolution) levelOf(id queryir.NodeID) queryir.NodeID {
	if r.tree.Node(id).Kind == queryir.KindTable {
		return r.tableLevel[id]
	}
	return r.blockLevel[id]
}

func (r *Resolution) lookupTable(tid hint.TableID) (queryir.NodeID, error) {
	table, ok := r.reg.LookupIdentifier(string(tid))
	if !ok {
		return 0, newRenderError(ErrCodeUnresolvedTableIdentifier, 0, string(tid), "no table registered under this identifier")
	}
	if !r.tree.Reachable(table) {
		return 0, newRenderError(ErrCodeUnresolvedTableIdentifier, table, string(tid), "table was eliminated from the query")
	}
	return table, nil
}

// finalizeAddresses fills in the block name of block-qualified addresses.
func (r *Resolution) finalizeAddresses() error {
	for table, block := range r.qualifier {
		a := r.addr[table]
		a.Block = r.names[block]
		r.addr[table] = a
	}
	return nil
}

// checkAliasUniqueness fails when two tables render to the same address
// at one level. Only pinned aliases can cause this.
func (r *Resolution) checkAliasUniqueness() error {
	seen := make(map[queryir.NodeID]map[string]queryir.NodeID)
	for _, id := range r.order {
		a, ok := r.addr[id]
		if !ok {
			continue
		}
		level := r.tableLevel[id]
		if seen[level] == nil {
			seen[level] = make(map[string]queryir.NodeID)
		}
		key := a.String()
		if other, dup := seen[level][key]; dup {
			return newRenderError(ErrCodeAliasConflict, id, key, "address already used by table %d", other)
		}
		seen[level][key] = id
	}
	return nil
}

// addressAt returns the address of table as written in a hint rendered at
// level. Tables of another level are qualified with that level's name.
func (r *Resolution) addressAt(table, level queryir.NodeID) Address {
	a := r.addr[table]
	if a.Mode == BlockQualified || r.tableLevel[table] == level {
		return a
	}
	return Address{Mode: BlockQualified, Path: a.Path, Block: r.names[r.tableLevel[table]]}
}

// entries returns all hints attached to a node.
func (r *Resolution) entries(id queryir.NodeID) []hint.Entry {
	if r.tree.Node(id).Kind == queryir.KindTable {
		return r.reg.TableHints(id)
	}
	return r.reg.QueryHints(id)
}

func params(h hint.Hint) []hint.Param {
	switch v := h.(type) {
	case hint.TableHint:
		return v.Params
	case hint.QueryHint:
		return v.Params
	default:
		return nil
	}
}
