package queryir

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidNode is returned when a mutation names a node that does not
// exist, is eliminated, or has the wrong kind for the operation.
var ErrInvalidNode = errors.New("invalid node")

// NodeID addresses a node in a Tree. The zero value means "no node".
type NodeID int32

// index returns the arena slot of the node. The ID is biased by one so the
// zero value can represent an unknown node.
func (id NodeID) index() int {
	return int(id) - 1
}

// Valid reports whether id is non-zero.
func (id NodeID) Valid() bool {
	return id > 0
}

// NodeKind identifies what a node represents.
type NodeKind uint8

const (
	KindTable NodeKind = iota + 1
	KindSelect
	KindSetOp
)

func (k NodeKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindSelect:
		return "select"
	case KindSetOp:
		return "set_op"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Disposition is the optimizer's decision for a Select.
type Disposition uint8

const (
	DispositionAuto Disposition = iota
	Flattened
	Named
	Isolated
)

func (d Disposition) String() string {
	switch d {
	case DispositionAuto:
		return "auto"
	case Flattened:
		return "flattened"
	case Named:
		return "named"
	case Isolated:
		return "isolated"
	default:
		return fmt.Sprintf("Disposition(%d)", uint8(d))
	}
}

// ParseDisposition parses the textual form produced by Disposition.String.
// The empty string is DispositionAuto.
func ParseDisposition(s string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DispositionAuto, nil
	case "flattened":
		return Flattened, nil
	case "named":
		return Named, nil
	case "isolated":
		return Isolated, nil
	default:
		return DispositionAuto, fmt.Errorf("unknown disposition %q", s)
	}
}

// SetOpKind is the operator joining the branches of a set operation.
type SetOpKind string

const (
	Union     SetOpKind = "UNION"
	UnionAll  SetOpKind = "UNION ALL"
	Intersect SetOpKind = "INTERSECT"
	Except    SetOpKind = "EXCEPT"
	Minus     SetOpKind = "MINUS"
)

// ParseSetOpKind parses an operator name, case-insensitively.
func ParseSetOpKind(s string) (SetOpKind, error) {
	op := SetOpKind(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
	switch op {
	case Union, UnionAll, Intersect, Except, Minus:
		return op, nil
	case "":
		return Union, nil
	default:
		return "", fmt.Errorf("unknown set operation %q", s)
	}
}

// Node is a single arena entry.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Parent NodeID

	// Children are FROM items for a Select and branches for a SetOp.
	Children []NodeID

	// Table is the source table name (KindTable only).
	Table string

	// Alias is the declared alias of a table or derived node. The resolver
	// treats it as a preferred base and may suffix it unless Pinned.
	Alias  string
	Pinned bool

	Disposition Disposition // KindSelect only
	SetOp       SetOpKind   // KindSetOp only

	Eliminated bool
}

// DeclaredAlias returns the alias the resolver starts from: the declared
// alias, or a default derived from the table name ("Parent" → "p") or "t"
// for derived tables.
func (n *Node) DeclaredAlias() string {
	if n.Alias != "" {
		return n.Alias
	}
	if n.Kind == KindTable && n.Table != "" {
		r, _ := utf8.DecodeRuneInString(n.Table)
		return string(unicode.ToLower(r))
	}
	return "t"
}

// Tree is an arena of query nodes with a single root.
//
// A Tree is not safe for concurrent mutation. Once handed to the renderer
// it is only read.
type Tree struct {
	nodes []Node
	root  NodeID
}

// NewTree creates a tree whose root is a Select and returns the root ID.
func NewTree() (*Tree, NodeID) {
	t := &Tree{}
	t.root = t.add(Node{Kind: KindSelect})
	return t, t.root
}

// NewSetOpTree creates a tree whose root is a set operation.
func NewSetOpTree(op SetOpKind) (*Tree, NodeID) {
	t := &Tree{}
	t.root = t.add(Node{Kind: KindSetOp, SetOp: op})
	return t, t.root
}

func (t *Tree) add(n Node) NodeID {
	n.ID = NodeID(len(t.nodes) + 1)
	t.nodes = append(t.nodes, n)
	return n.ID
}

// Root returns the root node ID.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes ever created, eliminated ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for id, or nil if id is out of range.
// The returned node must not be modified; use Tree methods instead.
func (t *Tree) Node(id NodeID) *Node {
	if id.index() < 0 || id.index() >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id.index()]
}

// live returns the node when it exists and is not eliminated.
func (t *Tree) live(id NodeID, kinds ...NodeKind) (*Node, error) {
	n := t.Node(id)
	if n == nil {
		return nil, fmt.Errorf("%w: node %d does not exist", ErrInvalidNode, id)
	}
	if n.Eliminated {
		return nil, fmt.Errorf("%w: node %d was eliminated", ErrInvalidNode, id)
	}
	if len(kinds) == 0 {
		return n, nil
	}
	for _, k := range kinds {
		if n.Kind == k {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: node %d is a %s", ErrInvalidNode, id, n.Kind)
}

// AddTable appends a table reference to the FROM clause of select.
func (t *Tree) AddTable(sel NodeID, table, alias string) (NodeID, error) {
	if _, err := t.live(sel, KindSelect); err != nil {
		return 0, err
	}
	if table == "" {
		return 0, fmt.Errorf("%w: table name is empty", ErrInvalidNode)
	}
	if err := checkAlias(alias); err != nil {
		return 0, err
	}
	id := t.add(Node{Kind: KindTable, Parent: sel, Table: table, Alias: alias})
	t.attach(sel, id)
	return id, nil
}

// AddSubquery appends a derived select to the FROM clause of sel.
func (t *Tree) AddSubquery(sel NodeID, alias string) (NodeID, error) {
	if _, err := t.live(sel, KindSelect); err != nil {
		return 0, err
	}
	if err := checkAlias(alias); err != nil {
		return 0, err
	}
	id := t.add(Node{Kind: KindSelect, Parent: sel, Alias: alias})
	t.attach(sel, id)
	return id, nil
}

// AddSetOp appends a derived set operation to the FROM clause of sel.
func (t *Tree) AddSetOp(sel NodeID, op SetOpKind, alias string) (NodeID, error) {
	if _, err := t.live(sel, KindSelect); err != nil {
		return 0, err
	}
	if err := checkAlias(alias); err != nil {
		return 0, err
	}
	id := t.add(Node{Kind: KindSetOp, Parent: sel, SetOp: op, Alias: alias})
	t.attach(sel, id)
	return id, nil
}

// AddBranch appends a branch select to a set operation.
func (t *Tree) AddBranch(setOp NodeID) (NodeID, error) {
	if _, err := t.live(setOp, KindSetOp); err != nil {
		return 0, err
	}
	id := t.add(Node{Kind: KindSelect, Parent: setOp})
	t.attach(setOp, id)
	return id, nil
}

// checkAlias rejects aliases that would end a hint comment when rendered
// inside an address.
func checkAlias(alias string) error {
	if strings.Contains(alias, "*/") {
		return fmt.Errorf("%w: alias %q contains */", ErrInvalidNode, alias)
	}
	return nil
}

func (t *Tree) attach(parent, child NodeID) {
	p := &t.nodes[parent.index()]
	p.Children = append(p.Children, child)
}

func (t *Tree) detach(parent, child NodeID) {
	p := &t.nodes[parent.index()]
	for i, c := range p.Children {
		if c == child {
			p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
			return
		}
	}
}

// Pin marks a node's alias as explicit: the resolver uses it verbatim
// instead of suffixing it on collision.
func (t *Tree) Pin(id NodeID) error {
	n, err := t.live(id, KindTable, KindSelect, KindSetOp)
	if err != nil {
		return err
	}
	if n.Alias == "" {
		return fmt.Errorf("%w: node %d has no alias to pin", ErrInvalidNode, id)
	}
	n.Pinned = true
	return nil
}

// SetDisposition records the optimizer's decision for a select.
func (t *Tree) SetDisposition(sel NodeID, d Disposition) error {
	n, err := t.live(sel, KindSelect)
	if err != nil {
		return err
	}
	n.Disposition = d
	return nil
}

// Reparent moves a FROM item into the FROM clause of another select,
// appending it there. The node keeps its ID, so hints and symbolic IDs
// attached to it follow. Used when the optimizer merges a subquery's
// tables directly into an ancestor.
func (t *Tree) Reparent(id, sel NodeID) error {
	n, err := t.live(id, KindTable, KindSelect, KindSetOp)
	if err != nil {
		return err
	}
	if _, err := t.live(sel, KindSelect); err != nil {
		return err
	}
	if !n.Parent.Valid() || t.nodes[n.Parent.index()].Kind != KindSelect {
		return fmt.Errorf("%w: node %d is not a FROM item", ErrInvalidNode, id)
	}
	if t.contains(id, sel) {
		return fmt.Errorf("%w: cannot move node %d under its own descendant %d", ErrInvalidNode, id, sel)
	}
	t.detach(n.Parent, id)
	n.Parent = sel
	t.attach(sel, id)
	return nil
}

// contains reports whether target is ancestor itself or one of its descendants.
func (t *Tree) contains(ancestor, target NodeID) bool {
	for cur := target; cur.Valid(); cur = t.nodes[cur.index()].Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Eliminate removes a node and its subtree from the tree. The IDs stay
// allocated; eliminated nodes are skipped by traversal.
func (t *Tree) Eliminate(id NodeID) error {
	n, err := t.live(id)
	if err != nil {
		return err
	}
	if id == t.root {
		return fmt.Errorf("%w: cannot eliminate the root", ErrInvalidNode)
	}
	t.detach(n.Parent, id)
	t.markEliminated(id)
	return nil
}

func (t *Tree) markEliminated(id NodeID) {
	n := &t.nodes[id.index()]
	n.Eliminated = true
	for _, c := range n.Children {
		t.markEliminated(c)
	}
}

// Clone deep-copies the subtree rooted at src and appends the copy under
// parent: as a FROM item when parent is a Select, as a branch when parent
// is a SetOp (src must then be a Select). It returns the mapping from
// original to cloned IDs in encounter order of the source subtree.
func (t *Tree) Clone(src, parent NodeID) (map[NodeID]NodeID, error) {
	s, err := t.live(src, KindTable, KindSelect, KindSetOp)
	if err != nil {
		return nil, err
	}
	p, err := t.live(parent, KindSelect, KindSetOp)
	if err != nil {
		return nil, err
	}
	if p.Kind == KindSetOp && s.Kind != KindSelect {
		return nil, fmt.Errorf("%w: set operation branches must be selects", ErrInvalidNode)
	}
	if t.contains(src, parent) {
		return nil, fmt.Errorf("%w: cannot clone node %d into itself", ErrInvalidNode, src)
	}

	mapping := make(map[NodeID]NodeID)
	copied := t.cloneNode(src, parent, mapping)
	t.attach(parent, copied)
	return mapping, nil
}

func (t *Tree) cloneNode(src, parent NodeID, mapping map[NodeID]NodeID) NodeID {
	orig := t.nodes[src.index()]
	id := t.add(Node{
		Kind:        orig.Kind,
		Parent:      parent,
		Table:       orig.Table,
		Alias:       orig.Alias,
		Pinned:      orig.Pinned,
		Disposition: orig.Disposition,
		SetOp:       orig.SetOp,
	})
	mapping[src] = id
	for _, c := range orig.Children {
		if t.nodes[c.index()].Eliminated {
			continue
		}
		cc := t.cloneNode(c, id, mapping)
		t.attach(id, cc)
	}
	return id
}

// Walk visits live nodes in encounter order (pre-order, children in
// declaration order). Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node) bool) {
	if t.root.Valid() {
		t.walk(t.root, fn)
	}
}

func (t *Tree) walk(id NodeID, fn func(n *Node) bool) {
	n := &t.nodes[id.index()]
	if n.Eliminated || !fn(n) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, fn)
	}
}

// PreOrder returns live node IDs in encounter order.
func (t *Tree) PreOrder() []NodeID {
	ids := make([]NodeID, 0, len(t.nodes))
	t.Walk(func(n *Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Reachable reports whether id is connected to the root and not eliminated.
func (t *Tree) Reachable(id NodeID) bool {
	n := t.Node(id)
	if n == nil || n.Eliminated {
		return false
	}
	for cur := id; ; {
		c := &t.nodes[cur.index()]
		if c.Eliminated {
			return false
		}
		if cur == t.root {
			return true
		}
		if !c.Parent.Valid() {
			return false
		}
		cur = c.Parent
	}
}

// IsDerived reports whether id is a Select or SetOp used as a FROM item.
func (t *Tree) IsDerived(id NodeID) bool {
	n := t.Node(id)
	if n == nil || n.Kind == KindTable || !n.Parent.Valid() {
		return false
	}
	return t.nodes[n.Parent.index()].Kind == KindSelect
}

// IsRootBranch reports whether id is a branch of a root set operation.
func (t *Tree) IsRootBranch(id NodeID) bool {
	n := t.Node(id)
	if n == nil || n.Kind != KindSelect || !n.Parent.Valid() {
		return false
	}
	return n.Parent == t.root && t.nodes[t.root.index()].Kind == KindSetOp
}
