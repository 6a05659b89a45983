package queryir

import "github.com/roach88/sqlhint/internal/ir"

// Canonical returns the tree as an IRObject suitable for fingerprinting.
// Only live nodes are included, in encounter order, so two trees that
// differ only in eliminated garbage fingerprint the same.
func (t *Tree) Canonical() ir.IRObject {
	nodes := ir.IRArray{}
	t.Walk(func(n *Node) bool {
		children := make(ir.IRArray, 0, len(n.Children))
		for _, c := range n.Children {
			if !t.nodes[c.index()].Eliminated {
				children = append(children, ir.IRInt(c))
			}
		}
		obj := ir.IRObject{
			"id":       ir.IRInt(n.ID),
			"kind":     ir.IRString(n.Kind.String()),
			"parent":   ir.IRInt(n.Parent),
			"children": children,
			"alias":    ir.IRString(n.Alias),
			"pinned":   ir.IRBool(n.Pinned),
		}
		switch n.Kind {
		case KindTable:
			obj["table"] = ir.IRString(n.Table)
		case KindSelect:
			obj["disposition"] = ir.IRString(n.Disposition.String())
		case KindSetOp:
			obj["set_op"] = ir.IRString(string(n.SetOp))
		}
		nodes = append(nodes, obj)
		return true
	})

	return ir.IRObject{
		"root":  ir.IRInt(t.root),
		"nodes": nodes,
	}
}
