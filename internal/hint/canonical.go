package hint

import (
	"slices"

	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
)

// Canonical returns the registry contents as an IRObject for fingerprinting.
// Entries are listed per node in ID order, each node's entries in
// attachment order.
func (r *Registry) Canonical() ir.IRObject {
	tables := ir.IRArray{}
	for _, id := range sortedNodes(r.tableHints) {
		for _, e := range r.tableHints[id] {
			tables = append(tables, canonicalEntry(id, e))
		}
	}
	queries := ir.IRArray{}
	for _, id := range sortedNodes(r.queryHints) {
		for _, e := range r.queryHints[id] {
			queries = append(queries, canonicalEntry(id, e))
		}
	}
	names := ir.IRArray{}
	for _, id := range sortedNodes(r.names) {
		names = append(names, ir.IRObject{"node": ir.IRInt(id), "name": ir.IRString(r.names[id])})
	}
	ids := make([]string, 0, len(r.ids))
	for name := range r.ids {
		ids = append(ids, name)
	}
	slices.Sort(ids)
	idents := ir.IRArray{}
	for _, name := range ids {
		idents = append(idents, ir.IRObject{"name": ir.IRString(name), "node": ir.IRInt(r.ids[name])})
	}

	return ir.IRObject{
		"table_hints": tables,
		"query_hints": queries,
		"block_names": names,
		"identifiers": idents,
	}
}

func canonicalEntry(node queryir.NodeID, e Entry) ir.IRObject {
	obj := ir.IRObject{
		"node": ir.IRInt(node),
		"seq":  ir.IRInt(e.Seq),
	}
	switch h := e.Hint.(type) {
	case TableHint:
		obj["type"] = ir.IRString("table")
		obj["kind"] = ir.IRString(h.Kind)
		obj["sep"] = ir.IRString(h.Sep)
		obj["params"] = canonicalParams(h.Params)
	case IndexHint:
		indexes := make(ir.IRArray, len(h.Indexes))
		for i, ix := range h.Indexes {
			indexes[i] = ir.IRString(ix)
		}
		obj["type"] = ir.IRString("index")
		obj["kind"] = ir.IRString(h.Kind)
		obj["indexes"] = indexes
	case QueryHint:
		obj["type"] = ir.IRString("query")
		obj["kind"] = ir.IRString(h.Kind)
		obj["sep"] = ir.IRString(h.Sep)
		obj["params"] = canonicalParams(h.Params)
	case RawHint:
		obj["type"] = ir.IRString("raw")
		obj["text"] = ir.IRString(h.Text)
	}
	return obj
}

func canonicalParams(params []Param) ir.IRArray {
	arr := make(ir.IRArray, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case Value:
			arr = append(arr, ir.IRObject{"value": v.V})
		case TableID:
			arr = append(arr, ir.IRObject{"table_id": ir.IRString(v)})
		case BlockRef:
			arr = append(arr, ir.IRObject{"block": ir.IRInt(v.Block)})
		}
	}
	return arr
}
