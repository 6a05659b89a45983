// Package queryir provides the query tree that hints are attached to and
// rendered against.
//
// The tree is what an external optimizer hands back after deciding which
// subqueries survive as their own SELECT and which are folded into an
// ancestor. queryir does not make those decisions; it records them.
//
// ARCHITECTURE:
//
//	[query builder] → [Tree] → [optimizer marks dispositions] → [querysql resolver/renderer]
//
// ARENA:
//
// Nodes live in a single slice owned by the Tree and are addressed by NodeID.
// A NodeID is the slice index biased by one, so the zero NodeID means "no
// node". Nodes are never moved or reused: flattening, reparenting and
// elimination only rewrite Parent/Children links and flags. Anything keyed by
// NodeID (hints, symbolic table IDs) therefore survives optimization without
// being copied.
//
// NODE KINDS:
//
//   - KindTable: a physical table reference in a FROM clause.
//   - KindSelect: a query block. Children are its FROM items in declaration
//     order (tables, derived selects, derived set operations).
//   - KindSetOp: a set operation (UNION, INTERSECT, ...). Children are its
//     branch selects.
//
// The root is either a Select or a SetOp. A Select or SetOp whose parent is
// a Select is a derived table and carries an alias.
//
// DISPOSITION:
//
// Each Select carries the optimizer's decision:
//
//	Auto       decided at resolution time (named → Named, root → Isolated,
//	           root set-op branch → Isolated, otherwise Flattened)
//	Flattened  folded into its ancestor; no comment of its own
//	Named      keeps its SELECT and QB_NAME; its tables are addressed
//	           from the consuming level with @name
//	Isolated   a full render level; tables resolve relative to it
//
// ENCOUNTER ORDER:
//
// Pre-order depth-first traversal from the root, visiting children in slice
// order, defines encounter order. It is the only order used for tie-breaking
// anywhere in the renderer, so rendering never depends on map iteration.
package queryir
