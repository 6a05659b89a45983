// Package hint holds optimizer hints attached to a query tree.
//
// Hints are attached to tables and query blocks by NodeID and stored in a
// Registry, not on the tree nodes themselves. The optimizer may flatten,
// reparent or clone nodes afterwards; hints keyed by NodeID follow the
// node's identity wherever it ends up.
//
// HINT VARIANTS:
//
// Hint is a sealed interface. The renderer switches over exactly four
// variants:
//
//	TableHint  KIND(<table address><sep>params...)   FULL(p), PARALLEL(p, 5)
//	IndexHint  KIND(<table address> ix1 ix2)         INDEX(p parent_ix)
//	QueryHint  KIND or KIND(params...)                FIRST_ROWS(25), LEADING(p c)
//	RawHint    verbatim token                          escape hatch
//
// Params are sealed too: a literal value (ir.IRValue scalar), a symbolic
// TableID resolved at render time, or a BlockRef rendered as @name.
//
// ORDERING:
//
// Every attachment is stamped with a sequence number from the registry's
// logical clock. Rendering orders hints by that sequence, never by map
// iteration or tree position, so the output reflects attachment order.
//
// VOCABULARY:
//
// A Vocabulary maps hint kinds to their category and parameter separator.
// The built-in Oracle vocabulary covers the common table, index and query
// hints; unknown kinds are accepted and render with the default separator.
package hint
