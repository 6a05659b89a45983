package hint

import (
	"github.com/roach88/sqlhint/internal/ir"
	"github.com/roach88/sqlhint/internal/queryir"
)

// Kind is a hint keyword such as FULL, INDEX or LEADING.
type Kind string

// QBName is the block-name declaration. It is emitted by the renderer for
// named blocks and cannot be attached directly.
const QBName Kind = "QB_NAME"

// Hint is a sealed interface over the hint variants.
//
// This is a sealed interface - only types in this package implement it.
type Hint interface {
	hintNode() // Marker method - seals interface to this package

	// HintKind returns the hint keyword (RawHint returns "").
	HintKind() Kind
}

// TableHint targets one table reference. The table's resolved address is
// the first element of the parameter list.
//
// Renders as KIND(addr) or KIND(addr<Sep>p1<Sep>p2).
type TableHint struct {
	Kind   Kind
	Sep    string
	Params []Param
}

func (TableHint) hintNode() {}

// HintKind implements Hint.
func (h TableHint) HintKind() Kind { return h.Kind }

// IndexHint targets one table reference and names one or more indexes.
//
// Renders as KIND(addr ix1 ix2).
type IndexHint struct {
	Kind    Kind
	Indexes []string
}

func (IndexHint) hintNode() {}

// HintKind implements Hint.
func (h IndexHint) HintKind() Kind { return h.Kind }

// QueryHint applies to a whole query block.
//
// Renders as KIND, or KIND(p1<Sep>p2) when it has parameters.
type QueryHint struct {
	Kind   Kind
	Sep    string
	Params []Param
}

func (QueryHint) hintNode() {}

// HintKind implements Hint.
func (h QueryHint) HintKind() Kind { return h.Kind }

// RawHint is emitted verbatim into the block's comment.
type RawHint struct {
	Text string
}

func (RawHint) hintNode() {}

// HintKind implements Hint.
func (RawHint) HintKind() Kind { return "" }

// Param is a sealed interface over hint parameters.
type Param interface {
	paramNode() // Marker method - seals interface to this package
}

// Value is a literal parameter: an index name, a degree, a row count.
// Only scalar IRValues (string, int, bool) are valid.
//
// A string starting with "@" is treated as a block qualifier and must name
// a block of the statement.
type Value struct {
	V ir.IRValue
}

func (Value) paramNode() {}

// TableID references a table by symbolic identifier. It renders as the
// table's resolved address at render time.
type TableID string

func (TableID) paramNode() {}

// BlockRef references a query block. It renders as @name, forcing the block
// to carry a name.
type BlockRef struct {
	Block queryir.NodeID
}

func (BlockRef) paramNode() {}

// Int is a literal integer parameter.
func Int(n int64) Param {
	return Value{V: ir.IRInt(n)}
}

// Str is a literal string parameter.
func Str(s string) Param {
	return Value{V: ir.IRString(s)}
}

// Entry is one attached hint with its attachment sequence number.
type Entry struct {
	Seq  int64
	Hint Hint
}
