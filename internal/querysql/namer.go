package querysql

import (
	"fmt"

	"github.com/roach88/sqlhint/internal/queryir"
)

// assignNames gives every block that must be addressable a name.
//
// User names are taken verbatim. Blocks that are Named, or referenced by a
// BlockRef or a cross-level TableID, and have no user name get sel_N, N
// being their pre-order SELECT position. Position, not content, keeps the
// name stable when an identical subquery appears twice. A synthesized name
// that collides with any other name in the statement is suffixed _1, _2...
func (r *Resolution) assignNames() error {
	for _, id := range r.order {
		if r.tree.Node(id).Kind != queryir.KindSelect {
			continue
		}
		if name, ok := r.reg.BlockName(id); ok {
			r.names[id] = name
			r.blockNames[name] = id
		}
	}

	for _, id := range r.order {
		if r.tree.Node(id).Kind != queryir.KindSelect {
			continue
		}
		if _, ok := r.names[id]; ok {
			continue
		}
		if r.disp[id] != queryir.Named && !r.referenced[id] {
			continue
		}
		if r.disp[id] == queryir.Flattened {
			return newRenderError(ErrCodeUnaddressableBlock, id, "", "flattened block cannot carry a name")
		}
		base := fmt.Sprintf("sel_%d", r.offsets[id])
		name := base
		for i := 1; r.blockNames[name].Valid(); i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		r.names[id] = name
		r.blockNames[name] = id
	}
	return nil
}

// hasBlockName reports whether name belongs to a block of the statement.
func (r *Resolution) hasBlockName(name string) bool {
	return r.blockNames[name].Valid()
}
