package graph

import (
	"math/rand"

	"github.com/dgraph-io/badger/v4"
)

// randomSeekID draws a uniform ID from the observed [min, max] span. The
// draw seeds a seek, not a lookup, so gaps in the ID space are fine.
func randomSeekID(e *Engine) (NodeID, error) {
	if e.NumNodes() == 0 {
		return 0, ErrNotFound
	}
	lo, hi := e.MinNodeID(), e.MaxNodeID()
	if lo > hi {
		return 0, ErrNotFound
	}
	span := uint64(hi) - uint64(lo) + 1
	return lo + NodeID(rand.Uint64()%span), nil
}

// seekNodeRow positions at the first node row at or after id in the given
// single-ID table, wrapping to the table start when the seek runs off the
// end. Returns a copy of the found key.
func seekNodeRow(txn *badger.Txn, table byte, id NodeID) ([]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = tablePrefix(table)
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(nodeKey(table, id))
	if !it.ValidForPrefix(opts.Prefix) {
		it.Seek(opts.Prefix)
		if !it.ValidForPrefix(opts.Prefix) {
			return nil, ErrNotFound
		}
	}
	return it.Item().KeyCopy(nil), nil
}
