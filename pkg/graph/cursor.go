package graph

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"
)

// Cursors wrap one underlying KV iterator each and traverse a graph without
// knowing its representation. End-of-iteration is signaled by setting the
// record's ID field(s) to OutOfBandID rather than by an error, so range
// loops read:
//
//	var n graph.Node
//	for cur.Next(&n); n.ID != graph.OutOfBandID; cur.Next(&n) { ... }
//
// A cursor is single-threaded, like the handle that produced it.

// NodeCursor iterates node records in ascending ID order.
type NodeCursor interface {
	// SetKeyRange restricts iteration to the inclusive range and
	// repositions to its start. An End of OutOfBandID runs to the end of
	// the table.
	SetKeyRange(r KeyRange) error
	// Next fills out with the next node, or sets out.ID to OutOfBandID at
	// the end of the range.
	Next(out *Node) error
	// Reset repositions back to the beginning of the declared range.
	Reset() error
	// Close releases the underlying cursor. Idempotent.
	Close()
}

// EdgeCursor iterates edge records sorted by (src, dst).
type EdgeCursor interface {
	SetKeyRange(r EdgeRange) error
	// Next fills out with the next edge, or sets both IDs to OutOfBandID
	// at the end of the range.
	Next(out *Edge) error
	Reset() error
	Close()
}

// OutCursor delivers one out-neighborhood per node. In representations
// without adjacency tables the list is synthesized by coalescing
// consecutive edge rows sharing a source.
type OutCursor interface {
	SetKeyRange(r KeyRange) error
	// IncludeAllNodes makes the cursor emit a Degree==0 record for nodes
	// with an empty neighborhood. The default emits only nodes with at
	// least one incident edge. Takes effect from the next call to Next.
	IncludeAllNodes(yes bool)
	// Next fills out with the next adjacency list, or sets out.NodeID to
	// OutOfBandID at the end of the range.
	Next(out *AdjacencyList) error
	Reset() error
	Close()
}

// InCursor is OutCursor's mirror for in-neighborhoods.
type InCursor interface {
	SetKeyRange(r KeyRange) error
	IncludeAllNodes(yes bool)
	Next(out *AdjacencyList) error
	Reset() error
	Close()
}

// kvCursor is the shared machinery under every cursor: one Badger iterator
// bounded to [startKey, endKey] inside one table prefix. The transaction is
// owned unless the cursor was bound to a read-only handle's snapshot.
type kvCursor struct {
	txn     *badger.Txn
	ownsTxn bool
	it      *badger.Iterator
	table   []byte // one-byte table prefix, the iterator's hard bound

	startKey []byte // inclusive; nil means table start
	endKey   []byte // inclusive; nil means table end

	started bool
	closed  bool
}

// newKVCursor opens an iterator over one table. When snap is non-nil the
// cursor runs inside that pinned snapshot; otherwise it opens its own read
// transaction.
func newKVCursor(db *badger.DB, snap *badger.Txn, table byte, prefetch bool) *kvCursor {
	txn := snap
	owns := false
	if txn == nil {
		txn = db.NewTransaction(false)
		owns = true
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = prefetch
	opts.Prefix = tablePrefix(table)
	return &kvCursor{
		txn:     txn,
		ownsTxn: owns,
		it:      txn.NewIterator(opts),
		table:   tablePrefix(table),
	}
}

// setRange installs inclusive bounds and repositions.
func (c *kvCursor) setRange(start, end []byte) {
	c.startKey = start
	c.endKey = end
	c.reset()
}

// reset re-arms the iterator at the beginning of the declared range.
func (c *kvCursor) reset() {
	c.started = false
}

// advance moves to the next record and reports whether one is available
// within the range.
func (c *kvCursor) advance() bool {
	if c.closed {
		return false
	}
	if !c.started {
		if c.startKey != nil {
			c.it.Seek(c.startKey)
		} else {
			c.it.Seek(c.table)
		}
		c.started = true
	} else if c.it.ValidForPrefix(c.table) {
		c.it.Next()
	}
	if !c.it.ValidForPrefix(c.table) {
		return false
	}
	if c.endKey != nil && bytes.Compare(c.it.Item().Key(), c.endKey) > 0 {
		return false
	}
	return true
}

// key returns the current record's key; valid only after advance reported
// true.
func (c *kvCursor) key() []byte {
	return c.it.Item().Key()
}

func (c *kvCursor) value() ([]byte, error) {
	return c.it.Item().ValueCopy(nil)
}

func (c *kvCursor) close() {
	if c.closed {
		return
	}
	c.closed = true
	c.it.Close()
	if c.ownsTxn {
		c.txn.Discard()
	}
}

// nodeRangeKeys converts an inclusive node KeyRange into key bounds for a
// single-ID table.
func nodeRangeKeys(table byte, r KeyRange) (start, end []byte) {
	start = nodeKey(table, r.Start)
	if r.End != OutOfBandID {
		end = nodeKey(table, r.End)
	}
	return start, end
}

// edgeRangeKeys converts an inclusive EdgeRange into key bounds for a
// composite-key table.
func edgeRangeKeys(table byte, r EdgeRange) (start, end []byte) {
	start = edgeKey(table, r.Start.Src, r.Start.Dst)
	if r.End.Src != OutOfBandID || r.End.Dst != OutOfBandID {
		end = edgeKey(table, r.End.Src, r.End.Dst)
	}
	return start, end
}

// fullNodeRange is the default whole-table range.
func fullNodeRange() KeyRange {
	return KeyRange{Start: 0, End: OutOfBandID}
}

func fullEdgeRange() EdgeRange {
	return EdgeRange{
		Start: KeyPair{Src: 0, Dst: 0},
		End:   KeyPair{Src: OutOfBandID, Dst: OutOfBandID},
	}
}
