package graph

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Shared write protocol. Every mutation runs inside one Badger transaction
// at snapshot isolation; a conflict surfaces as ErrRollback with no state
// change and the caller retries from the top. Counters are adjusted only
// after a successful commit.

// mapKVError translates Badger outcomes into the package's taxonomy.
func mapKVError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return ErrRollback
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	default:
		return err
	}
}

// baseGraph carries the state common to all representation handles: the
// shared Badger instance, the handle options, and for read-only handles the
// pinned snapshot transaction.
type baseGraph struct {
	engine *Engine
	opts   *Options
	db     *badger.DB

	// snap pins a read-only handle to the snapshot taken when the handle
	// was bound to a checkpoint. Nil for writable handles.
	snap *badger.Txn

	closed bool
}

func (g *baseGraph) checkOpen() error {
	if g.closed {
		return ErrGraphClosed
	}
	return nil
}

// readTxn returns the transaction reads should run in, plus a release
// function. Read-only handles reuse the pinned snapshot; writable handles
// get a fresh read transaction per call.
func (g *baseGraph) readTxn() (*badger.Txn, func()) {
	if g.snap != nil {
		return g.snap, func() {}
	}
	txn := g.db.NewTransaction(false)
	return txn, txn.Discard
}

// update runs fn inside one read-write transaction and commits it,
// translating conflicts into the rollback outcome. Partial effects are
// never visible.
func (g *baseGraph) update(fn func(txn *badger.Txn) error) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if g.snap != nil || g.opts.ReadOnly {
		return ErrReadOnly
	}
	txn := g.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return mapKVError(err)
	}
	return mapKVError(txn.Commit())
}

// view runs fn in a read transaction (the pinned snapshot for read-only
// handles).
func (g *baseGraph) view(fn func(txn *badger.Txn) error) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	txn, done := g.readTxn()
	defer done()
	return mapKVError(fn(txn))
}

// getValue copies the value at key, translating absence to ErrNotFound.
func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// hasKey reports whether key exists.
func hasKey(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// closeBase releases the handle. Uncommitted state dies with the snapshot
// transaction.
func (g *baseGraph) closeBase() {
	if g.closed {
		return
	}
	g.closed = true
	if g.snap != nil {
		g.snap.Discard()
		g.snap = nil
	}
}

// Retry runs op until it stops returning the rollback outcome, backing off
// with jitter between attempts. Any other result, including success, is
// returned as-is.
//
// Example:
//
//	err := graph.Retry(func() error { return g.AddEdge(e) })
func Retry(op func() error) error {
	backoff := time.Millisecond
	const maxBackoff = 64 * time.Millisecond
	for {
		err := op()
		if !errors.Is(err, ErrRollback) {
			return err
		}
		time.Sleep(backoff + time.Duration(rand.Int63n(int64(backoff))))
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// writeResult tallies what a committed mutation changed so the caller can
// bump the live counters exactly once, post-commit.
type writeResult struct {
	newNodes     int64
	newEdges     int64
	removedNodes int64
	removedEdges int64
}

func (g *baseGraph) applyResult(r writeResult) {
	if n := r.newNodes - r.removedNodes; n != 0 {
		g.engine.addNodes(n)
	}
	if n := r.newEdges - r.removedEdges; n != 0 {
		g.engine.addEdges(n)
	}
}

// fatalf wraps an unrecoverable condition (corrupt record, invariant
// violation).
func fatalf(format string, args ...any) error {
	return fmt.Errorf("graph: "+format, args...)
}
