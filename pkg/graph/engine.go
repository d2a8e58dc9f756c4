package graph

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Engine owns the process-wide KV connection for one graph. It provisions
// or opens the graph directory, hands out per-thread representation
// handles, computes partition boundaries for parallel scans, names
// checkpoints for read-only handles, and flushes the live counters to the
// metadata record at sync points and close.
//
// The engine is safe for concurrent use; the handles it produces are not —
// one handle per thread.
//
// Example:
//
//	opts := graph.NewOptions()
//	opts.DBName = "cit-patents"
//	opts.DBDir = "./data"
//	opts.Type = graph.SplitEKey
//	opts.NumThreads = 8
//
//	engine, err := graph.NewEngine(opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if err := engine.CalculateThreadOffsets(true); err != nil {
//		log.Fatal(err)
//	}
//	for t := 0; t < 8; t++ {
//		go func(t int) {
//			g, _ := engine.CreateGraphHandle(false)
//			defer g.Close()
//			r, _ := engine.GetKeyRange(t)
//			// scan r on this handle
//		}(t)
//	}
type Engine struct {
	db   *badger.DB
	opts *Options

	mu         sync.Mutex
	nodeRanges []NodeID
	edgeRanges []KeyPair

	nnodes atomic.Int64
	nedges atomic.Int64
	minID  atomic.Uint64
	maxID  atomic.Uint64

	lastCheckpoint string
	locks          LockSet
	closed         atomic.Bool
}

// NewEngine creates or opens a graph per opts. With CreateNew the data
// directory is laid out, the KV store opened and the initial metadata
// record written; otherwise the flag options are hydrated from the existing
// metadata record and the counters restored.
func NewEngine(opts *Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	o := opts.clone()

	var bopts badger.Options
	if o.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Join(o.DBDir, o.DirName())
		if o.CreateNew {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("graph: create graph dir: %w", err)
			}
			log.Printf("creating new graph at %s", dir)
		}
		bopts = badger.DefaultOptions(dir)
	}

	// Quiet internal logging; badger's defaults are chatty.
	bopts = bopts.WithLogger(nil).
		WithSyncWrites(o.SyncWrites).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithIndexCacheSize(16 << 20)
	if o.CacheSize > 0 {
		bopts = bopts.WithBlockCacheSize(o.CacheSize)
	} else {
		bopts = bopts.WithBlockCacheSize(32 << 20)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("graph: open kv store: %w", err)
	}

	e := &Engine{db: db, opts: o}
	if o.CreateNew {
		if err := createMetadata(db, o); err != nil {
			db.Close()
			return nil, fmt.Errorf("graph: write metadata: %w", err)
		}
		e.minID.Store(uint64(OutOfBandID))
	} else {
		c, err := hydrateMetadata(db, o)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("graph: restore metadata: %w", err)
		}
		e.nnodes.Store(int64(c.numNodes))
		e.nedges.Store(int64(c.numEdges))
		e.minID.Store(c.minNodeID)
		e.maxID.Store(c.maxNodeID)
	}
	return e, nil
}

// CreateGraphHandle returns a fresh representation handle with its own
// cursor state. A read-only handle is bound to a new checkpoint: its reads
// all run inside one snapshot transaction pinned at bind time, so it never
// observes later writers.
func (e *Engine) CreateGraphHandle(readOnly bool) (Graph, error) {
	if e.closed.Load() {
		return nil, ErrGraphClosed
	}
	hopts := e.opts.clone()
	var snap *badger.Txn
	if readOnly {
		name, err := e.Checkpoint()
		if err != nil {
			return nil, err
		}
		hopts.ReadOnly = true
		hopts.CreateNew = false
		hopts.CheckpointName = name
		snap = e.db.NewTransaction(false)
	}
	base := baseGraph{engine: e, opts: hopts, db: e.db, snap: snap}
	switch hopts.Type {
	case Adj:
		return newAdjList(base), nil
	case EKey:
		return newEdgeKey(base), nil
	case SplitEKey:
		return newSplitEdgeKey(base), nil
	default:
		return nil, fmt.Errorf("graph: unknown graph type %d", hopts.Type)
	}
}

// Checkpoint flushes the counters to metadata and names an immutable
// snapshot point for read-only handles. Returns the checkpoint name.
func (e *Engine) Checkpoint() (string, error) {
	if err := e.Sync(); err != nil {
		return "", err
	}
	name := time.Now().Format("2006_01_02_15_04_05")
	e.mu.Lock()
	e.lastCheckpoint = name
	e.mu.Unlock()
	return name, nil
}

// LastCheckpoint returns the most recent checkpoint name, or empty.
func (e *Engine) LastCheckpoint() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCheckpoint
}

// Sync writes the live counters back to the metadata record. Until a sync,
// the persisted counters are stale and advisory only.
func (e *Engine) Sync() error {
	if e.closed.Load() {
		return ErrGraphClosed
	}
	return syncMetadata(e.db, persistedCounters{
		numNodes:  uint64(e.nnodes.Load()),
		numEdges:  uint64(e.nedges.Load()),
		minNodeID: e.minID.Load(),
		maxNodeID: e.maxID.Load(),
	})
}

// CreateIndices builds the deferred (dst,src) index of the edge-key family
// after a bulk load, then re-enables inline index maintenance. Handles
// created before this call keep skipping index writes; create handles
// afterwards.
func (e *Engine) CreateIndices() error {
	if e.closed.Load() {
		return ErrGraphClosed
	}
	if e.opts.Type != EKey && e.opts.Type != SplitEKey {
		return fmt.Errorf("graph: representation %s has no secondary index", e.opts.Type)
	}
	if !e.opts.OptimizeCreate {
		return nil // index is already maintained inline
	}

	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(prefixEdge)
		opts.PrefetchValues = e.opts.Type == SplitEKey
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			src, dst := decodeEdgeKey(it.Item().Key())
			var val []byte
			if e.opts.Type == SplitEKey {
				var err error
				if val, err = it.Item().ValueCopy(nil); err != nil {
					return err
				}
			}
			// Node rows (id, 0) index as (0, id); edge rows as (dst, src).
			if err := wb.Set(edgeKey(prefixDstSrc, dst, src), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("graph: build index: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("graph: flush index: %w", err)
	}
	e.opts.OptimizeCreate = false
	return nil
}

// CalculateThreadOffsets traverses the node table once and records
// NumThreads partition boundaries carrying ceil(N/k) node rows each; with
// makeEdge it does the same over the edge table. Serve the results through
// GetKeyRange and GetEdgeRange.
func (e *Engine) CalculateThreadOffsets(makeEdge bool) error {
	g, err := e.CreateGraphHandle(false)
	if err != nil {
		return err
	}
	defer g.Close()

	k := e.opts.NumThreads
	var nodeRanges []NodeID
	if n := e.NumNodes(); n > 0 {
		per := (n + int64(k) - 1) / int64(k)
		cur, err := g.NodeIter()
		if err != nil {
			return err
		}
		defer cur.Close()
		var found Node
		var i int64
		for cur.Next(&found); found.ID != OutOfBandID; cur.Next(&found) {
			if i%per == 0 {
				nodeRanges = append(nodeRanges, found.ID)
			}
			i++
		}
		if i != n {
			return fatalf("node count drifted during offset scan: counted %d, expected %d", i, n)
		}
	}

	var edgeRanges []KeyPair
	if makeEdge {
		if n := e.NumEdges(); n > 0 {
			per := (n + int64(k) - 1) / int64(k)
			cur, err := g.EdgeIter()
			if err != nil {
				return err
			}
			defer cur.Close()
			var found Edge
			var i int64
			for cur.Next(&found); found.Src != OutOfBandID; cur.Next(&found) {
				if i%per == 0 {
					edgeRanges = append(edgeRanges, KeyPair{Src: found.Src, Dst: found.Dst})
				}
				i++
			}
			if i != n {
				return fatalf("edge count drifted during offset scan: counted %d, expected %d", i, n)
			}
		}
	}

	e.mu.Lock()
	e.nodeRanges = nodeRanges
	if makeEdge {
		e.edgeRanges = edgeRanges
	}
	e.mu.Unlock()
	return nil
}

// GetKeyRange returns thread i's node slice as an inclusive range; the
// slices are half-open back to back, the final one running to the
// max-sentinel. Threads beyond the boundary count get empty ranges.
func (e *Engine) GetKeyRange(i int) (KeyRange, error) {
	if i < 0 || i >= e.opts.NumThreads {
		return KeyRange{}, fmt.Errorf("graph: thread id %d out of range", i)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nodeRanges == nil {
		return KeyRange{}, fmt.Errorf("graph: thread offsets not calculated")
	}
	if i >= len(e.nodeRanges) {
		return KeyRange{Start: OutOfBandID, End: OutOfBandID}, nil
	}
	r := KeyRange{Start: e.nodeRanges[i], End: OutOfBandID}
	if i+1 < len(e.nodeRanges) {
		r.End = e.nodeRanges[i+1] - 1
	}
	return r, nil
}

// GetEdgeRange is GetKeyRange's analogue over edge-space boundaries.
func (e *Engine) GetEdgeRange(i int) (EdgeRange, error) {
	if i < 0 || i >= e.opts.NumThreads {
		return EdgeRange{}, fmt.Errorf("graph: thread id %d out of range", i)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edgeRanges == nil {
		return EdgeRange{}, fmt.Errorf("graph: edge offsets not calculated")
	}
	oob := KeyPair{Src: OutOfBandID, Dst: OutOfBandID}
	if i >= len(e.edgeRanges) {
		return EdgeRange{Start: oob, End: oob}, nil
	}
	r := EdgeRange{Start: e.edgeRanges[i], End: oob}
	if i+1 < len(e.edgeRanges) {
		next := e.edgeRanges[i+1]
		// Inclusive end is the predecessor of the next slice's start.
		if next.Dst > 0 {
			r.End = KeyPair{Src: next.Src, Dst: next.Dst - 1}
		} else {
			r.End = KeyPair{Src: next.Src - 1, Dst: OutOfBandID}
		}
	}
	return r, nil
}

// NumNodes returns the live node counter. Advisory between syncs.
func (e *Engine) NumNodes() int64 { return e.nnodes.Load() }

// NumEdges returns the live edge counter. Advisory between syncs.
func (e *Engine) NumEdges() int64 { return e.nedges.Load() }

// MinNodeID returns the smallest node ID observed so far.
func (e *Engine) MinNodeID() NodeID { return NodeID(e.minID.Load()) }

// MaxNodeID returns the largest node ID observed so far.
func (e *Engine) MaxNodeID() NodeID { return NodeID(e.maxID.Load()) }

// Options returns the engine's resolved options. After opening an existing
// graph the flag fields reflect the persisted metadata, not what the caller
// passed in.
func (e *Engine) Options() *Options { return e.opts }

// Locks exposes the coordination mutexes for benchmark-level use.
func (e *Engine) Locks() *LockSet { return &e.locks }

// Connection exposes the underlying KV store handle.
func (e *Engine) Connection() *badger.DB { return e.db }

func (e *Engine) addNodes(n int64) { e.nnodes.Add(n) }
func (e *Engine) addEdges(n int64) { e.nedges.Add(n) }

// observeID folds id into the min/max watermarks.
func (e *Engine) observeID(id NodeID) {
	for {
		cur := e.minID.Load()
		if uint64(id) >= cur || e.minID.CompareAndSwap(cur, uint64(id)) {
			break
		}
	}
	for {
		cur := e.maxID.Load()
		if uint64(id) <= cur || e.maxID.CompareAndSwap(cur, uint64(id)) {
			break
		}
	}
}

// Close flushes the counters to metadata and releases the KV connection.
func (e *Engine) Close() error {
	if e.closed.Load() {
		return nil
	}
	if err := e.Sync(); err != nil {
		return err
	}
	e.closed.Store(true)
	return e.db.Close()
}
