package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoverage(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			require.NoError(t, e.CalculateThreadOffsets(true))

			// Each slice scanned on its own handle; the union must visit
			// every node exactly once.
			seen := map[NodeID]int{}
			for i := 0; i < 4; i++ {
				h, err := e.CreateGraphHandle(false)
				require.NoError(t, err)
				r, err := e.GetKeyRange(i)
				require.NoError(t, err)

				cur, err := h.NodeIter()
				require.NoError(t, err)
				require.NoError(t, cur.SetKeyRange(r))
				for _, id := range collectNodes(t, cur) {
					seen[id]++
				}
				cur.Close()
				h.Close()
			}
			require.Len(t, seen, 8)
			for id, count := range seen {
				assert.Equal(t, 1, count, "node %d visited %d times", id, count)
			}

			// Edge-space slices likewise cover every edge exactly once.
			seenEdges := map[KeyPair]int{}
			for i := 0; i < 4; i++ {
				r, err := e.GetEdgeRange(i)
				require.NoError(t, err)
				cur, err := g.EdgeIter()
				require.NoError(t, err)
				require.NoError(t, cur.SetKeyRange(r))
				for _, p := range collectEdges(t, cur) {
					seenEdges[p]++
				}
				cur.Close()
			}
			require.Len(t, seenEdges, len(sampleEdges))
			for p, count := range seenEdges {
				assert.Equal(t, 1, count, "edge (%d,%d) visited %d times", p.Src, p.Dst, count)
			}
		})
	}
}

func TestPartitionMoreThreadsThanNodes(t *testing.T) {
	opts := NewOptions()
	opts.DBName = "tiny"
	opts.Type = EKey
	opts.InMemory = true
	opts.NumThreads = 4
	e, err := NewEngine(opts)
	require.NoError(t, err)
	defer e.Close()

	g, err := e.CreateGraphHandle(false)
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.AddNode(Node{ID: 1}))
	require.NoError(t, g.AddNode(Node{ID: 2}))

	require.NoError(t, e.CalculateThreadOffsets(false))

	seen := map[NodeID]int{}
	for i := 0; i < 4; i++ {
		r, err := e.GetKeyRange(i)
		require.NoError(t, err)
		cur, err := g.NodeIter()
		require.NoError(t, err)
		require.NoError(t, cur.SetKeyRange(r))
		for _, id := range collectNodes(t, cur) {
			seen[id]++
		}
		cur.Close()
	}
	assert.Equal(t, map[NodeID]int{1: 1, 2: 1}, seen)

	_, err = e.GetKeyRange(4)
	assert.Error(t, err)
}

func TestMetadataPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	opts := NewOptions()
	opts.DBName = "persist"
	opts.DBDir = dir
	opts.Type = SplitEKey
	opts.IsWeighted = true

	e, err := NewEngine(opts)
	require.NoError(t, err)
	g, err := e.CreateGraphHandle(false)
	require.NoError(t, err)
	loadSample(t, g)
	require.NoError(t, g.Close())
	require.NoError(t, e.Close())

	// Reopen: flags and counters hydrate from the metadata record.
	reopen := NewOptions()
	reopen.DBName = "persist"
	reopen.DBDir = dir
	reopen.Type = SplitEKey
	reopen.CreateNew = false
	reopen.IsWeighted = false // stale flag, must be overwritten by metadata

	e2, err := NewEngine(reopen)
	require.NoError(t, err)
	defer e2.Close()

	assert.True(t, e2.Options().IsWeighted)
	assert.True(t, e2.Options().IsDirected)
	assert.Equal(t, int64(8), e2.NumNodes())
	assert.Equal(t, int64(6), e2.NumEdges())
	assert.Equal(t, NodeID(1), e2.MinNodeID())
	assert.Equal(t, NodeID(8), e2.MaxNodeID())

	g2, err := e2.CreateGraphHandle(false)
	require.NoError(t, err)
	defer g2.Close()
	ed, err := g2.GetEdge(1, 3)
	require.NoError(t, err)
	assert.Equal(t, Weight(1), ed.Weight)
}

func TestReadOnlyHandlePinsSnapshot(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, false, true)
			w := testHandle(t, e)
			loadSample(t, w)

			r, err := e.CreateGraphHandle(true)
			require.NoError(t, err)
			defer r.Close()
			assert.NotEmpty(t, e.LastCheckpoint())

			// A write after the checkpoint is invisible to the bound handle.
			require.NoError(t, w.AddEdge(Edge{Src: 4, Dst: 5}))

			ok, err := w.HasEdge(4, 5)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = r.HasEdge(4, 5)
			require.NoError(t, err)
			assert.False(t, ok)

			// Read-only handles reject mutation outright.
			assert.ErrorIs(t, r.AddEdge(Edge{Src: 5, Dst: 4}), ErrReadOnly)
			assert.ErrorIs(t, r.DeleteNode(1), ErrReadOnly)

			// Its cursors observe the snapshot too.
			cur, err := r.EdgeIter()
			require.NoError(t, err)
			defer cur.Close()
			assert.Len(t, collectEdges(t, cur), len(sampleEdges))
		})
	}
}

func TestDeferredIndexCreation(t *testing.T) {
	for _, typ := range []GraphType{EKey, SplitEKey} {
		t.Run(typ.String(), func(t *testing.T) {
			opts := NewOptions()
			opts.DBName = "bulk"
			opts.Type = typ
			opts.InMemory = true
			opts.OptimizeCreate = true
			e, err := NewEngine(opts)
			require.NoError(t, err)
			defer e.Close()

			g, err := e.CreateGraphHandle(false)
			require.NoError(t, err)
			loadSample(t, g)
			require.NoError(t, g.Close())

			require.NoError(t, e.CreateIndices())

			// Handles created after index build use it normally.
			g2, err := e.CreateGraphHandle(false)
			require.NoError(t, err)
			defer g2.Close()

			in, err := g2.InNodeIDs(3)
			require.NoError(t, err)
			assert.Equal(t, []NodeID{1, 2}, in)

			cur, err := g2.NodeIter()
			require.NoError(t, err)
			defer cur.Close()
			assert.Equal(t, []NodeID{1, 2, 3, 4, 5, 6, 7, 8}, collectNodes(t, cur))
		})
	}
}

func TestCloseFlushesCounters(t *testing.T) {
	dir := t.TempDir()
	opts := NewOptions()
	opts.DBName = "flush"
	opts.DBDir = dir
	opts.Type = Adj

	e, err := NewEngine(opts)
	require.NoError(t, err)
	g, err := e.CreateGraphHandle(false)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(Edge{Src: 1, Dst: 2}))
	require.NoError(t, g.Close())
	require.NoError(t, e.Close())

	// Using the engine after close fails cleanly.
	_, err = e.CreateGraphHandle(false)
	assert.ErrorIs(t, err, ErrGraphClosed)

	reopen := NewOptions()
	reopen.DBName = "flush"
	reopen.DBDir = dir
	reopen.Type = Adj
	reopen.CreateNew = false
	e2, err := NewEngine(reopen)
	require.NoError(t, err)
	defer e2.Close()
	assert.Equal(t, int64(2), e2.NumNodes())
	assert.Equal(t, int64(1), e2.NumEdges())
}

func TestDirName(t *testing.T) {
	o := NewOptions()
	o.DBName = "lj"
	o.Type = EKey
	assert.Equal(t, "ekey_rdd_lj", o.DirName())

	o.ReadOptimize = false
	o.IsDirected = false
	o.Type = SplitEKey
	assert.Equal(t, "ekey_split__lj", o.DirName())

	o.Type = Adj
	o.IsDirected = true
	assert.Equal(t, "adj_d_lj", o.DirName())
}
