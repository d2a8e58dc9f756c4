package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectNodes(t *testing.T, cur NodeCursor) []NodeID {
	t.Helper()
	var ids []NodeID
	var n Node
	for {
		require.NoError(t, cur.Next(&n))
		if n.ID == OutOfBandID {
			return ids
		}
		ids = append(ids, n.ID)
	}
}

func collectEdges(t *testing.T, cur EdgeCursor) []KeyPair {
	t.Helper()
	var pairs []KeyPair
	var e Edge
	for {
		require.NoError(t, cur.Next(&e))
		if e.Src == OutOfBandID {
			return pairs
		}
		pairs = append(pairs, KeyPair{Src: e.Src, Dst: e.Dst})
	}
}

func collectAdj(t *testing.T, next func(*AdjacencyList) error) []AdjacencyList {
	t.Helper()
	var lists []AdjacencyList
	var a AdjacencyList
	for {
		require.NoError(t, next(&a))
		if a.NodeID == OutOfBandID {
			return lists
		}
		lists = append(lists, AdjacencyList{NodeID: a.NodeID, Degree: a.Degree, Edgelist: a.Edgelist})
	}
}

func TestNodeIterationAscending(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			cur, err := g.NodeIter()
			require.NoError(t, err)
			defer cur.Close()

			assert.Equal(t, []NodeID{1, 2, 3, 4, 5, 6, 7, 8}, collectNodes(t, cur))

			// Reset re-arms the declared range.
			require.NoError(t, cur.Reset())
			assert.Equal(t, []NodeID{1, 2, 3, 4, 5, 6, 7, 8}, collectNodes(t, cur))

			// A sub-range is inclusive on both ends.
			require.NoError(t, cur.SetKeyRange(KeyRange{Start: 3, End: 6}))
			assert.Equal(t, []NodeID{3, 4, 5, 6}, collectNodes(t, cur))
		})
	}
}

func TestEdgeIterationSorted(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			cur, err := g.EdgeIter()
			require.NoError(t, err)
			defer cur.Close()

			want := []KeyPair{
				{Src: 1, Dst: 3}, {Src: 1, Dst: 7}, {Src: 2, Dst: 3},
				{Src: 5, Dst: 6}, {Src: 7, Dst: 8}, {Src: 8, Dst: 7},
			}
			assert.Equal(t, want, collectEdges(t, cur))
		})
	}
}

func TestEdgeCursorRange(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)
			require.NoError(t, g.DeleteNode(2))

			cur, err := g.EdgeIter()
			require.NoError(t, err)
			defer cur.Close()

			require.NoError(t, cur.SetKeyRange(EdgeRange{
				Start: KeyPair{Src: 1, Dst: 4},
				End:   KeyPair{Src: 8, Dst: 1},
			}))
			want := []KeyPair{{Src: 1, Dst: 7}, {Src: 5, Dst: 6}, {Src: 7, Dst: 8}}
			assert.Equal(t, want, collectEdges(t, cur))

			// The max-sentinel end means "to the end of the table".
			require.NoError(t, cur.SetKeyRange(EdgeRange{
				Start: KeyPair{Src: 7, Dst: 0},
				End:   KeyPair{Src: OutOfBandID, Dst: OutOfBandID},
			}))
			want = []KeyPair{{Src: 7, Dst: 8}, {Src: 8, Dst: 7}}
			assert.Equal(t, want, collectEdges(t, cur))
		})
	}
}

func TestOutNeighborhoodIteration(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			cur, err := g.OutNbdIter()
			require.NoError(t, err)
			defer cur.Close()

			// Default mode: only nodes with at least one out-edge.
			lists := collectAdj(t, cur.Next)
			want := []AdjacencyList{
				{NodeID: 1, Degree: 2, Edgelist: []NodeID{3, 7}},
				{NodeID: 2, Degree: 1, Edgelist: []NodeID{3}},
				{NodeID: 5, Degree: 1, Edgelist: []NodeID{6}},
				{NodeID: 7, Degree: 1, Edgelist: []NodeID{8}},
				{NodeID: 8, Degree: 1, Edgelist: []NodeID{7}},
			}
			assert.Equal(t, want, lists)

			// All-nodes mode: empty neighborhoods emit degree zero.
			cur.IncludeAllNodes(true)
			require.NoError(t, cur.Reset())
			lists = collectAdj(t, cur.Next)
			require.Len(t, lists, 8)
			assert.Equal(t, NodeID(3), lists[2].NodeID)
			assert.Zero(t, lists[2].Degree)
			assert.Equal(t, NodeID(4), lists[3].NodeID)
			assert.Zero(t, lists[3].Degree)
		})
	}
}

func TestInNeighborhoodIteration(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			cur, err := g.InNbdIter()
			require.NoError(t, err)
			defer cur.Close()

			lists := collectAdj(t, cur.Next)
			want := []AdjacencyList{
				{NodeID: 3, Degree: 2, Edgelist: []NodeID{1, 2}},
				{NodeID: 6, Degree: 1, Edgelist: []NodeID{5}},
				{NodeID: 7, Degree: 2, Edgelist: []NodeID{1, 8}},
				{NodeID: 8, Degree: 1, Edgelist: []NodeID{7}},
			}
			assert.Equal(t, want, lists)

			cur.IncludeAllNodes(true)
			require.NoError(t, cur.Reset())
			lists = collectAdj(t, cur.Next)
			require.Len(t, lists, 8)
			var ids []NodeID
			for _, l := range lists {
				ids = append(ids, l.NodeID)
			}
			assert.Equal(t, []NodeID{1, 2, 3, 4, 5, 6, 7, 8}, ids)
			assert.Zero(t, lists[0].Degree) // node 1 has no in-edges
			assert.Equal(t, Degree(2), lists[2].Degree)
		})
	}
}

func TestNeighborhoodRange(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, true, true, true)
			g := testHandle(t, e)
			loadSample(t, g)

			cur, err := g.OutNbdIter()
			require.NoError(t, err)
			defer cur.Close()

			require.NoError(t, cur.SetKeyRange(KeyRange{Start: 2, End: 7}))
			lists := collectAdj(t, cur.Next)
			want := []AdjacencyList{
				{NodeID: 2, Degree: 1, Edgelist: []NodeID{3}},
				{NodeID: 5, Degree: 1, Edgelist: []NodeID{6}},
				{NodeID: 7, Degree: 1, Edgelist: []NodeID{8}},
			}
			assert.Equal(t, want, lists)
		})
	}
}

func TestUndirectedNeighborhoodsAgree(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			e := newTestEngine(t, typ, false, false, true)
			g := testHandle(t, e)
			require.NoError(t, g.AddEdge(Edge{Src: 1, Dst: 2}))
			require.NoError(t, g.AddEdge(Edge{Src: 1, Dst: 3}))

			out, err := g.OutNbdIter()
			require.NoError(t, err)
			defer out.Close()
			in, err := g.InNbdIter()
			require.NoError(t, err)
			defer in.Close()

			outLists := collectAdj(t, out.Next)
			inLists := collectAdj(t, in.Next)
			assert.Equal(t, outLists, inLists)
			require.NotEmpty(t, outLists)
			assert.Equal(t, AdjacencyList{NodeID: 1, Degree: 2, Edgelist: []NodeID{2, 3}}, outLists[0])
		})
	}
}
