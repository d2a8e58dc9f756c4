package graph

import (
	"github.com/dgraph-io/badger/v4"
)

// SplitEdgeKeyGraph is the split edge-key representation. Two mirror key
// spaces kept in lockstep:
//
//	out_edges: (src,dst) -> (weight, marker); node rows at (id, 0)
//	in_edges:  (dst,src) -> (weight, marker); no node rows
//
// plus a (dst,src) index over out_edges projecting the value pair, which
// serves node enumeration and in-neighbor lookup without a second random
// read. Walking the in-neighborhood of d is a tight prefix scan of
// in_edges rather than an index chase.
//
// Undirected graphs store both directions as out rows and never populate
// in_edges; in-neighbor lookups use the index, and the in-neighborhood
// cursor groups the out rows themselves.
type SplitEdgeKeyGraph struct {
	baseGraph
}

func newSplitEdgeKey(base baseGraph) *SplitEdgeKeyGraph {
	return &SplitEdgeKeyGraph{baseGraph: base}
}

func (g *SplitEdgeKeyGraph) maintainIndex() bool {
	return !g.opts.OptimizeCreate
}

// putNodeRow writes the node row and, because the index projects the value
// columns, mirrors the degree tuple into the (0, id) index entry.
func (g *SplitEdgeKeyGraph) putNodeRow(txn *badger.Txn, n Node) error {
	v := packDegrees(n.InDegree, n.OutDegree)
	if err := txn.Set(edgeKey(prefixEdge, n.ID, 0), v); err != nil {
		return err
	}
	if g.maintainIndex() {
		return txn.Set(edgeKey(prefixDstSrc, 0, n.ID), v)
	}
	return nil
}

func (g *SplitEdgeKeyGraph) ensureNode(txn *badger.Txn, id NodeID, res *writeResult) error {
	ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := g.putNodeRow(txn, Node{ID: id}); err != nil {
		return err
	}
	res.newNodes++
	return nil
}

func (g *SplitEdgeKeyGraph) addDegrees(txn *badger.Txn, id NodeID, dIn, dOut int) error {
	if !g.opts.ReadOptimize || (dIn == 0 && dOut == 0) {
		return nil
	}
	v, err := getValue(txn, edgeKey(prefixEdge, id, 0))
	if err == ErrNotFound {
		return fatalf("degree update on missing node %d", id)
	}
	if err != nil {
		return err
	}
	in, out, err := unpackDegrees(v)
	if err != nil {
		return err
	}
	if int(in)+dIn < 0 || int(out)+dOut < 0 {
		return fatalf("degree underflow on node %d", id)
	}
	return g.putNodeRow(txn, Node{ID: id, InDegree: Degree(int(in) + dIn), OutDegree: Degree(int(out) + dOut)})
}

// putEdgeRows writes one directed edge's rows: the out row, the in-edges
// mirror (directed graphs only) and the index entry with its projection.
func (g *SplitEdgeKeyGraph) putEdgeRows(txn *badger.Txn, src, dst NodeID, w Weight) error {
	v := packEdgeValue(w)
	if err := txn.Set(edgeKey(prefixEdge, src, dst), v); err != nil {
		return err
	}
	if g.opts.IsDirected {
		if err := txn.Set(edgeKey(prefixInEdge, dst, src), v); err != nil {
			return err
		}
	}
	if g.maintainIndex() {
		return txn.Set(edgeKey(prefixDstSrc, dst, src), v)
	}
	return nil
}

// dropEdgeRows removes one directed edge's rows everywhere they live.
func (g *SplitEdgeKeyGraph) dropEdgeRows(txn *badger.Txn, src, dst NodeID) error {
	if err := txn.Delete(edgeKey(prefixEdge, src, dst)); err != nil {
		return err
	}
	if g.opts.IsDirected {
		if err := txn.Delete(edgeKey(prefixInEdge, dst, src)); err != nil {
			return err
		}
	}
	if g.maintainIndex() {
		return txn.Delete(edgeKey(prefixDstSrc, dst, src))
	}
	return nil
}

func (g *SplitEdgeKeyGraph) AddNode(n Node) error {
	if !validID(n.ID) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		ok, err := hasKey(txn, edgeKey(prefixEdge, n.ID, 0))
		if err != nil {
			return err
		}
		if ok {
			return ErrDuplicateKey
		}
		if err := g.putNodeRow(txn, n); err != nil {
			return err
		}
		res.newNodes = 1
		return nil
	})
	if err != nil {
		return err
	}
	g.applyResult(res)
	g.engine.observeID(n.ID)
	return nil
}

func (g *SplitEdgeKeyGraph) GetNode(id NodeID) (Node, error) {
	if !validID(id) {
		return Node{}, ErrInvalidID
	}
	var n Node
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, edgeKey(prefixEdge, id, 0))
		if err != nil {
			return err
		}
		n.ID = id
		n.InDegree, n.OutDegree, err = unpackDegrees(v)
		return err
	})
	if err != nil {
		return Node{}, err
	}
	return n, nil
}

func (g *SplitEdgeKeyGraph) HasNode(id NodeID) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	err := g.view(func(txn *badger.Txn) error {
		var err error
		ok, err = hasKey(txn, edgeKey(prefixEdge, id, 0))
		return err
	})
	return ok, err
}

func (g *SplitEdgeKeyGraph) AddEdge(e Edge) error {
	if !validID(e.Src) || !validID(e.Dst) {
		return ErrInvalidID
	}
	if !g.opts.IsWeighted {
		e.Weight = 0
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		ok, err := hasKey(txn, edgeKey(prefixEdge, e.Src, e.Dst))
		if err != nil {
			return err
		}
		if ok {
			return ErrDuplicateKey
		}
		if err := g.ensureNode(txn, e.Src, &res); err != nil {
			return err
		}
		if err := g.ensureNode(txn, e.Dst, &res); err != nil {
			return err
		}
		if err := g.putEdgeRows(txn, e.Src, e.Dst, e.Weight); err != nil {
			return err
		}
		if err := g.addDegrees(txn, e.Src, 0, 1); err != nil {
			return err
		}
		if err := g.addDegrees(txn, e.Dst, 1, 0); err != nil {
			return err
		}
		res.newEdges = 1

		if !g.opts.IsDirected && e.Src != e.Dst {
			if err := g.putEdgeRows(txn, e.Dst, e.Src, e.Weight); err != nil {
				return err
			}
			if err := g.addDegrees(txn, e.Dst, 0, 1); err != nil {
				return err
			}
			if err := g.addDegrees(txn, e.Src, 1, 0); err != nil {
				return err
			}
			res.newEdges = 2
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.applyResult(res)
	g.engine.observeID(e.Src)
	g.engine.observeID(e.Dst)
	return nil
}

func (g *SplitEdgeKeyGraph) GetEdge(src, dst NodeID) (Edge, error) {
	if !validID(src) || !validID(dst) {
		return Edge{}, ErrInvalidID
	}
	var e Edge
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, edgeKey(prefixEdge, src, dst))
		if err != nil {
			return err
		}
		e.Src, e.Dst = src, dst
		e.Weight, err = unpackEdgeValue(v)
		return err
	})
	if err != nil {
		return Edge{}, err
	}
	return e, nil
}

func (g *SplitEdgeKeyGraph) HasEdge(src, dst NodeID) (bool, error) {
	if !validID(src) || !validID(dst) {
		return false, nil
	}
	var ok bool
	err := g.view(func(txn *badger.Txn) error {
		var err error
		ok, err = hasKey(txn, edgeKey(prefixEdge, src, dst))
		return err
	})
	return ok, err
}

func (g *SplitEdgeKeyGraph) DeleteEdge(src, dst NodeID) error {
	if !validID(src) || !validID(dst) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		ok, err := hasKey(txn, edgeKey(prefixEdge, src, dst))
		if err != nil {
			return err
		}
		if !ok {
			return nil // tolerated absence
		}
		if err := g.dropEdgeRows(txn, src, dst); err != nil {
			return err
		}
		if err := g.addDegrees(txn, src, 0, -1); err != nil {
			return err
		}
		if err := g.addDegrees(txn, dst, -1, 0); err != nil {
			return err
		}
		res.removedEdges = 1

		if !g.opts.IsDirected && src != dst {
			ok, err := hasKey(txn, edgeKey(prefixEdge, dst, src))
			if err != nil {
				return err
			}
			if ok {
				if err := g.dropEdgeRows(txn, dst, src); err != nil {
					return err
				}
				if err := g.addDegrees(txn, dst, 0, -1); err != nil {
					return err
				}
				if err := g.addDegrees(txn, src, -1, 0); err != nil {
					return err
				}
				res.removedEdges = 2
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.applyResult(res)
	return nil
}

func (g *SplitEdgeKeyGraph) DeleteNode(id NodeID) error {
	if !validID(id) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		// Out sweep over the rows rooted at id.
		rooted, err := scanKeys(txn, prefixEdge, id)
		if err != nil {
			return err
		}
		for _, p := range rooted {
			if p.Dst == 0 {
				if err := txn.Delete(edgeKey(prefixEdge, id, 0)); err != nil {
					return err
				}
				continue
			}
			if err := g.dropEdgeRows(txn, id, p.Dst); err != nil {
				return err
			}
			res.removedEdges++
			if p.Dst != id {
				if err := g.addDegrees(txn, p.Dst, -1, 0); err != nil {
					return err
				}
			}
		}

		// In sweep: the in-edges table for directed graphs, the index for
		// undirected ones (where the mirror rows are out rows).
		inTable := prefixInEdge
		if !g.opts.IsDirected {
			inTable = prefixDstSrc
		}
		incoming, err := scanKeys(txn, inTable, id)
		if err != nil {
			return err
		}
		for _, p := range incoming {
			s := p.Dst // both key layouts are (dst, src)
			if s == id {
				continue // self loop handled by the out sweep
			}
			if err := g.dropEdgeRows(txn, s, id); err != nil {
				return err
			}
			res.removedEdges++
			if err := g.addDegrees(txn, s, 0, -1); err != nil {
				return err
			}
		}

		if g.maintainIndex() {
			if err := txn.Delete(edgeKey(prefixDstSrc, 0, id)); err != nil {
				return err
			}
		}
		res.removedNodes = 1
		return nil
	})
	if err != nil {
		return err
	}
	g.applyResult(res)
	return nil
}

func (g *SplitEdgeKeyGraph) OutDegree(id NodeID) (Degree, error) {
	if g.opts.ReadOptimize {
		n, err := g.GetNode(id)
		if err != nil {
			return 0, fatalf("degree query on missing node %d: %w", id, err)
		}
		return n.OutDegree, nil
	}
	var deg Degree
	err := g.view(func(txn *badger.Txn) error {
		ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
		if err != nil {
			return err
		}
		if !ok {
			return fatalf("degree query on missing node %d", id)
		}
		pairs, err := scanKeys(txn, prefixEdge, id)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			if p.Dst != 0 {
				deg++
			}
		}
		return nil
	})
	return deg, err
}

func (g *SplitEdgeKeyGraph) InDegree(id NodeID) (Degree, error) {
	if g.opts.ReadOptimize {
		n, err := g.GetNode(id)
		if err != nil {
			return 0, fatalf("degree query on missing node %d: %w", id, err)
		}
		return n.InDegree, nil
	}
	ids, err := g.InNodeIDs(id)
	if err != nil {
		return 0, err
	}
	return Degree(len(ids)), nil
}

func (g *SplitEdgeKeyGraph) Nodes() ([]Node, error) {
	var nodes []Node
	err := g.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = srcPrefix(prefixDstSrc, 0)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			_, id := decodeEdgeKey(it.Item().Key())
			n := Node{ID: id}
			err := it.Item().Value(func(v []byte) error {
				var err error
				n.InDegree, n.OutDegree, err = unpackDegrees(v)
				return err
			})
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		return nil
	})
	return nodes, err
}

func (g *SplitEdgeKeyGraph) Edges() ([]Edge, error) {
	var edges []Edge
	err := g.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(prefixEdge)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			src, dst := decodeEdgeKey(it.Item().Key())
			if dst == 0 {
				continue
			}
			e := Edge{Src: src, Dst: dst}
			err := it.Item().Value(func(v []byte) error {
				var err error
				e.Weight, err = unpackEdgeValue(v)
				return err
			})
			if err != nil {
				return err
			}
			edges = append(edges, e)
		}
		return nil
	})
	return edges, err
}

func (g *SplitEdgeKeyGraph) OutNodeIDs(id NodeID) ([]NodeID, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	var ids []NodeID
	err := g.view(func(txn *badger.Txn) error {
		ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		pairs, err := scanKeys(txn, prefixEdge, id)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			if p.Dst != 0 {
				ids = append(ids, p.Dst)
			}
		}
		return nil
	})
	return ids, err
}

func (g *SplitEdgeKeyGraph) InNodeIDs(id NodeID) ([]NodeID, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	inTable := prefixInEdge
	if !g.opts.IsDirected {
		inTable = prefixDstSrc
	}
	var ids []NodeID
	err := g.view(func(txn *badger.Txn) error {
		ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		pairs, err := scanKeys(txn, inTable, id)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			ids = append(ids, p.Dst) // key layout is (dst, src)
		}
		return nil
	})
	return ids, err
}

func (g *SplitEdgeKeyGraph) OutEdges(id NodeID) ([]Edge, error) {
	ids, err := g.OutNodeIDs(id)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(ids))
	err = g.view(func(txn *badger.Txn) error {
		for _, d := range ids {
			v, err := getValue(txn, edgeKey(prefixEdge, id, d))
			if err != nil {
				return err
			}
			w, err := unpackEdgeValue(v)
			if err != nil {
				return err
			}
			edges = append(edges, Edge{Src: id, Dst: d, Weight: w})
		}
		return nil
	})
	return edges, err
}

func (g *SplitEdgeKeyGraph) InEdges(id NodeID) ([]Edge, error) {
	// For directed graphs the in-edges rows carry the weight directly; one
	// tight prefix scan, no second lookup.
	if g.opts.IsDirected {
		var edges []Edge
		err := g.view(func(txn *badger.Txn) error {
			ok, err := hasKey(txn, edgeKey(prefixEdge, id, 0))
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
			opts := badger.DefaultIteratorOptions
			opts.Prefix = srcPrefix(prefixInEdge, id)
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				_, s := decodeEdgeKey(it.Item().Key())
				e := Edge{Src: s, Dst: id}
				err := it.Item().Value(func(v []byte) error {
					var err error
					e.Weight, err = unpackEdgeValue(v)
					return err
				})
				if err != nil {
					return err
				}
				edges = append(edges, e)
			}
			return nil
		})
		return edges, err
	}
	ids, err := g.InNodeIDs(id)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(ids))
	err = g.view(func(txn *badger.Txn) error {
		for _, s := range ids {
			v, err := getValue(txn, edgeKey(prefixEdge, s, id))
			if err != nil {
				return err
			}
			w, err := unpackEdgeValue(v)
			if err != nil {
				return err
			}
			edges = append(edges, Edge{Src: s, Dst: id, Weight: w})
		}
		return nil
	})
	return edges, err
}

func (g *SplitEdgeKeyGraph) OutNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.OutNodeIDs(id))
}

func (g *SplitEdgeKeyGraph) InNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.InNodeIDs(id))
}

func (g *SplitEdgeKeyGraph) nodesByID(ids []NodeID, err error) ([]Node, error) {
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		n, err := g.GetNode(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (g *SplitEdgeKeyGraph) RandomNode() (Node, error) {
	var n Node
	err := g.view(func(txn *badger.Txn) error {
		id, err := randomSeekID(g.engine)
		if err != nil {
			return err
		}
		found, err := seekEKeyNodeRow(txn, id)
		if err != nil {
			return err
		}
		n.ID = found
		v, err := getValue(txn, edgeKey(prefixEdge, found, 0))
		if err != nil {
			return err
		}
		n.InDegree, n.OutDegree, err = unpackDegrees(v)
		return err
	})
	return n, err
}

func (g *SplitEdgeKeyGraph) NumNodes() int64 { return g.engine.NumNodes() }
func (g *SplitEdgeKeyGraph) NumEdges() int64 { return g.engine.NumEdges() }

func (g *SplitEdgeKeyGraph) NodeIter() (NodeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyNodeCursor(&g.baseGraph, true), nil
}

func (g *SplitEdgeKeyGraph) EdgeIter() (EdgeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyEdgeCursor(&g.baseGraph, prefixEdge), nil
}

func (g *SplitEdgeKeyGraph) OutNbdIter() (OutCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyOutCursor(&g.baseGraph), nil
}

func (g *SplitEdgeKeyGraph) InNbdIter() (InCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	if g.opts.IsDirected {
		return newEKeyInCursor(&g.baseGraph, prefixInEdge), nil
	}
	// Undirected mirror rows are out rows; the unified grouped scan is the
	// in view as well.
	return newGroupScanCursor(&g.baseGraph, prefixEdge, true), nil
}

func (g *SplitEdgeKeyGraph) Close() error {
	g.closeBase()
	return nil
}
