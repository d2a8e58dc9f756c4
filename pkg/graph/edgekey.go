package graph

import (
	"github.com/dgraph-io/badger/v4"
)

// EdgeKeyGraph is the unified edge-key representation. One key space holds
// both kinds of record:
//
//	(id, 0)   node row, value (in_degree, out_degree)
//	(src,dst) edge row, value (weight, edge marker)
//
// All rows for a source are contiguous in key order, the node row first. A
// (dst, src) secondary index serves in-neighborhood scans; its (0, id)
// entries double as the node enumeration.
type EdgeKeyGraph struct {
	baseGraph
}

func newEdgeKey(base baseGraph) *EdgeKeyGraph {
	return &EdgeKeyGraph{baseGraph: base}
}

// maintainIndex reports whether writes keep the (dst,src) index in
// lockstep. False while index creation is deferred for bulk load.
func (g *EdgeKeyGraph) maintainIndex() bool {
	return !g.opts.OptimizeCreate
}

// putNodeRow writes the (id, 0) row and its index entry.
func (g *EdgeKeyGraph) putNodeRow(txn *badger.Txn, n Node) error {
	if err := txn.Set(edgeKey(prefixEdge, n.ID, 0), packDegrees(n.InDegree, n.OutDegree)); err != nil {
		return err
	}
	if g.maintainIndex() {
		return txn.Set(edgeKey(prefixDstSrc, 0, n.ID), nil)
	}
	return nil
}

func (g *EdgeKeyGraph) ensureNode(txn *badger.Txn, id NodeID, res *writeResult) error {
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

// addDegrees is the compare-and-update of a node row's degrees inside the
// edge-insert transaction.
func (g *EdgeKeyGraph) addDegrees(txn *badger.Txn, id NodeID, dIn, dOut int) error {
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
	return txn.Set(edgeKey(prefixEdge, id, 0), packDegrees(Degree(int(in)+dIn), Degree(int(out)+dOut)))
}

func (g *EdgeKeyGraph) AddNode(n Node) error {
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

func (g *EdgeKeyGraph) GetNode(id NodeID) (Node, error) {
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

func (g *EdgeKeyGraph) HasNode(id NodeID) (bool, error) {
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

func (g *EdgeKeyGraph) AddEdge(e Edge) error {
	if !validID(e.Src) || !validID(e.Dst) {
		return ErrInvalidID
	}
	if !g.opts.IsWeighted {
		e.Weight = 0
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		fwd := edgeKey(prefixEdge, e.Src, e.Dst)
		ok, err := hasKey(txn, fwd)
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
		if err := txn.Set(fwd, packEdgeValue(e.Weight)); err != nil {
			return err
		}
		if g.maintainIndex() {
			if err := txn.Set(edgeKey(prefixDstSrc, e.Dst, e.Src), nil); err != nil {
				return err
			}
		}
		if err := g.addDegrees(txn, e.Src, 0, 1); err != nil {
			return err
		}
		if err := g.addDegrees(txn, e.Dst, 1, 0); err != nil {
			return err
		}
		res.newEdges = 1

		if !g.opts.IsDirected && e.Src != e.Dst {
			rev := edgeKey(prefixEdge, e.Dst, e.Src)
			if err := txn.Set(rev, packEdgeValue(e.Weight)); err != nil {
				return err
			}
			if g.maintainIndex() {
				if err := txn.Set(edgeKey(prefixDstSrc, e.Src, e.Dst), nil); err != nil {
					return err
				}
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

func (g *EdgeKeyGraph) GetEdge(src, dst NodeID) (Edge, error) {
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

func (g *EdgeKeyGraph) HasEdge(src, dst NodeID) (bool, error) {
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

func (g *EdgeKeyGraph) DeleteEdge(src, dst NodeID) error {
	if !validID(src) || !validID(dst) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		fwd := edgeKey(prefixEdge, src, dst)
		ok, err := hasKey(txn, fwd)
		if err != nil {
			return err
		}
		if !ok {
			return nil // tolerated absence
		}
		if err := txn.Delete(fwd); err != nil {
			return err
		}
		if g.maintainIndex() {
			if err := txn.Delete(edgeKey(prefixDstSrc, dst, src)); err != nil {
				return err
			}
		}
		if err := g.addDegrees(txn, src, 0, -1); err != nil {
			return err
		}
		if err := g.addDegrees(txn, dst, -1, 0); err != nil {
			return err
		}
		res.removedEdges = 1

		if !g.opts.IsDirected && src != dst {
			rev := edgeKey(prefixEdge, dst, src)
			ok, err := hasKey(txn, rev)
			if err != nil {
				return err
			}
			if ok {
				if err := txn.Delete(rev); err != nil {
					return err
				}
				if g.maintainIndex() {
					if err := txn.Delete(edgeKey(prefixDstSrc, src, dst)); err != nil {
						return err
					}
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

// scanKeys collects the composite keys under a prefix. Keys are gathered
// before any deletion so the sweep never races its own iterator.
func scanKeys(txn *badger.Txn, table byte, first NodeID) ([]KeyPair, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = srcPrefix(table, first)
	it := txn.NewIterator(opts)
	defer it.Close()

	var pairs []KeyPair
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		a, b := decodeEdgeKey(it.Item().Key())
		pairs = append(pairs, KeyPair{Src: a, Dst: b})
	}
	return pairs, nil
}

func (g *EdgeKeyGraph) DeleteNode(id NodeID) error {
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

		// Out sweep: every row rooted at id, node row included.
		rooted, err := scanKeys(txn, prefixEdge, id)
		if err != nil {
			return err
		}
		for _, p := range rooted {
			if err := txn.Delete(edgeKey(prefixEdge, p.Src, p.Dst)); err != nil {
				return err
			}
			if p.Dst == 0 {
				continue // the node row itself
			}
			if g.maintainIndex() {
				if err := txn.Delete(edgeKey(prefixDstSrc, p.Dst, p.Src)); err != nil {
					return err
				}
			}
			res.removedEdges++
			if p.Dst != id {
				if err := g.addDegrees(txn, p.Dst, -1, 0); err != nil {
					return err
				}
			}
		}

		// In sweep: edges pointing at id, found through the index.
		incoming, err := scanKeys(txn, prefixDstSrc, id)
		if err != nil {
			return err
		}
		for _, p := range incoming {
			s := p.Dst // index key is (dst, src)
			if s == id {
				continue // self loop handled by the out sweep
			}
			if err := txn.Delete(edgeKey(prefixEdge, s, id)); err != nil {
				return err
			}
			if err := txn.Delete(edgeKey(prefixDstSrc, id, s)); err != nil {
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

func (g *EdgeKeyGraph) OutDegree(id NodeID) (Degree, error) {
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

func (g *EdgeKeyGraph) InDegree(id NodeID) (Degree, error) {
	if g.opts.ReadOptimize {
		n, err := g.GetNode(id)
		if err != nil {
			return 0, fatalf("degree query on missing node %d: %w", id, err)
		}
		return n.InDegree, nil
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
		pairs, err := scanKeys(txn, prefixDstSrc, id)
		if err != nil {
			return err
		}
		deg = Degree(len(pairs))
		return nil
	})
	return deg, err
}

func (g *EdgeKeyGraph) Nodes() ([]Node, error) {
	var nodes []Node
	err := g.view(func(txn *badger.Txn) error {
		if g.maintainIndex() {
			ids, err := scanKeys(txn, prefixDstSrc, 0)
			if err != nil {
				return err
			}
			for _, p := range ids {
				v, err := getValue(txn, edgeKey(prefixEdge, p.Dst, 0))
				if err != nil {
					return err
				}
				n := Node{ID: p.Dst}
				if n.InDegree, n.OutDegree, err = unpackDegrees(v); err != nil {
					return err
				}
				nodes = append(nodes, n)
			}
			return nil
		}
		// No index yet: harvest node rows from the base table.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(prefixEdge)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			id, dst := decodeEdgeKey(it.Item().Key())
			if dst != 0 {
				continue
			}
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

func (g *EdgeKeyGraph) Edges() ([]Edge, error) {
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

func (g *EdgeKeyGraph) OutNodeIDs(id NodeID) ([]NodeID, error) {
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

func (g *EdgeKeyGraph) InNodeIDs(id NodeID) ([]NodeID, error) {
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
		pairs, err := scanKeys(txn, prefixDstSrc, id)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			ids = append(ids, p.Dst) // index key is (dst, src)
		}
		return nil
	})
	return ids, err
}

func (g *EdgeKeyGraph) OutEdges(id NodeID) ([]Edge, error) {
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

func (g *EdgeKeyGraph) InEdges(id NodeID) ([]Edge, error) {
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

func (g *EdgeKeyGraph) OutNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.OutNodeIDs(id))
}

func (g *EdgeKeyGraph) InNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.InNodeIDs(id))
}

func (g *EdgeKeyGraph) nodesByID(ids []NodeID, err error) ([]Node, error) {
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

func (g *EdgeKeyGraph) RandomNode() (Node, error) {
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

// seekEKeyNodeRow finds the first node row at or after id in the unified
// table, wrapping to the start when the seek runs off the end.
func seekEKeyNodeRow(txn *badger.Txn, id NodeID) (NodeID, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = tablePrefix(prefixEdge)
	it := txn.NewIterator(opts)
	defer it.Close()

	for pass := 0; pass < 2; pass++ {
		if pass == 0 {
			it.Seek(edgeKey(prefixEdge, id, 0))
		} else {
			it.Seek(opts.Prefix)
		}
		for ; it.ValidForPrefix(opts.Prefix); it.Next() {
			nid, dst := decodeEdgeKey(it.Item().Key())
			if dst == 0 {
				return nid, nil
			}
		}
	}
	return 0, ErrNotFound
}

func (g *EdgeKeyGraph) NumNodes() int64 { return g.engine.NumNodes() }
func (g *EdgeKeyGraph) NumEdges() int64 { return g.engine.NumEdges() }

func (g *EdgeKeyGraph) NodeIter() (NodeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyNodeCursor(&g.baseGraph, false), nil
}

func (g *EdgeKeyGraph) EdgeIter() (EdgeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyEdgeCursor(&g.baseGraph, prefixEdge), nil
}

func (g *EdgeKeyGraph) OutNbdIter() (OutCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyOutCursor(&g.baseGraph), nil
}

func (g *EdgeKeyGraph) InNbdIter() (InCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newEKeyInCursor(&g.baseGraph, prefixDstSrc), nil
}

func (g *EdgeKeyGraph) Close() error {
	g.closeBase()
	return nil
}
