package graph

import (
	"github.com/dgraph-io/badger/v4"
)

// AdjListGraph is the adjacency-list representation. Four key spaces:
//
//	node:       id -> (in_degree, out_degree) when read-optimized, else empty
//	adjlistout: id -> (degree, neighbor blob)
//	adjlistin:  id -> (degree, neighbor blob)
//	edge:       (src, dst) -> weight (pad byte when unweighted)
//
// Every node always has both adjacency rows, possibly empty. Blob appends
// are read-modify-write of the whole blob and keep destinations ascending;
// the payoff is a single sequential read to recover an entire neighborhood.
type AdjListGraph struct {
	baseGraph
}

func newAdjList(base baseGraph) *AdjListGraph {
	return &AdjListGraph{baseGraph: base}
}

// putNodeRows writes a fresh node row plus its two empty adjacency rows.
func (g *AdjListGraph) putNodeRows(txn *badger.Txn, n Node) error {
	var val []byte
	if g.opts.ReadOptimize {
		val = packDegrees(n.InDegree, n.OutDegree)
	}
	if err := txn.Set(nodeKey(prefixNode, n.ID), val); err != nil {
		return err
	}
	if err := txn.Set(nodeKey(prefixOutAdj, n.ID), packAdjacency(nil)); err != nil {
		return err
	}
	return txn.Set(nodeKey(prefixInAdj, n.ID), packAdjacency(nil))
}

// ensureNode materializes id if absent, tallying the creation in res.
func (g *AdjListGraph) ensureNode(txn *badger.Txn, id NodeID, res *writeResult) error {
	ok, err := hasKey(txn, nodeKey(prefixNode, id))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := g.putNodeRows(txn, Node{ID: id}); err != nil {
		return err
	}
	res.newNodes++
	return nil
}

// addDegrees adjusts a node row's persisted degrees. No-op unless the graph
// is read-optimized. Underflow is an invariant violation.
func (g *AdjListGraph) addDegrees(txn *badger.Txn, id NodeID, dIn, dOut int) error {
	if !g.opts.ReadOptimize || (dIn == 0 && dOut == 0) {
		return nil
	}
	v, err := getValue(txn, nodeKey(prefixNode, id))
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
	return txn.Set(nodeKey(prefixNode, id), packDegrees(Degree(int(in)+dIn), Degree(int(out)+dOut)))
}

// blobAppend inserts peer into id's adjacency blob in the given table,
// preserving ascending order. Reports whether the blob changed.
func (g *AdjListGraph) blobAppend(txn *badger.Txn, table byte, id, peer NodeID) (bool, error) {
	v, err := getValue(txn, nodeKey(table, id))
	if err != nil {
		return false, err
	}
	ids, err := unpackAdjacency(v)
	if err != nil {
		return false, err
	}
	ids, added := insertSorted(ids, peer)
	if !added {
		return false, nil
	}
	return true, txn.Set(nodeKey(table, id), packAdjacency(ids))
}

// blobRemove drops peer from id's adjacency blob. Tolerates both a missing
// blob and an absent peer.
func (g *AdjListGraph) blobRemove(txn *badger.Txn, table byte, id, peer NodeID) error {
	v, err := getValue(txn, nodeKey(table, id))
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	ids, err := unpackAdjacency(v)
	if err != nil {
		return err
	}
	ids, removed := removeSorted(ids, peer)
	if !removed {
		return nil
	}
	return txn.Set(nodeKey(table, id), packAdjacency(ids))
}

func (g *AdjListGraph) AddNode(n Node) error {
	if !validID(n.ID) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		ok, err := hasKey(txn, nodeKey(prefixNode, n.ID))
		if err != nil {
			return err
		}
		if ok {
			return ErrDuplicateKey
		}
		if err := g.putNodeRows(txn, n); err != nil {
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

func (g *AdjListGraph) GetNode(id NodeID) (Node, error) {
	if !validID(id) {
		return Node{}, ErrInvalidID
	}
	var n Node
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, nodeKey(prefixNode, id))
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

func (g *AdjListGraph) HasNode(id NodeID) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	err := g.view(func(txn *badger.Txn) error {
		var err error
		ok, err = hasKey(txn, nodeKey(prefixNode, id))
		return err
	})
	return ok, err
}

func (g *AdjListGraph) AddEdge(e Edge) error {
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

		if err := txn.Set(fwd, packWeight(g.opts.IsWeighted, e.Weight)); err != nil {
			return err
		}
		if _, err := g.blobAppend(txn, prefixOutAdj, e.Src, e.Dst); err != nil {
			return err
		}
		if _, err := g.blobAppend(txn, prefixInAdj, e.Dst, e.Src); err != nil {
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
			rev := edgeKey(prefixEdge, e.Dst, e.Src)
			if err := txn.Set(rev, packWeight(g.opts.IsWeighted, e.Weight)); err != nil {
				return err
			}
			if _, err := g.blobAppend(txn, prefixOutAdj, e.Dst, e.Src); err != nil {
				return err
			}
			if _, err := g.blobAppend(txn, prefixInAdj, e.Src, e.Dst); err != nil {
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

func (g *AdjListGraph) GetEdge(src, dst NodeID) (Edge, error) {
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
		e.Weight, err = unpackWeight(v)
		return err
	})
	if err != nil {
		return Edge{}, err
	}
	return e, nil
}

func (g *AdjListGraph) HasEdge(src, dst NodeID) (bool, error) {
	var ok bool
	err := g.view(func(txn *badger.Txn) error {
		var err error
		ok, err = hasKey(txn, edgeKey(prefixEdge, src, dst))
		return err
	})
	return ok, err
}

func (g *AdjListGraph) DeleteEdge(src, dst NodeID) error {
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
		if err := g.blobRemove(txn, prefixOutAdj, src, dst); err != nil {
			return err
		}
		if err := g.blobRemove(txn, prefixInAdj, dst, src); err != nil {
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
			rev := edgeKey(prefixEdge, dst, src)
			ok, err := hasKey(txn, rev)
			if err != nil {
				return err
			}
			if ok {
				if err := txn.Delete(rev); err != nil {
					return err
				}
				if err := g.blobRemove(txn, prefixOutAdj, dst, src); err != nil {
					return err
				}
				if err := g.blobRemove(txn, prefixInAdj, src, dst); err != nil {
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

func (g *AdjListGraph) DeleteNode(id NodeID) error {
	if !validID(id) {
		return ErrInvalidID
	}
	var res writeResult
	err := g.update(func(txn *badger.Txn) error {
		res = writeResult{}
		outV, err := getValue(txn, nodeKey(prefixOutAdj, id))
		if err != nil {
			return err // ErrNotFound: node does not exist
		}
		outIDs, err := unpackAdjacency(outV)
		if err != nil {
			return err
		}
		inV, err := getValue(txn, nodeKey(prefixInAdj, id))
		if err != nil {
			return err
		}
		inIDs, err := unpackAdjacency(inV)
		if err != nil {
			return err
		}

		for _, d := range outIDs {
			if err := txn.Delete(edgeKey(prefixEdge, id, d)); err != nil {
				return err
			}
			res.removedEdges++
			if d == id {
				continue
			}
			if err := g.blobRemove(txn, prefixInAdj, d, id); err != nil {
				return err
			}
			if err := g.addDegrees(txn, d, -1, 0); err != nil {
				return err
			}
		}
		for _, s := range inIDs {
			if s == id {
				continue // self loop already handled above
			}
			if err := txn.Delete(edgeKey(prefixEdge, s, id)); err != nil {
				return err
			}
			res.removedEdges++
			if err := g.blobRemove(txn, prefixOutAdj, s, id); err != nil {
				return err
			}
			if err := g.addDegrees(txn, s, 0, -1); err != nil {
				return err
			}
		}

		if err := txn.Delete(nodeKey(prefixNode, id)); err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(prefixOutAdj, id)); err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(prefixInAdj, id)); err != nil {
			return err
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

func (g *AdjListGraph) OutDegree(id NodeID) (Degree, error) {
	if g.opts.ReadOptimize {
		n, err := g.GetNode(id)
		if err != nil {
			return 0, fatalf("degree query on missing node %d: %w", id, err)
		}
		return n.OutDegree, nil
	}
	var deg Degree
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, nodeKey(prefixOutAdj, id))
		if err != nil {
			return fatalf("degree query on missing node %d: %w", id, err)
		}
		deg, err = adjacencyDegree(v)
		return err
	})
	return deg, err
}

func (g *AdjListGraph) InDegree(id NodeID) (Degree, error) {
	if g.opts.ReadOptimize {
		n, err := g.GetNode(id)
		if err != nil {
			return 0, fatalf("degree query on missing node %d: %w", id, err)
		}
		return n.InDegree, nil
	}
	var deg Degree
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, nodeKey(prefixInAdj, id))
		if err != nil {
			return fatalf("degree query on missing node %d: %w", id, err)
		}
		deg, err = adjacencyDegree(v)
		return err
	})
	return deg, err
}

func (g *AdjListGraph) Nodes() ([]Node, error) {
	var nodes []Node
	err := g.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(prefixNode)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			n := Node{ID: decodeNodeKey(it.Item().Key())}
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

func (g *AdjListGraph) Edges() ([]Edge, error) {
	var edges []Edge
	err := g.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = tablePrefix(prefixEdge)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			src, dst := decodeEdgeKey(it.Item().Key())
			e := Edge{Src: src, Dst: dst}
			err := it.Item().Value(func(v []byte) error {
				var err error
				e.Weight, err = unpackWeight(v)
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

// adjacencyIDs reads one adjacency blob.
func (g *AdjListGraph) adjacencyIDs(table byte, id NodeID) ([]NodeID, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	var ids []NodeID
	err := g.view(func(txn *badger.Txn) error {
		v, err := getValue(txn, nodeKey(table, id))
		if err != nil {
			return err
		}
		ids, err = unpackAdjacency(v)
		return err
	})
	return ids, err
}

func (g *AdjListGraph) OutNodeIDs(id NodeID) ([]NodeID, error) {
	return g.adjacencyIDs(prefixOutAdj, id)
}

func (g *AdjListGraph) InNodeIDs(id NodeID) ([]NodeID, error) {
	return g.adjacencyIDs(prefixInAdj, id)
}

func (g *AdjListGraph) OutEdges(id NodeID) ([]Edge, error) {
	ids, err := g.OutNodeIDs(id)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(ids))
	err = g.view(func(txn *badger.Txn) error {
		for _, d := range ids {
			e := Edge{Src: id, Dst: d}
			if g.opts.IsWeighted {
				v, err := getValue(txn, edgeKey(prefixEdge, id, d))
				if err != nil {
					return err
				}
				if e.Weight, err = unpackWeight(v); err != nil {
					return err
				}
			}
			edges = append(edges, e)
		}
		return nil
	})
	return edges, err
}

func (g *AdjListGraph) InEdges(id NodeID) ([]Edge, error) {
	ids, err := g.InNodeIDs(id)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(ids))
	err = g.view(func(txn *badger.Txn) error {
		for _, s := range ids {
			e := Edge{Src: s, Dst: id}
			if g.opts.IsWeighted {
				v, err := getValue(txn, edgeKey(prefixEdge, s, id))
				if err != nil {
					return err
				}
				if e.Weight, err = unpackWeight(v); err != nil {
					return err
				}
			}
			edges = append(edges, e)
		}
		return nil
	})
	return edges, err
}

func (g *AdjListGraph) OutNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.OutNodeIDs(id))
}

func (g *AdjListGraph) InNodes(id NodeID) ([]Node, error) {
	return g.nodesByID(g.InNodeIDs(id))
}

func (g *AdjListGraph) nodesByID(ids []NodeID, err error) ([]Node, error) {
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

func (g *AdjListGraph) RandomNode() (Node, error) {
	var n Node
	err := g.view(func(txn *badger.Txn) error {
		id, err := randomSeekID(g.engine)
		if err != nil {
			return err
		}
		key, err := seekNodeRow(txn, prefixNode, id)
		if err != nil {
			return err
		}
		n.ID = decodeNodeKey(key)
		v, err := getValue(txn, key)
		if err != nil {
			return err
		}
		n.InDegree, n.OutDegree, err = unpackDegrees(v)
		return err
	})
	return n, err
}

func (g *AdjListGraph) NumNodes() int64 { return g.engine.NumNodes() }
func (g *AdjListGraph) NumEdges() int64 { return g.engine.NumEdges() }

func (g *AdjListGraph) NodeIter() (NodeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newAdjNodeCursor(g), nil
}

func (g *AdjListGraph) EdgeIter() (EdgeCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newAdjEdgeCursor(g), nil
}

func (g *AdjListGraph) OutNbdIter() (OutCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newAdjNbdCursor(g, prefixOutAdj), nil
}

func (g *AdjListGraph) InNbdIter() (InCursor, error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	return newAdjNbdCursor(g, prefixInAdj), nil
}

func (g *AdjListGraph) Close() error {
	g.closeBase()
	return nil
}
