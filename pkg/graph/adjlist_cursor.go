package graph

// Cursors over the adjacency-list representation. The node and adjacency
// tables are keyed by a single node ID and the edge table by (src, dst); all
// four cursors are thin decoders over one bounded prefix scan.

type adjNodeCursor struct {
	kv *kvCursor
}

func newAdjNodeCursor(g *AdjListGraph) *adjNodeCursor {
	c := &adjNodeCursor{kv: newKVCursor(g.db, g.snap, prefixNode, true)}
	start, end := nodeRangeKeys(prefixNode, fullNodeRange())
	c.kv.setRange(start, end)
	return c
}

func (c *adjNodeCursor) SetKeyRange(r KeyRange) error {
	start, end := nodeRangeKeys(prefixNode, r)
	c.kv.setRange(start, end)
	return nil
}

func (c *adjNodeCursor) Next(out *Node) error {
	if !c.kv.advance() {
		out.ID = OutOfBandID
		return nil
	}
	out.ID = decodeNodeKey(c.kv.key())
	v, err := c.kv.value()
	if err != nil {
		return err
	}
	out.InDegree, out.OutDegree, err = unpackDegrees(v)
	return err
}

func (c *adjNodeCursor) Reset() error {
	c.kv.reset()
	return nil
}

func (c *adjNodeCursor) Close() { c.kv.close() }

type adjEdgeCursor struct {
	kv *kvCursor
}

func newAdjEdgeCursor(g *AdjListGraph) *adjEdgeCursor {
	c := &adjEdgeCursor{kv: newKVCursor(g.db, g.snap, prefixEdge, true)}
	start, end := edgeRangeKeys(prefixEdge, fullEdgeRange())
	c.kv.setRange(start, end)
	return c
}

func (c *adjEdgeCursor) SetKeyRange(r EdgeRange) error {
	start, end := edgeRangeKeys(prefixEdge, r)
	c.kv.setRange(start, end)
	return nil
}

func (c *adjEdgeCursor) Next(out *Edge) error {
	if !c.kv.advance() {
		out.Src, out.Dst = OutOfBandID, OutOfBandID
		return nil
	}
	out.Src, out.Dst = decodeEdgeKey(c.kv.key())
	v, err := c.kv.value()
	if err != nil {
		return err
	}
	out.Weight, err = unpackWeight(v)
	return err
}

func (c *adjEdgeCursor) Reset() error {
	c.kv.reset()
	return nil
}

func (c *adjEdgeCursor) Close() { c.kv.close() }

// adjNbdCursor serves both neighborhood directions; the table prefix picks
// which. Each record is one adjacency row decoded whole.
type adjNbdCursor struct {
	kv       *kvCursor
	table    byte
	allNodes bool
}

func newAdjNbdCursor(g *AdjListGraph, table byte) *adjNbdCursor {
	c := &adjNbdCursor{kv: newKVCursor(g.db, g.snap, table, true), table: table}
	start, end := nodeRangeKeys(table, fullNodeRange())
	c.kv.setRange(start, end)
	return c
}

func (c *adjNbdCursor) SetKeyRange(r KeyRange) error {
	start, end := nodeRangeKeys(c.table, r)
	c.kv.setRange(start, end)
	return nil
}

func (c *adjNbdCursor) IncludeAllNodes(yes bool) { c.allNodes = yes }

func (c *adjNbdCursor) Next(out *AdjacencyList) error {
	for c.kv.advance() {
		v, err := c.kv.value()
		if err != nil {
			return err
		}
		ids, err := unpackAdjacency(v)
		if err != nil {
			return err
		}
		if len(ids) == 0 && !c.allNodes {
			continue
		}
		out.NodeID = decodeNodeKey(c.kv.key())
		out.Degree = Degree(len(ids))
		out.Edgelist = ids
		return nil
	}
	out.NodeID = OutOfBandID
	out.Degree = 0
	out.Edgelist = nil
	return nil
}

func (c *adjNbdCursor) Reset() error {
	c.kv.reset()
	return nil
}

func (c *adjNbdCursor) Close() { c.kv.close() }
