package graph

// Cursors over the edge-key family. The unified table interleaves node rows
// with edge rows, so neighborhood cursors synthesize adjacency lists by
// coalescing consecutive rows that share a first key component; the (dst,
// src) index plays the same trick for the in direction.

// ekeyNodeCursor walks the (0, id) index entries, i.e. the node list.
// When projected is true the index value carries the degree tuple
// (SplitEdgeKey); otherwise degrees come from the base node row.
type ekeyNodeCursor struct {
	kv        *kvCursor
	projected bool
	rng       KeyRange
}

func newEKeyNodeCursor(g *baseGraph, projected bool) *ekeyNodeCursor {
	c := &ekeyNodeCursor{
		kv:        newKVCursor(g.db, g.snap, prefixDstSrc, projected),
		projected: projected,
	}
	c.rng = fullNodeRange()
	c.applyRange()
	return c
}

func (c *ekeyNodeCursor) applyRange() {
	start := edgeKey(prefixDstSrc, 0, c.rng.Start)
	end := edgeKey(prefixDstSrc, 0, c.rng.End)
	c.kv.setRange(start, end)
}

func (c *ekeyNodeCursor) SetKeyRange(r KeyRange) error {
	c.rng = r
	c.applyRange()
	return nil
}

func (c *ekeyNodeCursor) Next(out *Node) error {
	if !c.kv.advance() {
		out.ID = OutOfBandID
		return nil
	}
	_, id := decodeEdgeKey(c.kv.key())
	out.ID = id
	if c.projected {
		v, err := c.kv.value()
		if err != nil {
			return err
		}
		out.InDegree, out.OutDegree, err = unpackDegrees(v)
		return err
	}
	v, err := getValue(c.kv.txn, edgeKey(prefixEdge, id, 0))
	if err != nil {
		return err
	}
	out.InDegree, out.OutDegree, err = unpackDegrees(v)
	return err
}

func (c *ekeyNodeCursor) Reset() error {
	c.kv.reset()
	return nil
}

func (c *ekeyNodeCursor) Close() { c.kv.close() }

// ekeyEdgeCursor walks a composite-key table, skipping node rows.
type ekeyEdgeCursor struct {
	kv    *kvCursor
	table byte
}

func newEKeyEdgeCursor(g *baseGraph, table byte) *ekeyEdgeCursor {
	c := &ekeyEdgeCursor{kv: newKVCursor(g.db, g.snap, table, true), table: table}
	start, end := edgeRangeKeys(table, fullEdgeRange())
	c.kv.setRange(start, end)
	return c
}

func (c *ekeyEdgeCursor) SetKeyRange(r EdgeRange) error {
	start, end := edgeRangeKeys(c.table, r)
	c.kv.setRange(start, end)
	return nil
}

func (c *ekeyEdgeCursor) Next(out *Edge) error {
	for c.kv.advance() {
		src, dst := decodeEdgeKey(c.kv.key())
		if dst == 0 {
			continue // node row
		}
		out.Src, out.Dst = src, dst
		v, err := c.kv.value()
		if err != nil {
			return err
		}
		out.Weight, err = unpackEdgeValue(v)
		return err
	}
	out.Src, out.Dst = OutOfBandID, OutOfBandID
	return nil
}

func (c *ekeyEdgeCursor) Reset() error {
	c.kv.reset()
	return nil
}

func (c *ekeyEdgeCursor) Close() { c.kv.close() }

// groupScanCursor coalesces consecutive composite keys sharing a first
// component into one adjacency list. With headerRows set, (id, 0) rows open
// a group even when no edges follow, which is what makes all-nodes mode
// work on the unified table.
type groupScanCursor struct {
	kv         *kvCursor
	table      byte
	headerRows bool
	allNodes   bool
	rng        KeyRange

	haveRow  bool
	rowFirst NodeID
	rowSec   NodeID

	groupOpen bool
	groupID   NodeID
	groupIDs  []NodeID
}

func newGroupScanCursor(g *baseGraph, table byte, headerRows bool) *groupScanCursor {
	c := &groupScanCursor{
		kv:         newKVCursor(g.db, g.snap, table, false),
		table:      table,
		headerRows: headerRows,
	}
	c.rng = fullNodeRange()
	c.applyRange()
	return c
}

func (c *groupScanCursor) applyRange() {
	start := edgeKey(c.table, c.rng.Start, 0)
	end := edgeKey(c.table, c.rng.End, OutOfBandID)
	c.kv.setRange(start, end)
	c.haveRow = false
	c.groupOpen = false
	c.groupIDs = nil
}

func (c *groupScanCursor) SetKeyRange(r KeyRange) error {
	c.rng = r
	c.applyRange()
	return nil
}

func (c *groupScanCursor) IncludeAllNodes(yes bool) { c.allNodes = yes }

// emit fills out from the open group and clears it.
func (c *groupScanCursor) emit(out *AdjacencyList) {
	out.NodeID = c.groupID
	out.Degree = Degree(len(c.groupIDs))
	out.Edgelist = c.groupIDs
	c.groupOpen = false
	c.groupIDs = nil
}

func (c *groupScanCursor) Next(out *AdjacencyList) error {
	for {
		if !c.haveRow {
			if !c.kv.advance() {
				if c.groupOpen && (len(c.groupIDs) > 0 || c.allNodes) {
					c.emit(out)
					return nil
				}
				out.NodeID = OutOfBandID
				out.Degree = 0
				out.Edgelist = nil
				return nil
			}
			c.rowFirst, c.rowSec = decodeEdgeKey(c.kv.key())
			c.haveRow = true
		}
		if !c.headerRows && c.rowFirst == 0 {
			// Index node entries (0, id); not neighborhood data.
			c.haveRow = false
			continue
		}
		if !c.groupOpen {
			c.groupOpen = true
			c.groupID = c.rowFirst
		}
		if c.rowFirst == c.groupID {
			if c.rowSec != 0 {
				c.groupIDs = append(c.groupIDs, c.rowSec)
			}
			c.haveRow = false
			continue
		}
		// A new first component begins; the open group is complete.
		if len(c.groupIDs) > 0 || c.allNodes {
			c.emit(out)
			return nil
		}
		c.groupOpen = false
		c.groupIDs = nil
	}
}

func (c *groupScanCursor) Reset() error {
	c.applyRange()
	return nil
}

func (c *groupScanCursor) Close() { c.kv.close() }

// newEKeyOutCursor groups the unified table by source.
func newEKeyOutCursor(g *baseGraph) OutCursor {
	return newGroupScanCursor(g, prefixEdge, true)
}

// ekeyInCursor groups the (dst, src) index by destination. Zero-degree
// nodes never appear in the index, so all-nodes mode merges the grouped
// scan with the node list at index prefix (0, *).
type ekeyInCursor struct {
	groups  *groupScanCursor
	nodes   *kvCursor
	rng     KeyRange
	allMode bool

	haveGroup bool
	group     AdjacencyList
}

// newEKeyInCursor builds an in-neighborhood cursor whose groups come from
// groupTable: the (dst,src) index for the unified representation, the
// in-edges table for the split one. The node list always comes from the
// index's (0, *) prefix.
func newEKeyInCursor(g *baseGraph, groupTable byte) *ekeyInCursor {
	c := &ekeyInCursor{
		groups: newGroupScanCursor(g, groupTable, false),
		nodes:  newKVCursor(g.db, g.snap, prefixDstSrc, false),
	}
	c.rng = fullNodeRange()
	c.applyRange()
	return c
}

func (c *ekeyInCursor) applyRange() {
	r := c.rng
	if r.Start == 0 {
		r.Start = 1 // index groups start past the node-list prefix
	}
	_ = c.groups.SetKeyRange(r)
	c.nodes.setRange(edgeKey(prefixDstSrc, 0, c.rng.Start), edgeKey(prefixDstSrc, 0, c.rng.End))
	c.haveGroup = false
}

func (c *ekeyInCursor) SetKeyRange(r KeyRange) error {
	c.rng = r
	c.applyRange()
	return nil
}

func (c *ekeyInCursor) IncludeAllNodes(yes bool) {
	c.allMode = yes
}

func (c *ekeyInCursor) Next(out *AdjacencyList) error {
	if !c.allMode {
		return c.groups.Next(out)
	}
	// Merge: node IDs drive the iteration; matching groups supply lists.
	if !c.haveGroup {
		if err := c.groups.Next(&c.group); err != nil {
			return err
		}
		c.haveGroup = true
	}
	if !c.nodes.advance() {
		out.NodeID = OutOfBandID
		out.Degree = 0
		out.Edgelist = nil
		return nil
	}
	_, id := decodeEdgeKey(c.nodes.key())
	if c.group.NodeID == id {
		*out = c.group
		c.haveGroup = false
		return nil
	}
	out.NodeID = id
	out.Degree = 0
	out.Edgelist = nil
	return nil
}

func (c *ekeyInCursor) Reset() error {
	c.applyRange()
	return nil
}

func (c *ekeyInCursor) Close() {
	c.groups.Close()
	c.nodes.close()
}
