package graph

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Key-space prefixes. One Badger instance hosts all tables of a graph; a
// single leading byte namespaces each table so native ordered scans stay
// within one table. Only the prefixes of the chosen representation are ever
// populated.
const (
	prefixMetadata byte = 0x00 // metadata: metaKey -> bytes
	prefixNode     byte = 0x01 // adj node: id -> degrees (or empty)
	prefixOutAdj   byte = 0x02 // adj out-adjacency: id -> (degree, blob)
	prefixInAdj    byte = 0x03 // adj in-adjacency: id -> (degree, blob)
	prefixEdge     byte = 0x04 // adj edge / ekey unified / splitekey out_edges: (src,dst) -> value
	prefixInEdge   byte = 0x05 // splitekey in_edges: (dst,src) -> (weight, marker)
	prefixDstSrc   byte = 0x06 // ekey family secondary index: (dst,src) -> projection
)

// edgeValMarker is the fixed attr_second of edge rows in the EdgeKey family,
// distinguishing them from node rows on value inspection alone.
const edgeValMarker uint32 = math.MaxUint32

// Key components are serialized by big-endian byte swap of the host-native
// integer so the KV store's lexicographic scans yield ID-ascending order on
// any host. Composite keys concatenate such encodings.

// nodeKey builds a single-ID key under the given table prefix.
func nodeKey(table byte, id NodeID) []byte {
	k := make([]byte, 1+idBytes)
	k[0] = table
	putID(k[1:], id)
	return k
}

// edgeKey builds a composite (a, b) key under the given table prefix.
func edgeKey(table byte, a, b NodeID) []byte {
	k := make([]byte, 1+2*idBytes)
	k[0] = table
	putID(k[1:], a)
	putID(k[1+idBytes:], b)
	return k
}

// tablePrefix returns the one-byte scan prefix for a table.
func tablePrefix(table byte) []byte {
	return []byte{table}
}

// srcPrefix returns the scan prefix covering every composite key whose first
// component is id.
func srcPrefix(table byte, id NodeID) []byte {
	return nodeKey(table, id)
}

// decodeNodeKey extracts the ID from a single-ID key.
func decodeNodeKey(key []byte) NodeID {
	return getID(key[1:])
}

// decodeEdgeKey extracts both components from a composite key.
func decodeEdgeKey(key []byte) (a, b NodeID) {
	return getID(key[1:]), getID(key[1+idBytes:])
}

// packDegrees encodes the (in_degree, out_degree) tuple of a node row.
func packDegrees(in, out Degree) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint32(v[0:], in)
	binary.BigEndian.PutUint32(v[4:], out)
	return v
}

// unpackDegrees reverses packDegrees. An empty value (non-read-optimized
// node row) decodes as zero degrees.
func unpackDegrees(v []byte) (in, out Degree, err error) {
	if len(v) == 0 {
		return 0, 0, nil
	}
	if len(v) != 8 {
		return 0, 0, fmt.Errorf("graph: corrupt degree tuple of %d bytes", len(v))
	}
	return binary.BigEndian.Uint32(v[0:]), binary.BigEndian.Uint32(v[4:]), nil
}

// packEdgeValue encodes the (attr_first, attr_second) pair of an EdgeKey
// family edge row: the signed weight and the fixed edge marker.
func packEdgeValue(w Weight) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint32(v[0:], uint32(w))
	binary.BigEndian.PutUint32(v[4:], edgeValMarker)
	return v
}

// unpackEdgeValue reverses packEdgeValue.
func unpackEdgeValue(v []byte) (Weight, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("graph: corrupt edge value of %d bytes", len(v))
	}
	return Weight(binary.BigEndian.Uint32(v[0:])), nil
}

// isEdgeValue reports whether an EdgeKey family value carries the edge
// marker (as opposed to a node degree tuple).
func isEdgeValue(v []byte) bool {
	return len(v) == 8 && binary.BigEndian.Uint32(v[4:]) == edgeValMarker
}

// packWeight encodes the standalone weight value of an AdjList edge row.
// Unweighted graphs store a single pad byte.
func packWeight(weighted bool, w Weight) []byte {
	if !weighted {
		return []byte{0}
	}
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, uint32(w))
	return v
}

// unpackWeight reverses packWeight; the pad byte reads as zero.
func unpackWeight(v []byte) (Weight, error) {
	switch len(v) {
	case 1:
		return 0, nil
	case 4:
		return Weight(binary.BigEndian.Uint32(v)), nil
	default:
		return 0, fmt.Errorf("graph: corrupt weight value of %d bytes", len(v))
	}
}

// packAdjacency encodes an adjacency blob: a leading length (redundant with
// the array, kept for O(1) degree reads) followed by the neighbor IDs as a
// contiguous fixed-width array.
func packAdjacency(ids []NodeID) []byte {
	v := make([]byte, 4+len(ids)*idBytes)
	binary.BigEndian.PutUint32(v, uint32(len(ids)))
	for i, id := range ids {
		putIDRaw(v[4+i*idBytes:], id)
	}
	return v
}

// unpackAdjacency reverses packAdjacency. The element bytes are always
// copied out of the KV slice; alignment of the source is irrelevant.
func unpackAdjacency(v []byte) ([]NodeID, error) {
	if len(v) < 4 {
		return nil, fmt.Errorf("graph: corrupt adjacency blob of %d bytes", len(v))
	}
	n := int(binary.BigEndian.Uint32(v))
	if len(v) != 4+n*idBytes {
		return nil, fmt.Errorf("graph: adjacency blob length %d disagrees with payload of %d bytes", n, len(v)-4)
	}
	ids := make([]NodeID, n)
	for i := range ids {
		ids[i] = getIDRaw(v[4+i*idBytes:])
	}
	return ids, nil
}

// adjacencyDegree reads just the leading length of a blob.
func adjacencyDegree(v []byte) (Degree, error) {
	if len(v) < 4 {
		return 0, fmt.Errorf("graph: corrupt adjacency blob of %d bytes", len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

// insertSorted adds id to an ascending neighbor list, keeping order.
// Reports false when id is already present.
func insertSorted(ids []NodeID, id NodeID) ([]NodeID, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids, false
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids, true
}

// removeSorted drops id from an ascending neighbor list. Reports false when
// id is absent.
func removeSorted(ids []NodeID, id NodeID) ([]NodeID, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i == len(ids) || ids[i] != id {
		return ids, false
	}
	return append(ids[:i], ids[i+1:]...), true
}
