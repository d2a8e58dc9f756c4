//go:build !graphid64

package graph

import (
	"encoding/binary"
	"math"
)

// NodeID identifies a node. The default build uses 32-bit IDs; build with
// -tags graphid64 for the 64-bit variant.
type NodeID uint32

const (
	// idBytes is the encoded width of a NodeID in keys and blobs.
	idBytes = 4

	// OutOfBandID is the max-sentinel. It marks end-of-iteration and
	// absent-value conditions and is never a valid node ID.
	OutOfBandID NodeID = math.MaxUint32
)

// putID writes id big-endian so lexicographic key order is ID order.
func putID(b []byte, id NodeID) {
	binary.BigEndian.PutUint32(b, uint32(id))
}

// getID reverses putID.
func getID(b []byte) NodeID {
	return NodeID(binary.BigEndian.Uint32(b))
}

// putIDRaw writes id in blob element order (little-endian, the layout used
// inside adjacency blobs).
func putIDRaw(b []byte, id NodeID) {
	binary.LittleEndian.PutUint32(b, uint32(id))
}

// getIDRaw reverses putIDRaw.
func getIDRaw(b []byte) NodeID {
	return NodeID(binary.LittleEndian.Uint32(b))
}
