//go:build graphid64

package graph

import (
	"encoding/binary"
	"math"
)

// NodeID identifies a node. This is the 64-bit variant selected by the
// graphid64 build tag.
type NodeID uint64

const (
	// idBytes is the encoded width of a NodeID in keys and blobs.
	idBytes = 8

	// OutOfBandID is the max-sentinel. It marks end-of-iteration and
	// absent-value conditions and is never a valid node ID.
	OutOfBandID NodeID = math.MaxUint64
)

// putID writes id big-endian so lexicographic key order is ID order.
func putID(b []byte, id NodeID) {
	binary.BigEndian.PutUint64(b, uint64(id))
}

// getID reverses putID.
func getID(b []byte) NodeID {
	return NodeID(binary.BigEndian.Uint64(b))
}

// putIDRaw writes id in blob element order (little-endian, the layout used
// inside adjacency blobs).
func putIDRaw(b []byte, id NodeID) {
	binary.LittleEndian.PutUint64(b, uint64(id))
}

// getIDRaw reverses putIDRaw.
func getIDRaw(b []byte) NodeID {
	return NodeID(binary.LittleEndian.Uint64(b))
}
