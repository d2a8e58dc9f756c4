package graph

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOrderMatchesIDOrder(t *testing.T) {
	// Big-endian key packing must make lexicographic byte order agree with
	// numeric ID order regardless of host endianness.
	ids := []NodeID{1, 2, 255, 256, 257, 65535, 65536, 1 << 20, OutOfBandID - 1}
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = nodeKey(prefixNode, id)
	}
	sorted := sort.SliceIsSorted(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	})
	assert.True(t, sorted)

	for i, id := range ids {
		assert.Equal(t, id, decodeNodeKey(keys[i]))
	}
}

func TestCompositeKeyOrder(t *testing.T) {
	pairs := []KeyPair{
		{Src: 1, Dst: 0}, {Src: 1, Dst: 3}, {Src: 1, Dst: 7},
		{Src: 2, Dst: 0}, {Src: 2, Dst: 3},
		{Src: 256, Dst: 1}, {Src: 256, Dst: 255},
	}
	var prev []byte
	for _, p := range pairs {
		k := edgeKey(prefixEdge, p.Src, p.Dst)
		if prev != nil {
			assert.Negative(t, bytes.Compare(prev, k), "keys out of order at (%d,%d)", p.Src, p.Dst)
		}
		a, b := decodeEdgeKey(k)
		assert.Equal(t, p.Src, a)
		assert.Equal(t, p.Dst, b)
		prev = k
	}
}

func TestDegreeTupleRoundTrip(t *testing.T) {
	in, out, err := unpackDegrees(packDegrees(7, 12))
	require.NoError(t, err)
	assert.Equal(t, Degree(7), in)
	assert.Equal(t, Degree(12), out)

	// Empty value: the non-read-optimized node row.
	in, out, err = unpackDegrees(nil)
	require.NoError(t, err)
	assert.Zero(t, in)
	assert.Zero(t, out)

	_, _, err = unpackDegrees([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEdgeValueRoundTrip(t *testing.T) {
	v := packEdgeValue(-5)
	assert.True(t, isEdgeValue(v))
	w, err := unpackEdgeValue(v)
	require.NoError(t, err)
	assert.Equal(t, Weight(-5), w)

	// A node row's degree tuple must never look like an edge value.
	assert.False(t, isEdgeValue(packDegrees(3, 4)))

	_, err = unpackEdgeValue([]byte{1})
	assert.Error(t, err)
}

func TestWeightValueRoundTrip(t *testing.T) {
	w, err := unpackWeight(packWeight(true, -42))
	require.NoError(t, err)
	assert.Equal(t, Weight(-42), w)

	// Unweighted graphs store a pad byte that reads as zero.
	w, err = unpackWeight(packWeight(false, 99))
	require.NoError(t, err)
	assert.Zero(t, w)

	_, err = unpackWeight([]byte{1, 2})
	assert.Error(t, err)
}

func TestAdjacencyBlobRoundTrip(t *testing.T) {
	ids := []NodeID{3, 7, 12, 4096}
	v := packAdjacency(ids)

	deg, err := adjacencyDegree(v)
	require.NoError(t, err)
	assert.Equal(t, Degree(4), deg)

	got, err := unpackAdjacency(v)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	empty, err := unpackAdjacency(packAdjacency(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Length and payload must agree.
	bad := packAdjacency(ids)
	bad = bad[:len(bad)-1]
	_, err = unpackAdjacency(bad)
	assert.Error(t, err)
}

func TestInsertRemoveSorted(t *testing.T) {
	var ids []NodeID
	for _, id := range []NodeID{7, 3, 9, 1, 5} {
		var added bool
		ids, added = insertSorted(ids, id)
		assert.True(t, added)
	}
	assert.Equal(t, []NodeID{1, 3, 5, 7, 9}, ids)

	ids, added := insertSorted(ids, 5)
	assert.False(t, added)
	assert.Len(t, ids, 5)

	ids, removed := removeSorted(ids, 7)
	assert.True(t, removed)
	assert.Equal(t, []NodeID{1, 3, 5, 9}, ids)

	_, removed = removeSorted(ids, 42)
	assert.False(t, removed)
}
