package graph

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Metadata rows are keyed by a compact enum under prefixMetadata with
// variable-length byte values. The in-memory counters are authoritative at
// runtime; these rows are authoritative at rest and are rewritten at sync
// points and close.
type metaKey byte

const (
	metaDBName metaKey = iota
	metaDBDir
	metaIsWeighted
	metaReadOptimize
	metaIsDirected
	metaNumNodes
	metaNumEdges
	metaMaxNodeID
	metaMinNodeID
)

func metadataKey(k metaKey) []byte {
	return []byte{prefixMetadata, byte(k)}
}

func boolBytes(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// writeMeta stores one metadata row inside txn.
func writeMeta(txn *badger.Txn, k metaKey, v []byte) error {
	return txn.Set(metadataKey(k), v)
}

// readMeta fetches one metadata row. Missing rows are a corrupt graph.
func readMeta(txn *badger.Txn, k metaKey) ([]byte, error) {
	item, err := txn.Get(metadataKey(k))
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("graph: metadata key %d missing: %w", k, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readMetaBool(txn *badger.Txn, k metaKey) (bool, error) {
	v, err := readMeta(txn, k)
	if err != nil {
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

func readMetaU64(txn *badger.Txn, k metaKey) (uint64, error) {
	v, err := readMeta(txn, k)
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("graph: corrupt metadata value for key %d", k)
	}
	return binary.BigEndian.Uint64(v), nil
}

// createMetadata writes the initial metadata record for a new graph with
// zero counters.
func createMetadata(db *badger.DB, o *Options) error {
	return db.Update(func(txn *badger.Txn) error {
		if err := writeMeta(txn, metaDBName, []byte(o.DBName)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaDBDir, []byte(o.DBDir)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaIsWeighted, boolBytes(o.IsWeighted)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaReadOptimize, boolBytes(o.ReadOptimize)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaIsDirected, boolBytes(o.IsDirected)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaNumNodes, u64Bytes(0)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaNumEdges, u64Bytes(0)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaMaxNodeID, u64Bytes(0)); err != nil {
			return err
		}
		return writeMeta(txn, metaMinNodeID, u64Bytes(uint64(OutOfBandID)))
	})
}

// persistedCounters is the counter snapshot stored alongside the flags.
type persistedCounters struct {
	numNodes  uint64
	numEdges  uint64
	maxNodeID uint64
	minNodeID uint64
}

// hydrateMetadata restores flag options and counters from an existing
// graph's metadata record, overwriting the in-memory flags.
func hydrateMetadata(db *badger.DB, o *Options) (persistedCounters, error) {
	var c persistedCounters
	err := db.View(func(txn *badger.Txn) error {
		name, err := readMeta(txn, metaDBName)
		if err != nil {
			return err
		}
		o.DBName = string(name)
		if o.IsWeighted, err = readMetaBool(txn, metaIsWeighted); err != nil {
			return err
		}
		if o.ReadOptimize, err = readMetaBool(txn, metaReadOptimize); err != nil {
			return err
		}
		if o.IsDirected, err = readMetaBool(txn, metaIsDirected); err != nil {
			return err
		}
		if c.numNodes, err = readMetaU64(txn, metaNumNodes); err != nil {
			return err
		}
		if c.numEdges, err = readMetaU64(txn, metaNumEdges); err != nil {
			return err
		}
		if c.maxNodeID, err = readMetaU64(txn, metaMaxNodeID); err != nil {
			return err
		}
		c.minNodeID, err = readMetaU64(txn, metaMinNodeID)
		return err
	})
	return c, err
}

// syncMetadata flushes the live counters back to the metadata record.
func syncMetadata(db *badger.DB, c persistedCounters) error {
	return db.Update(func(txn *badger.Txn) error {
		if err := writeMeta(txn, metaNumNodes, u64Bytes(c.numNodes)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaNumEdges, u64Bytes(c.numEdges)); err != nil {
			return err
		}
		if err := writeMeta(txn, metaMaxNodeID, u64Bytes(c.maxNodeID)); err != nil {
			return err
		}
		return writeMeta(txn, metaMinNodeID, u64Bytes(c.minNodeID))
	})
}
