// Package graph implements a graph storage engine layered on BadgerDB.
//
// The same logical graph can be stored under three physical representations,
// all exposing one Graph interface so analytic workloads can be benchmarked
// against each layout under identical semantics:
//
//   - AdjList: node, out-adjacency, in-adjacency and edge key spaces; a whole
//     neighborhood is one sequential read of a single adjacency blob.
//   - EdgeKey: one key space keyed (src, dst); node metadata lives in a
//     reserved (id, 0) row; a (dst, src) index serves the in direction.
//   - SplitEdgeKey: mirrored out-edge and in-edge key spaces so both
//     neighborhood directions are tight prefix scans.
//
// An Engine owns the Badger instance, hands out per-thread handles, computes
// partition boundaries for parallel scans, and flushes counters to the
// metadata rows on close.
//
// Example:
//
//	opts := graph.NewOptions()
//	opts.DBName = "soc-livejournal"
//	opts.DBDir = "./data"
//	opts.Type = graph.EKey
//	opts.CreateNew = true
//
//	engine, err := graph.NewEngine(opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	g, _ := engine.CreateGraphHandle(false)
//	defer g.Close()
//
//	g.AddEdge(graph.Edge{Src: 1, Dst: 3, Weight: 1})
//
//	cur, _ := g.OutNbdIter()
//	defer cur.Close()
//	var adj graph.AdjacencyList
//	for cur.Next(&adj); adj.NodeID != graph.OutOfBandID; cur.Next(&adj) {
//		fmt.Println(adj.NodeID, adj.Edgelist)
//	}
package graph

import "errors"

// Outcomes and failures shared across the package. Transient outcomes
// (ErrRollback, ErrDuplicateKey, ErrNotFound) leave no state behind; callers
// retry or tolerate them. Everything else is fatal for the operation.
var (
	// ErrRollback reports a transactional conflict: another writer won and
	// the operation had no effect. Callers retry, usually via Retry.
	ErrRollback = errors.New("graph: transaction rolled back")

	// ErrDuplicateKey reports an insert of a key that already exists.
	ErrDuplicateKey = errors.New("graph: duplicate key")

	// ErrNotFound reports a lookup of an absent node or edge.
	ErrNotFound = errors.New("graph: not found")

	// ErrReadOnly reports a mutation attempted through a read-only handle.
	ErrReadOnly = errors.New("graph: handle is read-only")

	// ErrGraphClosed reports use of a closed handle or engine.
	ErrGraphClosed = errors.New("graph: closed")

	// ErrInvalidID reports a node ID that is zero or out of band.
	ErrInvalidID = errors.New("graph: invalid node id")
)

// Degree counts incident edges in one direction.
type Degree = uint32

// Weight is the signed edge weight attribute. Zero when the graph is not
// weighted.
type Weight = int32

// GraphType selects a physical representation.
type GraphType int

const (
	Adj GraphType = iota
	EKey
	SplitEKey
)

// String returns the short name used in graph directory names.
func (t GraphType) String() string {
	switch t {
	case Adj:
		return "adj"
	case EKey:
		return "ekey"
	case SplitEKey:
		return "ekey_split"
	default:
		return "unknown"
	}
}

// Node is a graph vertex. InDegree and OutDegree are maintained only when
// the graph is read-optimized; otherwise they are zero on read and degree
// queries walk the edges.
type Node struct {
	ID        NodeID
	InDegree  Degree
	OutDegree Degree
}

// Edge is a directed record (Src, Dst). For undirected graphs every
// user-level edge is materialized as two Edge records with equal weight.
type Edge struct {
	Src    NodeID
	Dst    NodeID
	Weight Weight
}

// AdjacencyList is one node's neighborhood in a single record: the node, its
// degree in the iterated direction, and the neighbor IDs in ascending order.
type AdjacencyList struct {
	NodeID   NodeID
	Degree   Degree
	Edgelist []NodeID
}

// KeyPair is a composite edge key (Src, Dst), ordered lexicographically.
type KeyPair struct {
	Src NodeID
	Dst NodeID
}

// Less reports whether p orders before q.
func (p KeyPair) Less(q KeyPair) bool {
	return p.Src < q.Src || (p.Src == q.Src && p.Dst < q.Dst)
}

// KeyRange is an inclusive node ID range. End == OutOfBandID means "to the
// end of the table".
type KeyRange struct {
	Start NodeID
	End   NodeID
}

// EdgeRange is an inclusive composite key range over edges. An end of
// (OutOfBandID, OutOfBandID) means "to the end of the table".
type EdgeRange struct {
	Start KeyPair
	End   KeyPair
}

// validID rejects the two reserved sentinels.
func validID(id NodeID) bool {
	return id != 0 && id != OutOfBandID
}

// Graph is the uniform API over all three representations. Handles are
// single-threaded; obtain one per thread from Engine.CreateGraphHandle.
type Graph interface {
	// Node operations
	AddNode(n Node) error
	GetNode(id NodeID) (Node, error)
	HasNode(id NodeID) (bool, error)
	DeleteNode(id NodeID) error
	RandomNode() (Node, error)

	// Edge operations
	AddEdge(e Edge) error
	GetEdge(src, dst NodeID) (Edge, error)
	HasEdge(src, dst NodeID) (bool, error)
	DeleteEdge(src, dst NodeID) error

	// Degree queries
	OutDegree(id NodeID) (Degree, error)
	InDegree(id NodeID) (Degree, error)

	// Whole-graph and neighborhood materialization
	Nodes() ([]Node, error)
	Edges() ([]Edge, error)
	OutEdges(id NodeID) ([]Edge, error)
	InEdges(id NodeID) ([]Edge, error)
	OutNodes(id NodeID) ([]Node, error)
	InNodes(id NodeID) ([]Node, error)
	OutNodeIDs(id NodeID) ([]NodeID, error)
	InNodeIDs(id NodeID) ([]NodeID, error)

	// Cursor factories
	NodeIter() (NodeCursor, error)
	EdgeIter() (EdgeCursor, error)
	OutNbdIter() (OutCursor, error)
	InNbdIter() (InCursor, error)

	// Counters (advisory until the metadata sync at close; see Engine)
	NumNodes() int64
	NumEdges() int64

	// Close releases the handle's KV resources. For the last writable
	// handle the engine's Close flushes counters to metadata.
	Close() error
}
