package graph

import "fmt"

// Options configures a graph at creation and open time. The persisted
// metadata rows are the source of truth at rest; opening an existing graph
// (CreateNew=false) overwrites the flag fields from metadata.
type Options struct {
	// CreateNew provisions a new graph directory and metadata record
	// instead of opening an existing one.
	CreateNew bool

	// ReadOptimize persists and maintains degree counters on node rows so
	// degree queries are O(1).
	ReadOptimize bool

	// IsDirected controls mirror-row and blob maintenance. When false,
	// every user-level edge is stored in both directions.
	IsDirected bool

	// IsWeighted includes the signed weight in edge values. Otherwise
	// weights read back as zero.
	IsWeighted bool

	// OptimizeCreate defers secondary-index creation until after bulk
	// load (EKey family only).
	OptimizeCreate bool

	// DBName names the graph; DBDir is the parent directory. The graph
	// lives at DBDir/DirName().
	DBName string
	DBDir  string

	// Type selects the physical representation.
	Type GraphType

	// NumThreads is how many partition boundaries the engine prepares.
	NumThreads int

	// CacheSize is the Badger block cache size in bytes. Zero keeps the
	// engine default.
	CacheSize int64

	// SyncWrites forces fsync on commit.
	SyncWrites bool

	// InMemory runs the KV store without touching disk. For tests.
	InMemory bool

	// CheckpointName binds read-only handles to a specific checkpoint.
	// Populated by the engine when it hands out read-only handles.
	CheckpointName string

	// ReadOnly marks a handle as bound to a checkpoint snapshot.
	ReadOnly bool
}

// NewOptions returns Options with the defaults the original tooling assumes:
// a new, directed, read-optimized, unweighted graph for one thread.
func NewOptions() *Options {
	return &Options{
		CreateNew:    true,
		ReadOptimize: true,
		IsDirected:   true,
		NumThreads:   1,
	}
}

// DirName returns the on-disk directory name for this graph,
// "{type}_{rd|d}_{name}" where rd/d encode read-optimized and directed.
func (o *Options) DirName() string {
	tag := ""
	if o.ReadOptimize {
		tag += "rd"
	}
	if o.IsDirected {
		tag += "d"
	}
	return fmt.Sprintf("%s_%s_%s", o.Type, tag, o.DBName)
}

// Validate rejects option combinations the engine cannot honor.
func (o *Options) Validate() error {
	if o.DBName == "" {
		return fmt.Errorf("graph: options: db name must not be empty")
	}
	if o.Type != Adj && o.Type != EKey && o.Type != SplitEKey {
		return fmt.Errorf("graph: options: unknown graph type %d", o.Type)
	}
	if o.NumThreads < 1 {
		return fmt.Errorf("graph: options: num threads must be at least 1, got %d", o.NumThreads)
	}
	return nil
}

// clone returns a copy so handle-specific fields can diverge from the
// engine's options.
func (o *Options) clone() *Options {
	c := *o
	return &c
}
