package graph

import "sync"

// LockSet is a small set of process-wide mutexes the engine exports for
// benchmark-level coordination. Core correctness never depends on them;
// representations rely on KV transactions instead.
type LockSet struct {
	nodeNum    sync.Mutex
	edgeNum    sync.Mutex
	nodeDegree sync.Mutex
}

// NodeNumLock guards external node-count bookkeeping.
func (l *LockSet) NodeNumLock() *sync.Mutex { return &l.nodeNum }

// EdgeNumLock guards external edge-count bookkeeping.
func (l *LockSet) EdgeNumLock() *sync.Mutex { return &l.edgeNum }

// NodeDegreeLock guards external degree bookkeeping.
func (l *LockSet) NodeDegreeLock() *sync.Mutex { return &l.nodeDegree }
