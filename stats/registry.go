/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"sync"
	ratomic "sync/atomic"
)

// NodeStats holds one node's counters and latency histogram. Every field
// is updated with atomic operations only; there is no lock on the data
// path, per spec §4.7.
type NodeStats struct {
	received int64
	emitted  int64
	errors   int64
	restarts int64
	latency  *Histogram
}

func newNodeStats() *NodeStats { return &NodeStats{latency: NewHistogram(nil)} }

func (n *NodeStats) IncReceived()      { ratomic.AddInt64(&n.received, 1) }
func (n *NodeStats) IncEmitted()       { ratomic.AddInt64(&n.emitted, 1) }
func (n *NodeStats) IncErrors()        { ratomic.AddInt64(&n.errors, 1) }
func (n *NodeStats) IncRestarts()      { ratomic.AddInt64(&n.restarts, 1) }
func (n *NodeStats) ObserveLatency(ns int64) { n.latency.Observe(ns) }

// Snapshot is a point-in-time, read-consistent copy of one node's
// counters, safe to retain after the pipeline completes.
type Snapshot struct {
	NodeID        string
	Received      int64
	Emitted       int64
	Errors        int64
	Restarts      int64
	LatencyBounds []int64
	LatencyCounts []int64
	LatencySumNS  int64
}

func (n *NodeStats) snapshot(id string) Snapshot {
	bounds, counts, sum := n.latency.Snapshot()
	return Snapshot{
		NodeID:        id,
		Received:      ratomic.LoadInt64(&n.received),
		Emitted:       ratomic.LoadInt64(&n.emitted),
		Errors:        ratomic.LoadInt64(&n.errors),
		Restarts:      ratomic.LoadInt64(&n.restarts),
		LatencyBounds: bounds,
		LatencyCounts: counts,
		LatencySumNS:  sum,
	}
}

// Registry is the per-pipeline metrics registry: append-only at node
// registration time (pipeline compile), lock-free counters at runtime
// (spec §4.7). It is shared across every node of one pipeline instance.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*NodeStats
	order []string
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*NodeStats)}
}

// Register allocates counters for nodeID. Called once per node at
// compile time; calling it twice for the same id is a no-op returning
// the existing entry.
func (r *Registry) Register(nodeID string) *NodeStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ns, ok := r.nodes[nodeID]; ok {
		return ns
	}
	ns := newNodeStats()
	r.nodes[nodeID] = ns
	r.order = append(r.order, nodeID)
	return ns
}

// Node returns the counters for nodeID, if registered.
func (r *Registry) Node(nodeID string) (*NodeStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.nodes[nodeID]
	return ns, ok
}

// Snapshot returns a read-consistent snapshot per node, in registration
// order.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(order))
	for _, id := range order {
		r.mu.RLock()
		ns := r.nodes[id]
		r.mu.RUnlock()
		out = append(out, ns.snapshot(id))
	}
	return out
}
