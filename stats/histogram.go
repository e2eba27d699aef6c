// Package stats implements the lock-free per-node counters and latency
// histogram (spec §4.7): atomic updates only, no global lock on the data
// path, read-consistent but not required to be wall-clock synchronized
// across nodes.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import ratomic "sync/atomic"

// Histogram is a fixed-size, lock-free latency histogram over explicit
// bucket upper bounds (nanoseconds), with one extra overflow bucket for
// observations above the highest bound.
type Histogram struct {
	bounds []int64
	counts []int64 // len(bounds)+1, last is overflow
	sum    int64   // nanoseconds, for the exported histogram's _sum series
}

// DefaultLatencyBounds spans 10us .. ~1s, enough resolution for
// low-latency signal processing without per-node configuration.
var DefaultLatencyBounds = []int64{
	10_000, 50_000, 100_000, 500_000,
	1_000_000, 5_000_000, 10_000_000, 50_000_000,
	100_000_000, 500_000_000, 1_000_000_000,
}

func NewHistogram(bounds []int64) *Histogram {
	if len(bounds) == 0 {
		bounds = DefaultLatencyBounds
	}
	return &Histogram{bounds: bounds, counts: make([]int64, len(bounds)+1)}
}

// Observe records one latency sample, in nanoseconds.
func (h *Histogram) Observe(ns int64) {
	idx := len(h.bounds)
	for i, b := range h.bounds {
		if ns <= b {
			idx = i
			break
		}
	}
	ratomic.AddInt64(&h.counts[idx], 1)
	ratomic.AddInt64(&h.sum, ns)
}

// Snapshot returns a point-in-time copy of the bucket counts and the
// cumulative observation sum (nanoseconds), safe to read while Observe
// continues to run concurrently.
func (h *Histogram) Snapshot() (bounds []int64, counts []int64, sum int64) {
	counts = make([]int64, len(h.counts))
	for i := range h.counts {
		counts[i] = ratomic.LoadInt64(&h.counts[i])
	}
	return h.bounds, counts, ratomic.LoadInt64(&h.sum)
}

// Total returns the total number of observations recorded.
func (h *Histogram) Total() int64 {
	var total int64
	for i := range h.counts {
		total += ratomic.LoadInt64(&h.counts[i])
	}
	return total
}
