/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"fmt"
	"strings"
)

// Monitor composes a pipeline's per-node metrics into a textual report
// and exposes the raw Registry for programmatic readers (spec §4.7,
// §6 "one query per pipeline: monitor()").
type Monitor struct {
	pipelineID string
	registry   *Registry
}

func NewMonitor(pipelineID string, registry *Registry) *Monitor {
	return &Monitor{pipelineID: pipelineID, registry: registry}
}

func (m *Monitor) Registry() *Registry { return m.registry }

// Report renders a one-line-per-node textual summary, e.g.:
//
//	pipeline abc123:
//	  gen              recv=30     emit=30     err=0    restart=0    latency_n=30
//	  gain             recv=30     emit=30     err=0    restart=0    latency_n=30
//	  collector        recv=0      emit=0      err=0    restart=0    latency_n=0
//
// Frame counters and latency are recorded only for node.Processor nodes;
// a node that drives its own Run loop (such as the collector) reports
// zeros there.
func (m *Monitor) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s:\n", m.pipelineID)
	for _, s := range m.registry.Snapshot() {
		fmt.Fprintf(&b, "  %-16s recv=%-6d emit=%-6d err=%-4d restart=%-4d latency_n=%d\n",
			s.NodeID, s.Received, s.Emitted, s.Errors, s.Restarts, sumCounts(s.LatencyCounts))
	}
	return b.String()
}

func sumCounts(counts []int64) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}
