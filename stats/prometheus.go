/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import "github.com/prometheus/client_golang/prometheus"

// interface guard
var _ prometheus.Collector = (*Registry)(nil)

var (
	receivedDesc = prometheus.NewDesc("streamlab_node_frames_received_total",
		"Frames received by a node.", []string{"pipeline", "node"}, nil)
	emittedDesc = prometheus.NewDesc("streamlab_node_frames_emitted_total",
		"Frames emitted by a node.", []string{"pipeline", "node"}, nil)
	errorsDesc = prometheus.NewDesc("streamlab_node_errors_total",
		"Per-frame processing errors handled by a node's error policy.", []string{"pipeline", "node"}, nil)
	restartsDesc = prometheus.NewDesc("streamlab_node_restarts_total",
		"Task-level restarts performed by a node's restart policy.", []string{"pipeline", "node"}, nil)
	latencyDesc = prometheus.NewDesc("streamlab_node_latency_seconds",
		"Per-frame processing latency, inbound receive to outbound send.", []string{"pipeline", "node"}, nil)
)

// CollectorFor wraps this registry as a prometheus.Collector labeled
// with pipelineID, so a process embedding several pipeline instances can
// register each one's registry separately without label collisions.
func (r *Registry) CollectorFor(pipelineID string) prometheus.Collector {
	return &promCollector{pipelineID: pipelineID, registry: r}
}

type promCollector struct {
	pipelineID string
	registry   *Registry
}

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- receivedDesc
	ch <- emittedDesc
	ch <- errorsDesc
	ch <- restartsDesc
	ch <- latencyDesc
}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.registry.Snapshot() {
		ch <- prometheus.MustNewConstMetric(receivedDesc, prometheus.CounterValue, float64(s.Received), c.pipelineID, s.NodeID)
		ch <- prometheus.MustNewConstMetric(emittedDesc, prometheus.CounterValue, float64(s.Emitted), c.pipelineID, s.NodeID)
		ch <- prometheus.MustNewConstMetric(errorsDesc, prometheus.CounterValue, float64(s.Errors), c.pipelineID, s.NodeID)
		ch <- prometheus.MustNewConstMetric(restartsDesc, prometheus.CounterValue, float64(s.Restarts), c.pipelineID, s.NodeID)

		buckets := make(map[float64]uint64, len(s.LatencyBounds))
		var cumulative uint64
		for i, bound := range s.LatencyBounds {
			cumulative += uint64(s.LatencyCounts[i])
			buckets[float64(bound)/1e9] = cumulative
		}
		cumulative += uint64(s.LatencyCounts[len(s.LatencyCounts)-1])
		hist, err := prometheus.NewConstHistogram(latencyDesc, cumulative, float64(s.LatencySumNS)/1e9, buckets, c.pipelineID, s.NodeID)
		if err == nil {
			ch <- hist
		}
	}
}

// Describe/Collect on Registry itself default to the "default" pipeline
// label, for the common case of one registry per process.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) { r.CollectorFor("default").Describe(ch) }
func (r *Registry) Collect(ch chan<- prometheus.Metric) { r.CollectorFor("default").Collect(ch) }
