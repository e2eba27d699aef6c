// Package graph compiles a declarative JSON graph document (spec §6)
// into a live pipeline.Pipeline: it resolves node types against the
// process-wide registry, validates the connection topology, allocates
// the channel fabric, and wires everything through a pipeline.Builder.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package graph

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var js = jsoniter.ConfigFastest

// PipelineConfig is the graph document's pipeline_config object.
type PipelineConfig struct {
	ChannelCapacity int    `json:"channel_capacity"`
	OverflowPolicy  string `json:"overflow_policy"`
}

// RestartDecl is the optional per-node restart policy declaration. Not
// part of spec.md's literal schema; this module extends the node
// declaration with it so the resilience wrapper's policy (spec §4.6) is
// expressible from the graph document instead of only programmatically.
type RestartDecl struct {
	Policy            string `json:"policy"`
	BaseDelayMS       int    `json:"base_delay_ms"`
	MaxDelayMS        int    `json:"max_delay_ms"`
	BreakerThreshold  int    `json:"breaker_threshold"`
	BreakerWindowMS   int    `json:"breaker_window_ms"`
	BreakerCooldownMS int    `json:"breaker_cooldown_ms"`
}

// NodeDecl is one entry of the graph document's nodes array.
type NodeDecl struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Config      map[string]any `json:"config"`
	ErrorPolicy string         `json:"error_policy"`
	Restart     *RestartDecl   `json:"restart_policy"`
}

// Connection is one entry of the graph document's connections array.
type Connection struct {
	From     string `json:"from"`
	To       string `json:"to"`
	FromPort string `json:"from_port"`
	ToPort   string `json:"to_port"`
}

// Doc is the top-level graph document (spec §6).
type Doc struct {
	PipelineConfig PipelineConfig `json:"pipeline_config"`
	Nodes          []NodeDecl     `json:"nodes"`
	Connections    []Connection   `json:"connections"`
}

// Parse decodes a graph document. Malformed JSON is a compile error
// (spec §7 taxonomy item 1), wrapped with call-site context.
func Parse(data []byte) (*Doc, error) {
	var doc Doc
	if err := js.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "graph: invalid document")
	}
	return &doc, nil
}
