// Package node defines the contract the runtime consumes to drive a
// processing node, and the process-wide registry of node type factories.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package node

import (
	"context"

	"github.com/streamlab-io/core/frame"
)

// Inbound and Outbound are the only suspension points on the data path
// (spec §5). A node's Run loop must terminate when In is closed
// (drained); the resilience wrapper then closes Out, propagating
// shutdown downstream.
type (
	Inbound  = <-chan frame.Frame
	Outbound = chan<- frame.Frame
)

// Port describes one named input or output handle a node type exposes,
// consumed by the (out-of-scope) visual editor; the runtime itself only
// cares about port names insofar as the graph compiler resolves edges
// against them.
type Port struct {
	Name string
	Kind string // freeform, e.g. "signal", "control"
}

// ParamSpec documents one configuration field, for editor consumption.
type ParamSpec struct {
	Name        string
	Type        string
	Default     any
	Description string
}

// Metadata is the static, process-wide-immutable description of a node
// type, independent of any particular instance's configuration.
type Metadata struct {
	Name     string
	Category string
	Inputs   []Port
	Outputs  []Port
	Params   []ParamSpec
}

// Node is the polymorphic value the runtime drives. The runtime treats
// nodes as opaque: it calls Configure exactly once, then Run exactly
// once, and relies on nothing else.
type Node interface {
	// Configure runs once at pipeline construction, before Run. A
	// returned error aborts compilation; the pipeline never starts.
	Configure(config map[string]any) error

	// Run is a streaming loop: consume frames from in until in is
	// closed and drained, publish results to out, then return nil. A
	// non-nil return is a task failure handled by the resilience
	// wrapper's restart policy (spec §4.6). The wrapper closes out
	// exactly once after Run returns (on every path, including restart
	// and panic recovery); Run must never close out itself. Run must
	// honor ctx cancellation as an additional, orthogonal way to stop.
	Run(ctx context.Context, in Inbound, out Outbound) error
}

// Factory produces a fresh, unconfigured Node instance. Restart policies
// call Factory again (and re-run Configure with the original config
// document) to recreate a node after a task failure, per spec §4.6 and
// the Open Question resolved in SPEC_FULL.md §9.
type Factory func() Node

// Registration pairs a factory with the type's static metadata.
type Registration struct {
	Metadata Metadata
	Factory  Factory
}
