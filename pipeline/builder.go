/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"context"

	"github.com/streamlab-io/core/channel"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/stats"
)

// taskSpec is one compiled task: a node wrapper's Run, a splitter's Run,
// or any other goroutine the compiler needs the pipeline to supervise.
type taskSpec struct {
	id  string
	run func(ctx context.Context) error
}

// Builder assembles a Pipeline out of a compiled topology. The graph
// compiler (package graph) is the only intended caller: it resolves
// node types, constructs channel.Bounded edges, and registers one task
// per node/splitter before calling Build.
type Builder struct {
	id      string
	stats   *stats.Registry
	gate    *pauseGate
	trigger *channel.Bounded
	tasks   []taskSpec
}

// NewBuilder starts a build for pipeline id, backed by the given metrics
// registry (already populated by Register calls as nodes are compiled).
func NewBuilder(id string, reg *stats.Registry) *Builder {
	return &Builder{id: id, stats: reg, gate: newPauseGate()}
}

// SetTrigger installs the source node's inbound edge as the pipeline's
// trigger endpoint (spec §4.5: "a handle to the source-node inbound
// channel"). Must be called exactly once, for the graph's unique source.
func (b *Builder) SetTrigger(in *channel.Bounded) {
	b.trigger = in
}

// Gated wraps a compiled edge with the pipeline's pause barrier. The
// compiler calls this once per node input before handing the result to
// the node's task as its Inbound.
func (b *Builder) Gated(in <-chan frame.Frame) <-chan frame.Frame {
	return gated(b.gate, in)
}

// AddTask registers one supervised goroutine. run must return when its
// input channel(s) close and drain (spec §4.5 shutdown protocol); a
// non-nil return is a task failure.
func (b *Builder) AddTask(id string, run func(ctx context.Context) error) {
	b.tasks = append(b.tasks, taskSpec{id: id, run: run})
}

// Forward registers a relay task that applies dst's capacity and
// overflow policy (spec §4.3) to every frame a node writes to its raw,
// unbounded-suspension Outbound src. A node only ever sees a plain
// channel send; Forward is what makes that send participate in the
// compiled edge's Block/DropOldest/DropNewest policy. It closes dst once
// src closes and drains, propagating the shutdown protocol's step 3.
func (b *Builder) Forward(id string, src <-chan frame.Frame, dst *channel.Bounded) {
	b.AddTask(id, func(ctx context.Context) error {
		defer dst.Close()
		for f := range src {
			if err := dst.Send(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// Build finalizes the pipeline in the Idle state. Panics if no trigger
// was installed or no tasks were registered: both are compiler bugs, not
// runtime conditions (a valid graph always has a source and at least one
// node).
func (b *Builder) Build() *Pipeline {
	if b.trigger == nil {
		panic("pipeline: Build called without a trigger endpoint")
	}
	if len(b.tasks) == 0 {
		panic("pipeline: Build called with no tasks")
	}
	return &Pipeline{
		id:      b.id,
		stats:   b.stats,
		gate:    b.gate,
		trigger: b.trigger,
		tasks:   b.tasks,
		state:   Idle,
	}
}
