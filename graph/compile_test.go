/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package graph_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/graph"
	"github.com/streamlab-io/core/node"
	"github.com/streamlab-io/core/pipeline"
)

// passthrough forwards every frame unchanged; configErr, if set, makes
// Configure fail so compile-time config validation can be exercised.
type passthrough struct{ configErr bool }

func (p *passthrough) Configure(map[string]any) error {
	if p.configErr {
		return fmt.Errorf("passthrough: bad config")
	}
	return nil
}
func (*passthrough) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("passthrough is a Processor")
}
func (*passthrough) Process(_ context.Context, f frame.Frame) (frame.Frame, error) { return f, nil }

func testRegistry(t *testing.T, configErr bool) *node.Registry {
	t.Helper()
	reg := node.NewRegistry()
	reg.Register(node.Registration{
		Metadata: node.Metadata{Name: "test.passthrough"},
		Factory:  func() node.Node { return &passthrough{configErr: configErr} },
	})
	return reg
}

func triggerAndStop(t *testing.T, p *pipeline.Pipeline, n int) {
	t.Helper()
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for p.State() != pipeline.Running {
		if time.Now().After(deadline) {
			t.Fatalf("pipeline never reached Running, stuck at %s", p.State())
		}
		time.Sleep(time.Millisecond)
	}
	for i := int64(0); i < int64(n); i++ {
		f := frame.New(i, i)
		if err := p.Trigger(context.Background(), f); err != nil {
			t.Fatalf("trigger %d: %v", i, err)
		}
	}
	_ = p.Stop()
	deadline = time.Now().Add(time.Second)
	for p.State() != pipeline.Completed && p.State() != pipeline.Error {
		if time.Now().After(deadline) {
			t.Fatalf("pipeline never reached a terminal state, stuck at %s", p.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func linearDoc(capacity int, policy string) *graph.Doc {
	return &graph.Doc{
		PipelineConfig: graph.PipelineConfig{ChannelCapacity: capacity, OverflowPolicy: policy},
		Nodes: []graph.NodeDecl{
			{ID: "src", Type: "test.passthrough"},
			{ID: "sink", Type: "test.passthrough"},
		},
		Connections: []graph.Connection{{From: "src", To: "sink"}},
	}
}

func TestCompileLinearGraphRunsAndCompletes(t *testing.T) {
	reg := testRegistry(t, false)
	p, err := graph.Compile("p1", linearDoc(4, "block"), reg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	triggerAndStop(t, p, 5)
	if p.State() != pipeline.Completed {
		t.Fatalf("expected Completed, got %s", p.State())
	}
}

func TestCompileDetectsCycle(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{
		Nodes: []graph.NodeDecl{
			{ID: "a", Type: "test.passthrough"},
			{ID: "b", Type: "test.passthrough"},
		},
		Connections: []graph.Connection{{From: "a", To: "b"}, {From: "b", To: "a"}},
	}
	if _, err := graph.Compile("p1", doc, reg); err == nil {
		t.Fatalf("expected a cycle/no-source compile error")
	}
}

func TestCompileRejectsMultipleSources(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{
		Nodes: []graph.NodeDecl{
			{ID: "a", Type: "test.passthrough"},
			{ID: "b", Type: "test.passthrough"},
			{ID: "c", Type: "test.passthrough"},
		},
		Connections: []graph.Connection{{From: "a", To: "c"}, {From: "b", To: "c"}},
	}
	if _, err := graph.Compile("p1", doc, reg); err == nil {
		t.Fatalf("expected multiple-sources compile error")
	}
}

func TestCompileRejectsUnknownNodeType(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{Nodes: []graph.NodeDecl{{ID: "a", Type: "does.not.exist"}}}
	if _, err := graph.Compile("p1", doc, reg); err == nil {
		t.Fatalf("expected unknown-type compile error")
	}
}

func TestCompileRejectsDuplicateID(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{Nodes: []graph.NodeDecl{
		{ID: "a", Type: "test.passthrough"}, {ID: "a", Type: "test.passthrough"},
	}}
	if _, err := graph.Compile("p1", doc, reg); err == nil {
		t.Fatalf("expected duplicate-id compile error")
	}
}

func TestCompileRejectsUnknownConnectionEndpoint(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{
		Nodes:       []graph.NodeDecl{{ID: "a", Type: "test.passthrough"}},
		Connections: []graph.Connection{{From: "a", To: "ghost"}},
	}
	if _, err := graph.Compile("p1", doc, reg); err == nil {
		t.Fatalf("expected unknown-endpoint compile error")
	}
}

func TestCompileFailsOnBadNodeConfig(t *testing.T) {
	reg := testRegistry(t, true)
	if _, err := graph.Compile("p1", linearDoc(4, "block"), reg); err == nil {
		t.Fatalf("expected configure failure to fail compile")
	}
}

func TestCompileSingleNodeGraphIsSourceAndSink(t *testing.T) {
	reg := testRegistry(t, false)
	doc := &graph.Doc{Nodes: []graph.NodeDecl{{ID: "solo", Type: "test.passthrough"}}}
	p, err := graph.Compile("p1", doc, reg)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	triggerAndStop(t, p, 0)
	if p.State() != pipeline.Completed {
		t.Fatalf("expected Completed on a zero-trigger single-node graph, got %s", p.State())
	}
}
