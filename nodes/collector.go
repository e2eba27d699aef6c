/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nodes

import (
	"context"
	"sync"

	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
)

func init() {
	node.Global().Register(node.Registration{
		Metadata: node.Metadata{
			Name:     "collector",
			Category: "sink",
			Inputs:   []node.Port{{Name: "in", Kind: "signal"}},
		},
		Factory: func() node.Node { return &Collector{} },
	})
}

// Collector is a terminal node that appends every frame it receives to
// an in-memory slice. Frames is safe to call concurrently with Run, and
// in particular after the pipeline has reached a terminal state.
type Collector struct {
	mu     sync.Mutex
	frames []frame.Frame
}

func (*Collector) Configure(map[string]any) error { return nil }

func (c *Collector) Run(_ context.Context, in node.Inbound, _ node.Outbound) error {
	for f := range in {
		c.mu.Lock()
		c.frames = append(c.frames, f)
		c.mu.Unlock()
	}
	return nil
}

// Frames returns a snapshot copy of every frame collected so far.
func (c *Collector) Frames() []frame.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}
