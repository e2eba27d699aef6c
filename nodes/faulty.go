/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nodes

import (
	"context"
	"fmt"

	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
)

func init() {
	node.Global().Register(node.Registration{
		Metadata: node.Metadata{
			Name:     "faulty",
			Category: "test",
			Inputs:   []node.Port{{Name: "in", Kind: "signal"}},
			Outputs:  []node.Port{{Name: "out", Kind: "signal"}},
			Params: []node.ParamSpec{
				{Name: "fail_every_n", Type: "int", Default: 3, Description: "fails deterministically on every Nth frame processed"},
			},
		},
		Factory: func() node.Node { return &Faulty{} },
	})
}

// Faulty fails deterministically on every Nth frame it processes,
// otherwise forwarding the frame unchanged. It exists to exercise the
// error and restart policies (spec §8 scenarios 5 and 6), not to model
// any real signal-processing failure mode.
type Faulty struct {
	n     int
	count int
}

func (f *Faulty) Configure(cfg map[string]any) error {
	n, err := configInt(cfg, "fail_every_n", 3)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("nodes: fail_every_n must be > 0, got %d", n)
	}
	f.n = n
	return nil
}

func (f *Faulty) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("Faulty is a Processor; Run is never invoked directly")
}

func (f *Faulty) Process(_ context.Context, fr frame.Frame) (frame.Frame, error) {
	f.count++
	if f.count%f.n == 0 {
		return frame.Frame{}, fmt.Errorf("nodes: faulty: synthetic failure on frame %d", f.count)
	}
	return fr, nil
}
