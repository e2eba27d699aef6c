/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nodes

import (
	"context"

	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
)

func init() {
	node.Global().Register(node.Registration{
		Metadata: node.Metadata{
			Name:     "gain",
			Category: "transform",
			Inputs:   []node.Port{{Name: "in", Kind: "signal"}},
			Outputs:  []node.Port{{Name: "out", Kind: "signal"}},
			Params: []node.ParamSpec{
				{Name: "gain", Type: "float64", Default: 1.0, Description: "scalar multiplier applied to every channel"},
			},
		},
		Factory: func() node.Node { return &Gain{} },
	})
}

// Gain multiplies every sample of every channel on a frame by a
// configured scalar.
type Gain struct {
	scalar float64
}

func (g *Gain) Configure(cfg map[string]any) error {
	var err error
	g.scalar, err = configFloat(cfg, "gain", 1.0)
	return err
}

func (g *Gain) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("Gain is a Processor; Run is never invoked directly")
}

func (g *Gain) Process(_ context.Context, f frame.Frame) (frame.Frame, error) {
	out := f
	for _, name := range f.ChannelNames() {
		s, _ := f.Channel(name)
		scaled := make([]float64, s.Len())
		for i := range scaled {
			scaled[i] = s.At(i) * g.scalar
		}
		out = out.WithChannel(name, frame.NewSamples(scaled))
	}
	return out, nil
}
