// Package nodes provides the small set of reference node types needed
// to exercise the runtime end to end: a signal source, a scalar
// transform, a terminal collector, and a fault injector for resilience
// tests. Anything beyond this reference set is out of scope (spec §1).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nodes

import (
	"context"
	"errors"
	"math"

	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
)

var errFrameSize = errors.New("nodes: frame_size must be > 0")

func init() {
	node.Global().Register(node.Registration{
		Metadata: node.Metadata{
			Name:     "gen.sine",
			Category: "source",
			Inputs:   []node.Port{{Name: "trigger", Kind: "control"}},
			Outputs:  []node.Port{{Name: "main_channel", Kind: "signal"}},
			Params: []node.ParamSpec{
				{Name: "frequency", Type: "float64", Default: 440.0, Description: "tone frequency in Hz"},
				{Name: "sample_rate", Type: "float64", Default: 48000.0, Description: "output sample rate in Hz"},
				{Name: "frame_size", Type: "int", Default: 256, Description: "samples emitted per trigger"},
			},
		},
		Factory: func() node.Node { return &Sine{} },
	})
}

// Sine is a deterministic sine-wave generator with phase continuity
// across triggers: each Process call picks up exactly where the
// previous one left off, so concatenating every emitted frame's samples
// reproduces one continuous waveform.
type Sine struct {
	frequency, sampleRate float64
	frameSize             int
	phase                 float64
}

func (s *Sine) Configure(cfg map[string]any) error {
	var err error
	if s.frequency, err = configFloat(cfg, "frequency", 440.0); err != nil {
		return err
	}
	if s.sampleRate, err = configFloat(cfg, "sample_rate", 48000.0); err != nil {
		return err
	}
	if s.frameSize, err = configInt(cfg, "frame_size", 256); err != nil {
		return err
	}
	if s.frameSize <= 0 {
		return errFrameSize
	}
	return nil
}

func (s *Sine) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("Sine is a Processor; Run is never invoked directly")
}

// Process ignores the trigger frame's own channels and treats it purely
// as a pulse: the generated samples carry the trigger's timestamp and
// sequence number so downstream consumers can still correlate output
// back to the trigger that produced it.
func (s *Sine) Process(_ context.Context, f frame.Frame) (frame.Frame, error) {
	step := 2 * math.Pi * s.frequency / s.sampleRate
	data := make([]float64, s.frameSize)
	for i := range data {
		data[i] = math.Sin(s.phase)
		s.phase += step
	}
	s.phase = math.Mod(s.phase, 2*math.Pi)
	return f.WithChannel("main_channel", frame.NewSamples(data)), nil
}
