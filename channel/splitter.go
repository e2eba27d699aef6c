/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package channel

import (
	"context"

	"github.com/streamlab-io/core/frame"
)

// Splitter materializes fan-out for a node with more than one outbound
// edge: it consumes from the node's single outbound Bounded and clones
// each frame to every downstream Bounded, in the fixed order downs was
// built in (spec §4.3, §5). It blocks on whichever downstream is
// currently full, so the slowest downstream paces the upstream node —
// global backpressure through fan-out.
//
// The overflow policy here is applied independently per downstream: a
// full downstream under a drop policy only loses frames on that one
// branch, the others still receive theirs. This resolves the Open
// Question in spec §9 / SPEC_FULL.md §9 in favor of the per-downstream
// reading.
type Splitter struct {
	in    <-chan frame.Frame
	downs []*Bounded
}

func NewSplitter(in <-chan frame.Frame, downs []*Bounded) *Splitter {
	return &Splitter{in: in, downs: downs}
}

// Run drains in until closed, fans each frame out, then closes every
// downstream in turn and returns. A non-nil return (ctx cancellation
// mid-send) still closes every downstream before propagating.
func (s *Splitter) Run(ctx context.Context) error {
	defer func() {
		for _, d := range s.downs {
			d.Close()
		}
	}()
	for f := range s.in {
		for _, d := range s.downs {
			clone := f.Clone()
			if err := d.Send(ctx, clone); err != nil {
				return err
			}
		}
	}
	return nil
}
