/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streamlab-io/core/channel"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/node"
	"github.com/streamlab-io/core/pipeline"
	"github.com/streamlab-io/core/resilience"
	"github.com/streamlab-io/core/stats"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// passthrough is a Processor that forwards every frame unchanged.
type passthrough struct{}

func (passthrough) Configure(map[string]any) error { return nil }
func (passthrough) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("passthrough is a Processor; Run is never invoked directly")
}
func (passthrough) Process(_ context.Context, f frame.Frame) (frame.Frame, error) { return f, nil }

// sink is a terminal plain Node: it consumes every frame and appends it
// to a shared, mutex-guarded slice. It never writes to out and, per the
// node contract, never closes it either — the resilience wrapper owns
// that.
type sink struct {
	mu  *sync.Mutex
	out *[]frame.Frame
}

func (sink) Configure(map[string]any) error { return nil }
func (s sink) Run(_ context.Context, in node.Inbound, _ node.Outbound) error {
	for f := range in {
		s.mu.Lock()
		*s.out = append(*s.out, f)
		s.mu.Unlock()
	}
	return nil
}

// failEveryNth is a Processor that fails deterministically on every nth
// frame it processes (spec §8 scenario 5).
type failEveryNth struct {
	n     int
	count int
}

func (*failEveryNth) Configure(map[string]any) error { return nil }
func (*failEveryNth) Run(context.Context, node.Inbound, node.Outbound) error {
	panic("failEveryNth is a Processor; Run is never invoked directly")
}
func (f *failEveryNth) Process(_ context.Context, fr frame.Frame) (frame.Frame, error) {
	f.count++
	if f.count%f.n == 0 {
		return frame.Frame{}, fmt.Errorf("failEveryNth: synthetic failure on frame %d", f.count)
	}
	return fr, nil
}

// panicker is a plain Node that panics on its first received frame,
// exercising an unrecoverable task-level failure (spec §8 scenario 6).
type panicker struct{}

func (panicker) Configure(map[string]any) error { return nil }
func (panicker) Run(_ context.Context, in node.Inbound, _ node.Outbound) error {
	for range in {
		panic("panicker: boom")
	}
	return nil
}

// harness wires a two-stage source->sink pipeline: the source is a
// passthrough Processor whose inbound edge is the trigger endpoint, the
// sink is a terminal collector. capacity and policy apply to both
// compiled edges.
type harness struct {
	pipe      *pipeline.Pipeline
	collected *[]frame.Frame
	mu        *sync.Mutex
	regs      *stats.Registry
}

func buildHarness(capacity int, policy channel.Policy, sourceNode func() node.Node, sourcePolicy resilience.Config) *harness {
	reg := stats.NewRegistry()
	b := pipeline.NewBuilder("p1", reg)

	srcIn := channel.NewBounded(capacity, policy)
	b.SetTrigger(srcIn)

	srcOut := make(chan frame.Frame)
	srcSt := reg.Register("source")
	srcWrapper := resilience.New("source", sourceNode, nil, sourcePolicy, srcSt)
	b.AddTask("source", func(ctx context.Context) error {
		return srcWrapper.Run(ctx, b.Gated(srcIn.RecvCh()), srcOut)
	})

	sinkIn := channel.NewBounded(capacity, policy)
	b.Forward("source->sink", srcOut, sinkIn)

	var mu sync.Mutex
	var collected []frame.Frame
	sinkSt := reg.Register("sink")
	sinkWrapper := resilience.New("sink", func() node.Node { return sink{mu: &mu, out: &collected} }, nil,
		resilience.Config{Restart: resilience.RestartConfig{Policy: resilience.Never}}, sinkSt)
	sinkOut := make(chan frame.Frame)
	b.AddTask("sink", func(ctx context.Context) error {
		return sinkWrapper.Run(ctx, b.Gated(sinkIn.RecvCh()), sinkOut)
	})
	b.AddTask("sink-out-drain", func(context.Context) error {
		for range sinkOut {
		}
		return nil
	})

	return &harness{pipe: b.Build(), collected: &collected, mu: &mu, regs: reg}
}

func sendN(p *pipeline.Pipeline, n int) {
	for i := int64(0); i < int64(n); i++ {
		f := frame.New(i, i).WithChannel("x", frame.NewSamples([]float64{float64(i)}))
		Expect(p.Trigger(context.Background(), f)).To(Succeed())
	}
}

func awaitState(p *pipeline.Pipeline, want pipeline.State) {
	Eventually(p.State, 2*time.Second, 5*time.Millisecond).Should(Equal(want))
}

var _ = Describe("Pipeline", func() {
	It("delivers every frame losslessly through a linear source->sink graph", func() {
		h := buildHarness(4, channel.Block, func() node.Node { return passthrough{} },
			resilience.Config{Restart: resilience.RestartConfig{Policy: resilience.Never}})
		Expect(h.pipe.Start()).To(Succeed())
		awaitState(h.pipe, pipeline.Running)

		sendN(h.pipe, 9)
		Expect(h.pipe.Stop()).To(Succeed())
		awaitState(h.pipe, pipeline.Completed)

		h.mu.Lock()
		defer h.mu.Unlock()
		Expect(*h.collected).To(HaveLen(9))
		for i, f := range *h.collected {
			Expect(f.Sequence()).To(Equal(int64(i)))
		}
	})

	It("rejects new triggers once Paused and resumes delivery on Resume", func() {
		h := buildHarness(4, channel.Block, func() node.Node { return passthrough{} },
			resilience.Config{Restart: resilience.RestartConfig{Policy: resilience.Never}})
		Expect(h.pipe.Start()).To(Succeed())
		awaitState(h.pipe, pipeline.Running)

		Expect(h.pipe.Pause()).To(Succeed())
		Expect(h.pipe.Trigger(context.Background(), frame.New(0, 0))).To(HaveOccurred())

		Expect(h.pipe.Resume()).To(Succeed())
		sendN(h.pipe, 3)
		Expect(h.pipe.Stop()).To(Succeed())
		awaitState(h.pipe, pipeline.Completed)

		h.mu.Lock()
		defer h.mu.Unlock()
		Expect(*h.collected).To(HaveLen(3))
	})

	It("drops only the failing frame under the SkipFrame error policy", func() {
		h := buildHarness(16, channel.Block, func() node.Node { return &failEveryNth{n: 3} },
			resilience.Config{ErrorPolicy: resilience.SkipFrame, Restart: resilience.RestartConfig{Policy: resilience.Never}})
		Expect(h.pipe.Start()).To(Succeed())
		awaitState(h.pipe, pipeline.Running)

		sendN(h.pipe, 9)
		Expect(h.pipe.Stop()).To(Succeed())
		awaitState(h.pipe, pipeline.Completed)

		h.mu.Lock()
		defer h.mu.Unlock()
		Expect(*h.collected).To(HaveLen(6))

		var sourceErrors int64
		for _, snap := range h.regs.Snapshot() {
			if snap.NodeID == "source" {
				sourceErrors = snap.Errors
			}
		}
		Expect(sourceErrors).To(Equal(int64(3)))
	})

	It("transitions to Error on an unrecoverable task failure with Never restart", func() {
		h := buildHarness(4, channel.Block, func() node.Node { return panicker{} },
			resilience.Config{Restart: resilience.RestartConfig{Policy: resilience.Never}})
		events := h.pipe.Subscribe()
		Expect(h.pipe.Start()).To(Succeed())
		awaitState(h.pipe, pipeline.Running)

		sendN(h.pipe, 1)
		awaitState(h.pipe, pipeline.Error)

		var sawError bool
	drain:
		for {
			select {
			case e := <-events:
				if e.State == pipeline.Error {
					sawError = true
				}
			default:
				break drain
			}
		}
		Expect(sawError).To(BeTrue())
		Expect(h.pipe.Trigger(context.Background(), frame.New(0, 0))).To(HaveOccurred())
		Expect(h.pipe.Stop()).To(Succeed())
	})
})
