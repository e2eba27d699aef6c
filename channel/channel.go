// Package channel implements the bounded FIFO channel fabric that links
// pipeline nodes: direct producer→consumer edges, and the splitter that
// materializes fan-out. No unbounded buffer exists anywhere on the data
// path (spec §4.3).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package channel

import (
	"context"
	"fmt"

	"github.com/streamlab-io/core/frame"
)

// Policy is the overflow rule applied when a Bounded channel is full.
// Selected once per pipeline, not per edge (spec §4.3).
type Policy int

const (
	// Block suspends the producer until space is available. Default;
	// strongest correctness, the only lossless mode.
	Block Policy = iota
	// DropOldest evicts the front frame and enqueues the new one.
	DropOldest
	// DropNewest discards the incoming frame and returns without error.
	DropNewest
)

func (p Policy) String() string {
	switch p {
	case Block:
		return "block"
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses the graph document's overflow_policy string.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "block":
		return Block, nil
	case "drop_oldest":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Bounded is a capacity-C FIFO with exactly one producer endpoint and one
// consumer endpoint (spec §4.3). Ordering is strict FIFO. It wraps a
// native Go channel, which already gives block-on-full / block-on-empty
// for free; the drop policies are implemented as a non-blocking send
// with an eviction fallback, valid because each Bounded has a single
// producer by construction (the compiler never wires two senders onto
// one Bounded).
type Bounded struct {
	ch       chan frame.Frame
	capacity int
	policy   Policy
}

// NewBounded allocates a channel of the given capacity (must be >= 1)
// and overflow policy.
func NewBounded(capacity int, policy Policy) *Bounded {
	if capacity < 1 {
		panic("channel: capacity must be >= 1")
	}
	return &Bounded{ch: make(chan frame.Frame, capacity), capacity: capacity, policy: policy}
}

func (b *Bounded) Capacity() int { return b.capacity }
func (b *Bounded) Policy() Policy { return b.policy }

// Len returns the number of frames currently queued. Never exceeds
// Capacity() at any observation (spec §8 testable property).
func (b *Bounded) Len() int { return len(b.ch) }

// Send enqueues f subject to the channel's overflow policy. Under Block,
// it suspends until space is available or ctx is done, whichever comes
// first — this is how a caller's per-operation timeout on trigger (spec
// §4.5) is implemented. Under DropNewest, a full channel silently
// discards f and returns nil. Under DropOldest, a full channel evicts
// the frame at the front before enqueuing f.
func (b *Bounded) Send(ctx context.Context, f frame.Frame) error {
	switch b.policy {
	case Block:
		select {
		case b.ch <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case DropNewest:
		select {
		case b.ch <- f:
		default:
		}
		return nil
	case DropOldest:
		for attempts := 0; attempts < 8; attempts++ {
			select {
			case b.ch <- f:
				return nil
			default:
			}
			select {
			case <-b.ch:
			default:
			}
		}
		// Pathological contention (a concurrent receiver keeps refilling
		// between our evict and our send): fall back to a blocking send
		// so we never silently drop under DropOldest.
		select {
		case b.ch <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("channel: unknown policy %d", b.policy)
	}
}

// Recv blocks until a frame is available or the channel is closed and
// drained, in which case ok is false.
func (b *Bounded) Recv() (f frame.Frame, ok bool) {
	f, ok = <-b.ch
	return
}

// RecvCh exposes the receive side directly for select-based consumers,
// e.g. pipeline.gated's pause-gate relay.
func (b *Bounded) RecvCh() <-chan frame.Frame { return b.ch }

// Close drops the producer endpoint. Per the shutdown protocol (spec
// §4.5), a node closes its outbound Bounded after it has observed its
// own inbound closed and drained; it never aborts mid-frame.
func (b *Bounded) Close() { close(b.ch) }
