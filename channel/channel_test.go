/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package channel_test

import (
	"context"
	"testing"
	"time"

	"github.com/streamlab-io/core/channel"
	"github.com/streamlab-io/core/frame"
)

func TestBlockPolicyBlocksWhenFull(t *testing.T) {
	b := channel.NewBounded(1, channel.Block)
	ctx := context.Background()
	if err := b.Send(ctx, frame.New(0, 0)); err != nil {
		t.Fatalf("first send: %v", err)
	}

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := b.Send(ctx2, frame.New(0, 1)); err == nil {
		t.Fatalf("expected timeout error on send to full channel under Block policy")
	}
}

func TestDropNewestDiscardsSilently(t *testing.T) {
	b := channel.NewBounded(1, channel.DropNewest)
	ctx := context.Background()
	if err := b.Send(ctx, frame.New(0, 0)); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := b.Send(ctx, frame.New(0, 1)); err != nil {
		t.Fatalf("DropNewest must never return an error: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected len 1, got %d", b.Len())
	}
	f, _ := b.Recv()
	if f.Sequence() != 0 {
		t.Fatalf("expected original frame retained, got seq=%d", f.Sequence())
	}
}

func TestDropOldestEvictsFront(t *testing.T) {
	b := channel.NewBounded(1, channel.DropOldest)
	ctx := context.Background()
	if err := b.Send(ctx, frame.New(0, 0)); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := b.Send(ctx, frame.New(0, 1)); err != nil {
		t.Fatalf("DropOldest must never return an error: %v", err)
	}
	f, _ := b.Recv()
	if f.Sequence() != 1 {
		t.Fatalf("expected newest frame (seq=1) retained, got seq=%d", f.Sequence())
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	b := channel.NewBounded(2, channel.Block)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Send(ctx, frame.New(0, int64(i))); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if b.Len() > b.Capacity() {
		t.Fatalf("len %d exceeds capacity %d", b.Len(), b.Capacity())
	}
}

func TestSplitterFanOutFidelity(t *testing.T) {
	in := make(chan frame.Frame)
	d1 := channel.NewBounded(16, channel.Block)
	d2 := channel.NewBounded(16, channel.Block)
	sp := channel.NewSplitter(in, []*channel.Bounded{d1, d2})

	done := make(chan error, 1)
	go func() { done <- sp.Run(context.Background()) }()

	const n = 10
	for i := 0; i < n; i++ {
		in <- frame.New(0, int64(i))
	}
	close(in)
	if err := <-done; err != nil {
		t.Fatalf("splitter run: %v", err)
	}

	for _, d := range []*channel.Bounded{d1, d2} {
		for i := 0; i < n; i++ {
			f, ok := d.Recv()
			if !ok || f.Sequence() != int64(i) {
				t.Fatalf("downstream expected seq=%d, got %d ok=%v", i, f.Sequence(), ok)
			}
		}
		if _, ok := d.Recv(); ok {
			t.Fatalf("expected downstream closed after fan-out completes")
		}
	}
}
