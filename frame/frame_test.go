/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package frame_test

import (
	"testing"

	"github.com/streamlab-io/core/frame"
)

func TestWithChannelDoesNotMutateOriginal(t *testing.T) {
	f0 := frame.New(100, 0)
	f1 := f0.WithChannel("main", frame.NewSamples([]float64{1, 2, 3}))

	if _, ok := f0.Channel("main"); ok {
		t.Fatalf("original frame must not observe channel added to derived frame")
	}
	s, ok := f1.Channel("main")
	if !ok || s.Len() != 3 {
		t.Fatalf("derived frame missing channel: ok=%v len=%d", ok, s.Len())
	}
}

func TestCloneSharesBackingArray(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	f0 := frame.New(0, 0).WithChannel("x", frame.NewSamples(data))
	f1 := f0.Clone()

	s0, _ := f0.Channel("x")
	s1, _ := f1.Channel("x")
	if &s0.Slice()[0] != &s1.Slice()[0] {
		t.Fatalf("clone must share the underlying sample vector by reference")
	}
}

func TestCloneIsCheapRegardlessOfChannelCount(t *testing.T) {
	f := frame.New(0, 0)
	for i := 0; i < 16; i++ {
		f = f.WithChannel(string(rune('a'+i)), frame.NewSamples(make([]float64, 1<<16)))
	}
	clone := f.Clone()
	if len(clone.ChannelNames()) != 16 {
		t.Fatalf("expected 16 channels after clone, got %d", len(clone.ChannelNames()))
	}
}

func TestSequenceAndTimestampPreserved(t *testing.T) {
	f := frame.New(42, 7)
	if f.Timestamp() != 42 || f.Sequence() != 7 {
		t.Fatalf("unexpected timestamp/sequence: %d/%d", f.Timestamp(), f.Sequence())
	}
	f2 := f.WithMetadata("k", "v")
	if f2.Timestamp() != 42 || f2.Sequence() != 7 {
		t.Fatalf("metadata mutation must not touch timestamp/sequence")
	}
	v, ok := f2.Metadata("k")
	if !ok || v != "v" {
		t.Fatalf("expected metadata k=v, got %q ok=%v", v, ok)
	}
	if _, ok := f.Metadata("k"); ok {
		t.Fatalf("original frame must not observe metadata added to derived frame")
	}
}
