/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"sync"

	"github.com/streamlab-io/core/frame"
)

// pauseGate is the suspend/resume barrier behind the Paused state (spec
// §4.5: "running tasks remain suspended at their next channel operation
// (no frames consumed)"). paused is nil while running; while paused it
// holds an open channel that Resume closes to release every waiter.
type pauseGate struct {
	mu     sync.Mutex
	paused chan struct{}
}

func newPauseGate() *pauseGate { return &pauseGate{} }

func (g *pauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused == nil {
		g.paused = make(chan struct{})
	}
}

func (g *pauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused != nil {
		close(g.paused)
		g.paused = nil
	}
}

func (g *pauseGate) wait() {
	g.mu.Lock()
	ch := g.paused
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

// gated interposes the pause gate between a compiled edge and the task
// that consumes it: the returned channel yields nothing further while
// paused, so the task's next channel operation suspends there without
// consuming a frame: frames stay queued on the upstream edge, except
// one the relay had already taken from it when Pause was called, which
// the relay holds until Resume (spec §4.5). Shutdown is still purely channel-closing: once in closes
// and drains, the relay closes its output and returns, no context needed.
func gated(gate *pauseGate, in <-chan frame.Frame) <-chan frame.Frame {
	out := make(chan frame.Frame)
	go func() {
		defer close(out)
		for {
			gate.wait()
			f, ok := <-in
			if !ok {
				return
			}
			gate.wait()
			out <- f
		}
	}()
	return out
}
