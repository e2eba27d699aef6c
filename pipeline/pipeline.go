// Package pipeline drives one compiled graph instance through its state
// machine (spec §4.5): Idle → Initializing → Running ⇄ Paused →
// Completed, with Error reachable from Initializing, Running or Paused. A
// Pipeline owns the node tasks, the compiled channel topology, the
// trigger endpoint, and the metrics registry; it is created by the
// graph compiler, started once, stopped once, never restarted.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"context"
	"fmt"
	"sync"
	ratomic "sync/atomic"
	"time"

	"github.com/streamlab-io/core/channel"
	"github.com/streamlab-io/core/cmn/cos"
	"github.com/streamlab-io/core/cmn/nlog"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/stats"
)

type Pipeline struct {
	id      string
	stats   *stats.Registry
	gate    *pauseGate
	trigger *channel.Bounded
	tasks   []taskSpec

	mu        sync.Mutex
	state     State
	startedAt time.Time
	pausedAt  time.Time

	framesAccepted int64 // atomic

	subsMu sync.Mutex
	subs   []chan Event

	wg   sync.WaitGroup
	errs cos.Errs

	stopOnce sync.Once
}

func (p *Pipeline) ID() string { return p.id }

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Stats() *stats.Registry { return p.stats }

func (p *Pipeline) Monitor() *stats.Monitor { return stats.NewMonitor(p.id, p.stats) }

// FramesAccepted is the Running-state "frames-processed counter" (spec
// §4.5), counting triggers accepted onto the source's inbound edge.
func (p *Pipeline) FramesAccepted() int64 { return ratomic.LoadInt64(&p.framesAccepted) }

// Subscribe registers a new status-event listener (spec §6). Events are
// delivered in transition order on a small buffered channel; when a
// consumer falls behind and its channel is full, the new event is
// dropped with a warning rather than stalling the pipeline.
func (p *Pipeline) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()
	return ch
}

func (p *Pipeline) publish(e Event) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- e:
		default:
			nlog.Warningf("pipeline %s: event subscriber lagging, dropped %s", p.id, e.State)
		}
	}
}

// transition applies a legal state change atomically with respect to
// observers, then publishes the status event (spec §4.5).
func (p *Pipeline) transition(next State, errStr string) error {
	p.mu.Lock()
	cur := p.state
	if !cur.canGoTo(next) {
		p.mu.Unlock()
		return fmt.Errorf("pipeline %s: illegal transition %s -> %s", p.id, cur, next)
	}
	p.state = next
	switch next {
	case Running:
		if p.startedAt.IsZero() {
			p.startedAt = time.Now()
		}
	case Paused:
		p.pausedAt = time.Now()
	}
	p.mu.Unlock()

	p.publish(Event{ID: p.id, State: next, Error: errStr})
	return nil
}

// Start spawns every compiled task and moves Idle -> Initializing ->
// Running. Only callable from Idle (spec §4.5).
func (p *Pipeline) Start() error {
	if err := p.transition(Initializing, ""); err != nil {
		return err
	}

	ctx := context.Background()
	firstErr := make(chan error, 1)
	p.wg.Add(len(p.tasks))
	for _, t := range p.tasks {
		t := t
		go func() {
			defer p.wg.Done()
			if err := t.run(ctx); err != nil {
				wrapped := fmt.Errorf("task %s: %w", t.id, err)
				p.errs.Add(wrapped)
				select {
				case firstErr <- wrapped:
				default:
				}
			}
		}()
	}

	if err := p.transition(Running, ""); err != nil {
		return err
	}
	go p.supervise(firstErr)
	return nil
}

// supervise transitions to Error as soon as any task fails, or to
// Completed once every task has returned successfully (spec §4.5 step
// 5). On a task failure the Error event is published at once, before
// the remaining tasks have joined; supervise itself returns only after
// every task has.
func (p *Pipeline) supervise(firstErr chan error) {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case err := <-firstErr:
		if tErr := p.transition(Error, err.Error()); tErr != nil {
			nlog.Warningf("pipeline %s: %v", p.id, tErr)
		}
		<-done
	case <-done:
		select {
		case err := <-firstErr:
			if tErr := p.transition(Error, err.Error()); tErr != nil {
				nlog.Warningf("pipeline %s: %v", p.id, tErr)
			}
			return
		default:
		}
		p.mu.Lock()
		alreadyErr := p.state == Error
		p.mu.Unlock()
		if !alreadyErr {
			if tErr := p.transition(Completed, ""); tErr != nil {
				nlog.Warningf("pipeline %s: %v", p.id, tErr)
			}
		}
	}
}

// Trigger enqueues f onto the source node's inbound edge, subject to the
// graph's overflow policy (spec §4.5). Only valid while Running.
func (p *Pipeline) Trigger(ctx context.Context, f frame.Frame) error {
	if p.State() != Running {
		return fmt.Errorf("pipeline %s: trigger rejected, state=%s", p.id, p.State())
	}
	if err := p.trigger.Send(ctx, f); err != nil {
		return err
	}
	ratomic.AddInt64(&p.framesAccepted, 1)
	return nil
}

// Pause stops trigger acceptance and suspends every task at its next
// channel operation without consuming a frame (spec §4.5).
func (p *Pipeline) Pause() error {
	if err := p.transition(Paused, ""); err != nil {
		return err
	}
	p.gate.Pause()
	return nil
}

// Resume releases every suspended task and reopens trigger acceptance.
func (p *Pipeline) Resume() error {
	if err := p.transition(Running, ""); err != nil {
		return err
	}
	p.gate.Resume()
	return nil
}

// Stop drives the pipeline to completion by dropping the trigger
// endpoint, never by aborting tasks (spec §5 Cancellation). It always
// succeeds, idempotently: calling it more than once, or from a state
// where nothing is running, is a no-op.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		state := p.State()
		if state == Paused {
			// resume first so drains make progress, per spec §5
			p.gate.Resume()
		}
		if state == Running || state == Paused {
			p.trigger.Close()
		}
	})
	return nil
}
