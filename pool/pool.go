// Package pool gates concurrent pipeline instances behind an admission
// semaphore (spec §4.8): a pool holds one cached graph description and
// an admission limit K, compiling and running one fresh pipeline per
// Execute call once a permit is free.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/streamlab-io/core/cmn/cos"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/graph"
	"github.com/streamlab-io/core/node"
	"github.com/streamlab-io/core/pipeline"
)

// RejectMode governs what happens when every permit is held.
type RejectMode int

const (
	// QueueIndefinitely blocks Execute until a permit frees up. Default.
	QueueIndefinitely RejectMode = iota
	// FailFast returns ErrResourceExhausted immediately instead of queueing.
	FailFast
)

// ErrResourceExhausted is returned by Execute under FailFast when no
// permit is immediately available (spec §7 taxonomy item 5).
var ErrResourceExhausted = errors.New("pool: resource exhausted")

// idGenOnce seeds the ID generator before the first pipeline ID is drawn.
var idGenOnce sync.Once

// Pool holds a cached graph document and admits at most K concurrent
// pipeline instances, via golang.org/x/sync/semaphore (the same module
// the teacher already depends on, for fs.WalkBck's errgroup-based
// bounded fan-out).
type Pool struct {
	doc  *graph.Doc
	reg  *node.Registry
	sem  *semaphore.Weighted
	mode RejectMode
}

// New constructs a pool over doc with admission limit k (k >= 1).
func New(doc *graph.Doc, reg *node.Registry, k int64, mode RejectMode) *Pool {
	if k < 1 {
		panic("pool: admission limit must be >= 1")
	}
	return &Pool{doc: doc, reg: reg, sem: semaphore.NewWeighted(k), mode: mode}
}

// Handle is the completion handle Execute returns (spec §6: "Execute
// (graph_ref, trigger) → completion handle"). Pipeline blocks until the
// submission's pipeline has been compiled (or returns nil if compilation
// failed); Wait blocks until the submission has completed or errored.
type Handle struct {
	ready chan struct{}
	pipe  *pipeline.Pipeline
	done  chan error
}

func newHandle() *Handle {
	return &Handle{ready: make(chan struct{}), done: make(chan error, 1)}
}

func (h *Handle) resolvePipeline(p *pipeline.Pipeline) {
	h.pipe = p
	close(h.ready)
}

func (h *Handle) Pipeline() *pipeline.Pipeline {
	<-h.ready
	return h.pipe
}

func (h *Handle) Wait() error { return <-h.done }

// Execute submits one instantiation: it acquires a permit (blocking the
// caller only on admission, per spec §4.8 — compiling and running happen
// in the background), then compiles a fresh pipeline, starts it, enqueues
// trigger, and releases the permit once the pipeline reaches a terminal
// state. A compile error during Execute does not consume a permit beyond
// its own release (spec §7 taxonomy item 5).
func (p *Pool) Execute(ctx context.Context, trigger frame.Frame) (*Handle, error) {
	if p.mode == FailFast {
		if !p.sem.TryAcquire(1) {
			return nil, ErrResourceExhausted
		}
	} else if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	h := newHandle()
	go p.run(h, trigger)
	return h, nil
}

func (p *Pool) run(h *Handle, trigger frame.Frame) {
	defer p.sem.Release(1)

	idGenOnce.Do(func() { cos.InitIDGen(uint64(time.Now().UnixNano())) })
	id := cos.GenUUID()
	pl, err := graph.Compile(id, p.doc, p.reg)
	if err != nil {
		h.resolvePipeline(nil)
		h.done <- errors.Wrap(err, "pool: compile")
		return
	}
	h.resolvePipeline(pl)

	events := pl.Subscribe()
	if err := pl.Start(); err != nil {
		h.done <- errors.Wrap(err, "pool: start")
		return
	}
	if err := pl.Trigger(context.Background(), trigger); err != nil {
		_ = pl.Stop()
		h.done <- errors.Wrap(err, "pool: trigger")
		return
	}
	_ = pl.Stop() // one trigger per submission; the pool never reuses a pipeline (spec §4.8)

	for e := range events {
		switch e.State {
		case pipeline.Completed:
			h.done <- nil
			return
		case pipeline.Error:
			h.done <- fmt.Errorf("pipeline %s: %s", e.ID, e.Error)
			return
		}
	}
}
