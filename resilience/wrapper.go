/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streamlab-io/core/cmn/mono"
	"github.com/streamlab-io/core/cmn/nlog"
	"github.com/streamlab-io/core/frame"
	"github.com/streamlab-io/core/hk"
	"github.com/streamlab-io/core/node"
	"github.com/streamlab-io/core/stats"
)

// hkStart ensures the process-wide housekeeper is draining registrations
// before the first restart policy relies on it firing. Every package
// that schedules hk callbacks races to start it exactly once; hk.Run is
// safe to call from only one goroutine, hence the Once.
var hkStart sync.Once

func ensureHKRunning() {
	hkStart.Do(func() { go hk.DefaultHK.Run() })
}

// Wrapper drives one node with the configured error and restart
// policies applied. It receives the same inbound/outbound channels the
// bare node would have received (spec §4.6): restart never swaps the
// channels out, so upstream producers never observe a reconnect.
type Wrapper struct {
	nodeID  string
	factory node.Factory
	config  map[string]any
	policy  Config
	st      *stats.NodeStats
	breaker *breaker
}

func New(nodeID string, factory node.Factory, config map[string]any, policy Config, st *stats.NodeStats) *Wrapper {
	policy.Restart = policy.Restart.withDefaults()
	w := &Wrapper{nodeID: nodeID, factory: factory, config: config, policy: policy, st: st}
	if policy.Restart.Policy == CircuitBreaker {
		w.breaker = newBreaker(policy.Restart)
	}
	if policy.Restart.Policy == Exponential || policy.Restart.Policy == CircuitBreaker {
		ensureHKRunning()
	}
	return w
}

// Run supervises the node across restarts until it completes
// successfully, ctx is done, a (re)configure fails, or a failure occurs
// under the Never policy. Immediate, Exponential and CircuitBreaker
// restart without an attempt limit. In is never closed
// or replaced across restarts; out is closed exactly once, when Run
// returns.
func (w *Wrapper) Run(ctx context.Context, in node.Inbound, out node.Outbound) (err error) {
	defer close(out)

	n, cfgErr := w.freshNode()
	if cfgErr != nil {
		return cfgErr
	}
	bo := newBackoff(w.policy.Restart)

	for {
		runErr := w.runOnceRecovered(ctx, n, in, out)
		if runErr == nil {
			if w.breaker != nil {
				w.breaker.RecordSuccess()
			}
			bo.reset()
			return nil
		}
		if ctx.Err() != nil {
			return nil // cooperative shutdown, not a task failure
		}
		if w.policy.Restart.Policy == Never {
			return runErr
		}

		w.st.IncRestarts()
		nlog.Warningf("node %s: task failure, applying restart policy: %v", w.nodeID, runErr)

		switch w.policy.Restart.Policy {
		case Exponential:
			w.sleep(ctx, bo.next())
		case CircuitBreaker:
			w.breaker.RecordFailure()
			w.breaker.Gate(func(d time.Duration) { w.drainFor(ctx, in, d) })
		}

		next, cfgErr := w.freshNode()
		if cfgErr != nil {
			return cfgErr
		}
		n = next
	}
}

// freshNode constructs a node via the factory and configures it with the
// originally declared document, per the Open Question resolution in
// SPEC_FULL.md §9 (restart does re-run configure).
func (w *Wrapper) freshNode() (node.Node, error) {
	n := w.factory()
	if err := n.Configure(w.config); err != nil {
		return nil, fmt.Errorf("node %s: configure failed on (re)start: %w", w.nodeID, err)
	}
	return n, nil
}

func (w *Wrapper) runOnceRecovered(ctx context.Context, n node.Node, in node.Inbound, out node.Outbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s: panic: %v", w.nodeID, r)
		}
	}()
	if p, ok := n.(node.Processor); ok {
		return w.runProcessor(ctx, p, in, out)
	}
	return n.Run(ctx, in, out)
}

// runProcessor drives a per-frame node itself, so it can intercept a
// Process error with the configured ErrorPolicy instead of always
// failing the task (spec §4.6).
func (w *Wrapper) runProcessor(ctx context.Context, p node.Processor, in node.Inbound, out node.Outbound) error {
	for f := range in {
		w.st.IncReceived()
		recvDone := mono.NanoTime()
		result, perr := p.Process(ctx, f)
		if perr != nil {
			switch w.policy.ErrorPolicy {
			case Propagate:
				return fmt.Errorf("node %s: %w", w.nodeID, perr)
			case SkipFrame:
				w.st.IncErrors()
				nlog.Warningf("node %s: skipping frame seq=%d: %v", w.nodeID, f.Sequence(), perr)
				continue
			case UseDefault:
				w.st.IncErrors()
				result = zeroFrame(f)
			}
		}
		select {
		case out <- result:
			w.st.IncEmitted()
			w.st.ObserveLatency(mono.NanoTime() - recvDone)
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// zeroFrame builds the UseDefault error policy's substitute frame (spec
// §4.6: "forward a zero-valued substitute frame"): same timestamp,
// sequence, and channel shape as f, with every sample zeroed, so a
// downstream node never sees a gap in frame count or channel layout.
func zeroFrame(f frame.Frame) frame.Frame {
	out := frame.New(f.Timestamp(), f.Sequence())
	for _, name := range f.ChannelNames() {
		s, _ := f.Channel(name)
		out = out.WithChannel(name, frame.NewSamples(make([]float64, s.Len())))
	}
	return out
}

// afterHK schedules a one-shot housekeeper callback that closes the
// returned channel after d, in place of an ad hoc time.AfterFunc (spec
// expansion §4.6). name need only be unique among this node's
// concurrently pending waits; the wrapper only ever has one in flight.
func (w *Wrapper) afterHK(name string, d time.Duration) <-chan struct{} {
	fired := make(chan struct{})
	hk.DefaultHK.Reg(name, func() time.Duration {
		close(fired)
		return hk.UnregInterval
	}, d)
	return fired
}

func (w *Wrapper) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-w.afterHK("resilience:"+w.nodeID+":backoff", d):
	case <-ctx.Done():
	}
}

// drainFor discards inbound frames (counting each as an error) for up
// to d, the duration the circuit breaker stays open.
func (w *Wrapper) drainFor(ctx context.Context, in node.Inbound, d time.Duration) {
	deadline := w.afterHK("resilience:"+w.nodeID+":cooldown", d)
	for {
		select {
		case _, ok := <-in:
			if !ok {
				return
			}
			w.st.IncErrors()
		case <-deadline:
			return
		case <-ctx.Done():
			return
		}
	}
}
