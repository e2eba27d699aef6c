/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package resilience

import (
	"sync"
	"time"
)

type breakerState int

const (
	closedState breakerState = iota
	openState
	halfOpenState
)

// breaker implements the CircuitBreaker restart policy's state machine:
// closed (normal) -> open (after N consecutive failures within a
// window) -> half-open (one probe) -> closed on success, or open again
// on probe failure.
type breaker struct {
	mu               sync.Mutex
	threshold        int
	window, cooldown time.Duration

	consecutive int
	windowStart time.Time
	state       breakerState
}

func newBreaker(cfg RestartConfig) *breaker {
	return &breaker{threshold: cfg.BreakerThreshold, window: cfg.BreakerWindow, cooldown: cfg.BreakerCooldown}
}

// Gate blocks (via wait, which the caller implements as "drain inbound
// frames, counting them as errors, for up to this long") if the circuit
// is currently open, then transitions to half-open so the next attempt
// is treated as the single permitted probe. No-op when closed or
// already half-open.
func (b *breaker) Gate(wait func(time.Duration)) {
	b.mu.Lock()
	state := b.state
	cooldown := b.cooldown
	b.mu.Unlock()

	if state != openState {
		return
	}
	wait(cooldown)
	b.mu.Lock()
	b.state = halfOpenState
	b.mu.Unlock()
}

// RecordFailure accounts one task-level failure. Returns true if the
// circuit is now open (the caller should not restart immediately).
func (b *breaker) RecordFailure() (open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if b.state == halfOpenState {
		// the probe failed: reopen without needing another threshold hit
		b.state = openState
		b.consecutive = 0
		return true
	}

	if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.window {
		b.windowStart = now
		b.consecutive = 0
	}
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.state = openState
		return true
	}
	return false
}

// RecordSuccess resets the breaker to closed, confirming a half-open
// probe (if one was in flight) or simply clearing the failure count.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = closedState
	b.consecutive = 0
	b.windowStart = time.Time{}
}
