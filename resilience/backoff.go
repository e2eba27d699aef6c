/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package resilience

import "time"

// backoff tracks consecutive restart failures for the Exponential
// restart policy, independently of the circuit-breaker state machine
// (the two policies are mutually exclusive per node).
type backoff struct {
	base, max   time.Duration
	consecutive int
}

func newBackoff(cfg RestartConfig) *backoff {
	return &backoff{base: cfg.BaseDelay, max: cfg.MaxDelay}
}

// next returns the delay to wait before the next restart attempt and
// advances the consecutive-failure count.
func (b *backoff) next() time.Duration {
	d := b.base << b.consecutive
	if d <= 0 || d > b.max { // overflow or past the cap
		d = b.max
	}
	b.consecutive++
	return d
}

func (b *backoff) reset() {
	b.consecutive = 0
}
