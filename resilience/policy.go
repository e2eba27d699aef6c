// Package resilience wraps every node before spawn with a per-node
// error policy and restart strategy (spec §4.6), so node implementations
// stay ignorant of retry/circuit-breaking concerns.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package resilience

import "time"

// ErrorPolicy governs a per-frame processing failure (spec §4.6). Only
// meaningful for nodes implementing node.Processor; nodes driving their
// own Run loop have no per-frame boundary to apply it at.
type ErrorPolicy int

const (
	// Propagate re-raises the error, terminating the task; the pipeline
	// transitions to Error.
	Propagate ErrorPolicy = iota
	// SkipFrame logs, increments the error counter, drops the offending
	// frame, and continues.
	SkipFrame
	// UseDefault forwards a zero-valued substitute frame and continues.
	UseDefault
)

// RestartPolicy governs a task-level failure (panic or Run returning a
// non-nil error).
type RestartPolicy int

const (
	// Never: the wrapper returns the failure; pipeline transitions to
	// Error.
	Never RestartPolicy = iota
	// Immediate: recreate the node via its factory, re-run Configure
	// with the original document, resume with a fresh task. Frames
	// already buffered in the inbound channel are preserved because the
	// channel itself is never recreated.
	Immediate
	// Exponential: as Immediate, with a delay that doubles on each
	// consecutive failure up to MaxDelay.
	Exponential
	// CircuitBreaker: after BreakerThreshold consecutive restart
	// failures within BreakerWindow, trip open for BreakerCooldown,
	// during which inbound frames are dropped and counted as errors;
	// then half-open, permitting exactly one probe restart.
	CircuitBreaker
)

// RestartConfig parameterizes Exponential and CircuitBreaker.
type RestartConfig struct {
	Policy           RestartPolicy
	BaseDelay        time.Duration // Exponential: delay before the first retry
	MaxDelay         time.Duration // Exponential: cap on the backoff delay
	BreakerThreshold int           // CircuitBreaker: consecutive failures before tripping
	BreakerWindow    time.Duration
	BreakerCooldown  time.Duration
}

func (c RestartConfig) withDefaults() RestartConfig {
	if c.BaseDelay <= 0 {
		c.BaseDelay = 50 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 3
	}
	if c.BreakerWindow <= 0 {
		c.BreakerWindow = 10 * time.Second
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 2 * time.Second
	}
	return c
}

// Config is the full per-node resilience configuration.
type Config struct {
	ErrorPolicy ErrorPolicy
	Restart     RestartConfig
}
