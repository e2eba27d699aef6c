//go:build !mono

// Package mono provides a monotonic nanosecond clock used for latency
// measurement on the data path. It never calls time.Now() more than the
// caller asks it to, and never allocates.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var epoch = time.Now()

// NanoTime returns nanoseconds elapsed since process start, monotonic
// within a single process. Only deltas between two NanoTime() calls are
// meaningful; the absolute value carries no wall-clock significance.
func NanoTime() int64 { return int64(time.Since(epoch)) }
