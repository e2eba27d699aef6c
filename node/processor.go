/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package node

import (
	"context"

	"github.com/streamlab-io/core/frame"
)

// Processor is an optional refinement of Node for nodes with per-frame
// semantics (spec §4.6: "if a node exposes per-frame semantics"). A node
// that implements Processor is driven one frame at a time by the
// resilience wrapper, which lets a Process error be handled by the
// configured error policy (Propagate/SkipFrame/UseDefault) instead of
// unconditionally failing the task.
//
// A node that only implements Node (not Processor) owns its own Run
// loop; any failure it returns, or any panic it raises, is a task-level
// failure handled exclusively by the restart policy.
type Processor interface {
	Node
	Process(ctx context.Context, in frame.Frame) (frame.Frame, error)
}
