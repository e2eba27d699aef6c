/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

// Event is one status-event-stream record (spec §6): one per state
// transition, delivered to subscribers in transition order.
type Event struct {
	ID    string
	State State
	Error string
}
