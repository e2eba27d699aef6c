/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

// State is one value of the pipeline state machine (spec §4.5).
type State int32

const (
	Idle State = iota
	Initializing
	Running
	Paused
	Completed
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Initializing:
		return "Initializing"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Completed:
		return "Completed"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// legal is the transition table: legal[cur] lists every state reachable
// directly from cur. Everything else is an illegal transition request
// (spec §4.5: "Illegal transition requests fail with a well-typed error
// and do not mutate state").
var legal = map[State][]State{
	Idle:         {Initializing},
	Initializing: {Running, Error},
	Running:      {Paused, Completed, Error},
	Paused:       {Running, Completed, Error},
	Completed:    {},
	Error:        {},
}

func (s State) canGoTo(next State) bool {
	for _, v := range legal[s] {
		if v == next {
			return true
		}
	}
	return false
}
