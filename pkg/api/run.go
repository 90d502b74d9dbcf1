package api

import "encoding/json"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusFailed    RunStatus = "FAILED"

	// StatusCancelled is reserved vocabulary: no code path produces it
	// today, but collaborators may already match on it. A cancellation
	// mechanism would set it at an iteration boundary.
	StatusCancelled RunStatus = "CANCELLED"
)

// Terminal reports whether the status ends a run's lifecycle.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusPending, StatusRunning:
		return false
	}
	return false
}

// State is the mutable document threaded through every step of one run. The
// engine treats it as an opaque carrier; handlers agree on keys among
// themselves. Values must stay JSON-serializable so the state can be
// snapshotted for logging and shipped over the wire.
type State map[string]any

// Snapshot deep-copies the state into a plain serializable form by round-
// tripping it through JSON. Typed values handlers stored in the live state
// come back as generic maps, slices, and float64s, which is what log
// entries and wire payloads want.
func (s State) Snapshot() State {
	if s == nil {
		return State{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return State{}
	}
	var copied State
	if err := json.Unmarshal(data, &copied); err != nil {
		return State{}
	}
	return copied
}

// LogEntry records one executed (or failed) step. Entries are append-only;
// StepIndex equals execution order starting at 0.
type LogEntry struct {
	StepIndex     int    `json:"step_index"`
	NodeName      string `json:"node_name"`
	StateSnapshot State  `json:"state_snapshot"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunInfo is the progress record of one run. While the status is RUNNING it
// is owned and mutated exclusively by the run loop; readers polling it may
// observe a mid-step snapshot. Once a terminal status is set the record is
// read-only.
type RunInfo struct {
	RunID       string     `json:"run_id"`
	GraphID     string     `json:"graph_id"`
	Status      RunStatus  `json:"status"`
	CurrentNode string     `json:"current_node,omitempty"`
	StepCount   int        `json:"step_count"`
	Logs        []LogEntry `json:"logs"`
	FinalState  State      `json:"final_state,omitempty"`
}
