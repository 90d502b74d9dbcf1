package api

// EventType identifies an event on a run's event channel.
type EventType string

const (
	// EventLog is published after every step that produced a log entry.
	EventLog EventType = "log"

	// EventCompletion is the final event of every run, carrying a snapshot
	// of the terminal RunInfo. Exactly one is published per run and it
	// signals the consumer to stop reading.
	EventCompletion EventType = "completion"
)

// Event is one message on a run's event channel.
type Event struct {
	Type    EventType `json:"type"`
	Entry   *LogEntry `json:"entry,omitempty"`
	RunInfo *RunInfo  `json:"run_info,omitempty"`
}

// EventStream is the single-consumer view of one run's event channel. The
// channel returned by Events is closed after the completion event has been
// delivered. Close disposes the underlying relay and is idempotent; it must
// be called once the consumer is done, whether or not it drained the
// stream.
type EventStream interface {
	Events() <-chan Event
	Close()
}
