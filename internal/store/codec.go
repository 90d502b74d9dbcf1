package store

import (
	"encoding/json"

	"github.com/petrijr/nodeflow/pkg/api"
)

// Archived runs are serialized as JSON. The state document and log entries
// are JSON-native by contract (api.State.Snapshot round-trips through
// JSON), so JSON is lossless here where a binary codec would need type
// registration for every value handlers might store.

func encodeLogs(logs []api.LogEntry) ([]byte, error) {
	if logs == nil {
		logs = []api.LogEntry{}
	}
	return json.Marshal(logs)
}

func decodeLogs(data []byte) ([]api.LogEntry, error) {
	if len(data) == 0 {
		return []api.LogEntry{}, nil
	}
	var logs []api.LogEntry
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func encodeState(state api.State) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func decodeState(data []byte) (api.State, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var state api.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}
