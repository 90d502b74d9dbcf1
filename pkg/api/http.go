package api

// HTTP request and response payloads for the daemon's REST surface.

type (
	// CreateRunRequest starts a run of a previously registered graph.
	CreateRunRequest struct {
		GraphID      string `json:"graph_id"`
		InitialState State  `json:"initial_state"`
	}

	// GraphCreatedResponse acknowledges graph registration.
	GraphCreatedResponse struct {
		GraphID string `json:"graph_id"`
	}

	// RunStartedResponse acknowledges that a run was created and started.
	RunStartedResponse struct {
		RunID string `json:"run_id"`
	}

	// HealthResponse reports daemon liveness.
	HealthResponse struct {
		Service string `json:"service"`
		Status  string `json:"status"`
	}

	// ErrorResponse is the uniform error payload.
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
)
