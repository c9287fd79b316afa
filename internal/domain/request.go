package domain

// RunOverrides are optional per-call adjustments applied on top of an
// AgentConfig for a single run. The config itself is never mutated.
type RunOverrides struct {
	// UserMessage is an injected follow-up message for conversational runs.
	UserMessage string `json:"userMessage,omitempty"`
}

// RunRequest is the body of the run endpoint: a full agent config plus
// optional overrides. For compatibility with clients that post a bare
// config, the overrides wrapper is optional.
type RunRequest struct {
	AgentConfig
	Overrides *RunOverrides `json:"overrides,omitempty"`
}

// QueryRequest is the body of the data-query proxy endpoint.
type QueryRequest struct {
	Query        string       `json:"query"`
	TimeInterval TimeInterval `json:"timeInterval"`
}

// TimeInterval is the resolved time-window parameters for a data query.
type TimeInterval struct {
	Minutes       int    `json:"minutes"`
	StartBacktest string `json:"startBacktest"`
}
