// Package domain defines the core domain models for the platform.
package domain

import "encoding/json"

// AgentConfig is the full configuration of an agent. It is immutable for the
// duration of one run and is the wire format accepted by the run endpoint and
// written to an external runtime's stdin. Field names follow the published
// config schema (camelCase).
type AgentConfig struct {
	ID            string          `json:"id,omitempty"`
	ConfigVersion string          `json:"configVersion"`
	IsDeployed    bool            `json:"isDeployed,omitempty"`
	Info          AgentInfo       `json:"info"`
	Data          DataSpec        `json:"data"`
	LLM           LLMSpec         `json:"llm"`
	Actions       *ActionsSpec    `json:"actions,omitempty"`
	Triggers      *TriggersSpec   `json:"triggers,omitempty"`
	Knowledge     json.RawMessage `json:"knowledge,omitempty"`
	Tools         ToolsSpec       `json:"tools"`
}

// AgentInfo holds identity and the prompt fragments for an agent.
type AgentInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Version      string `json:"version,omitempty"`
	IsPublic     bool   `json:"isPublic,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	Character    string `json:"character"`
	Task         string `json:"task"`
}

// DataSpec describes the analytical data the agent reasons over.
type DataSpec struct {
	EnabledViews []string  `json:"enabledViews,omitempty"`
	UserQuery    string    `json:"userQuery"`
	TimeRange    TimeRange `json:"timeRange"`
}

// TimeRange selects either a sliding window or a fixed interval.
type TimeRange struct {
	Type    string        `json:"type"` // "sliding" or "fixed"
	Sliding *SlidingRange `json:"sliding,omitempty"`
	Fixed   *FixedRange   `json:"fixed,omitempty"`
}

// SlidingRange is a trailing window of Minutes, optionally anchored at a
// backtest start instant instead of now.
type SlidingRange struct {
	StartBacktest string `json:"startBacktest,omitempty"`
	Minutes       int    `json:"minutes"`
}

// FixedRange is an explicit [start, end] interval.
type FixedRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LLMSpec selects the model provider and credentials for a run.
type LLMSpec struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature,omitempty"`
	APIKey      string   `json:"apiKey"`
	Framework   string   `json:"framework,omitempty"`
}

// ActionsSpec holds the external-action hooks an agent may use.
type ActionsSpec struct {
	Twitter *TwitterAction `json:"twitter,omitempty"`
}

// TwitterAction configures the Twitter posting action.
type TwitterAction struct {
	Enabled      bool   `json:"enabled,omitempty"`
	APIKey       string `json:"apiKey"`
	APISecret    string `json:"apiSecret"`
	AccessToken  string `json:"accessToken,omitempty"`
	AccessSecret string `json:"accessSecret,omitempty"`
	Username     string `json:"username,omitempty"`
}

// TriggersSpec configures automatic run triggers for a deployed agent.
type TriggersSpec struct {
	Schedule *ScheduleTrigger `json:"schedule,omitempty"`
}

// ScheduleTrigger runs a deployed agent on a cron schedule.
type ScheduleTrigger struct {
	Enabled bool   `json:"enabled,omitempty"`
	Cron    string `json:"cron"`
}

// ToolsSpec enables tools and carries their per-tool configuration.
type ToolsSpec struct {
	EnabledTools   []string                   `json:"enabledTools,omitempty"`
	Configurations map[string]json.RawMessage `json:"configurations,omitempty"`
}

// ToolEnabled reports whether the named tool is enabled in the config.
func (c *AgentConfig) ToolEnabled(name string) bool {
	for _, t := range c.Tools.EnabledTools {
		if t == name {
			return true
		}
	}
	return false
}

// Model describes an LLM model available to agents.
type Model struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Status      string `json:"status"` // available, installed, downloading, error
}
