// Package events defines orchestrator event types and publishers.
package events

// ProviderConnectedEvent is emitted after a provider's capabilities are registered.
type ProviderConnectedEvent struct {
	Provider      string `json:"provider"`
	ServerName    string `json:"serverName"`
	ServerVersion string `json:"serverVersion"`
	Actions       int    `json:"actions"`
	Prompts       int    `json:"prompts"`
	Resources     int    `json:"resources"`
	Timestamp     string `json:"timestamp"`
}

// CapabilityInvokedEvent is emitted after every dispatched invocation.
type CapabilityInvokedEvent struct {
	CorrelationToken string `json:"correlationToken"`
	Provider         string `json:"provider,omitempty"`
	Kind             string `json:"kind"`
	Identifier       string `json:"identifier"`
	IsError          bool   `json:"isError"`
	ErrorCode        string `json:"errorCode,omitempty"`
	DurationMs       int64  `json:"durationMs"`
	Timestamp        string `json:"timestamp"`
}
