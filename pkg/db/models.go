package db

import (
	"encoding/json"
	"time"
)

// Provider is one row of the providers table.
type Provider struct {
	Name          string    `json:"name"`
	ServerName    string    `json:"serverName"`
	ServerVersion string    `json:"serverVersion"`
	Transport     string    `json:"transport"`
	LastConnected time.Time `json:"lastConnected"`
}

// CatalogEntry is one mirrored capability.
type CatalogEntry struct {
	ID          int64           `json:"id"`
	Provider    string          `json:"provider"`
	Kind        string          `json:"kind"`
	Identifier  string          `json:"identifier"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Template    bool            `json:"template"`
	Position    int             `json:"position"`
	SyncedAt    time.Time       `json:"syncedAt"`
}

// SyncProviderParams holds parameters for SyncProvider.
type SyncProviderParams struct {
	Provider Provider
	Entries  []CatalogEntry
}

// ListCapabilitiesParams filters ListCapabilities. Empty fields match everything.
type ListCapabilitiesParams struct {
	Provider string
	Kind     string
}
