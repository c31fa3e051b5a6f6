// Package dispatcher routes capability invocations to the owning provider session.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/capabilities-chat/pkg/session"
)

// InvokeRequest asks for one action invocation.
type InvokeRequest struct {
	CorrelationToken string         `json:"correlationToken"`
	Identifier       string         `json:"identifier"`
	Arguments        map[string]any `json:"arguments,omitempty"`
}

// Result is the normalized outcome of one invocation. It is never nil and never
// carries a Go error: failures are expressed through IsError and Error.
type Result struct {
	CorrelationToken string                `json:"correlationToken"`
	Identifier       string                `json:"identifier"`
	Provider         string                `json:"provider,omitempty"`
	Content          []session.ContentItem `json:"content,omitempty"`
	Structured       any                   `json:"structured,omitempty"`
	IsError          bool                  `json:"isError"`
	Error            *ErrorDetail          `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// ErrorCode returns the error code, or "" for successful results.
func (r *Result) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// Payload renders the result as text for the model: the textual content when
// present, else the structured content as JSON, else the error message.
func (r *Result) Payload() string {
	if text := session.JoinText(r.Content); text != "" {
		return text
	}
	if r.Structured != nil {
		if b, err := json.Marshal(r.Structured); err == nil {
			return string(b)
		}
	}
	if r.Error != nil {
		return r.Error.Code + ": " + r.Error.Message
	}
	return ""
}

// Resource is the outcome of a resource read.
type Resource struct {
	URI      string
	Provider string
	MIMEType string
	Text     string
	// Fallback is set when the locator was served by scheme family rather than
	// an exact registration.
	Fallback bool
}
