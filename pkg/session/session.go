// Package session wraps one bidirectional channel to a capability provider.
package session

import (
	"context"
	"strings"
)

// Session is the contract the orchestrator needs from a provider connection.
// Implementations must serialize nothing: callers issue one request at a time.
type Session interface {
	// Name is the provider name from configuration.
	Name() string
	// Info returns what the provider reported at initialize.
	Info() ServerInfo

	ListActions(ctx context.Context) ([]ActionInfo, error)
	ListPrompts(ctx context.Context) ([]PromptInfo, error)
	// ListResources returns concrete resources followed by resource templates.
	ListResources(ctx context.Context) ([]ResourceInfo, error)

	CallAction(ctx context.Context, name string, args map[string]any) (*ActionResult, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error)
	ReadResource(ctx context.Context, uri string) (*ResourceResult, error)

	Close() error
}

// ServerInfo is the provider identity and the capability kinds it advertises.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
	HasActions      bool
	HasPrompts      bool
	HasResources    bool
}

// ActionInfo describes an invocable action (an MCP tool).
type ActionInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// PromptArgument describes one prompt parameter.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptInfo describes a parameterized prompt template.
type PromptInfo struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// ResourceInfo describes a readable resource. Template entries carry an RFC 6570
// URI template in URI.
type ResourceInfo struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Template    bool
}

// Content types carried in ContentItem.Type.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentAudio    = "audio"
	ContentResource = "resource"
	ContentLink     = "resource_link"
)

// ContentItem is one piece of provider output.
type ContentItem struct {
	Type     string
	Text     string
	Data     string
	MIMEType string
	URI      string
}

// ActionResult is the provider's reply to an action invocation.
type ActionResult struct {
	Content    []ContentItem
	Structured any
	IsError    bool
}

// Text concatenates the text of every item, separated by newlines.
func (r *ActionResult) Text() string {
	if r == nil {
		return ""
	}
	return JoinText(r.Content)
}

// PromptMessage is one rendered prompt message.
type PromptMessage struct {
	Role    string
	Content []ContentItem
}

// PromptResult is a rendered prompt.
type PromptResult struct {
	Description string
	Messages    []PromptMessage
}

// ResourceResult is the content of a read resource.
type ResourceResult struct {
	Contents []ContentItem
}

// Text returns the concatenated textual contents.
func (r *ResourceResult) Text() string {
	if r == nil {
		return ""
	}
	return JoinText(r.Contents)
}

// JoinText joins the Text of every item that has any, newline separated.
func JoinText(items []ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Text != "" {
			parts = append(parts, it.Text)
		}
	}
	return strings.Join(parts, "\n")
}
