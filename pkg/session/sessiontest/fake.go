// Package sessiontest provides an in-memory session.Session for tests.
package sessiontest

import (
	"context"
	"fmt"
	"sync"

	"github.com/morezero/capabilities-chat/pkg/session"
)

// List kinds accepted as keys in Fake.ListErr.
const (
	ListActions   = "actions"
	ListPrompts   = "prompts"
	ListResources = "resources"
)

// Call records one request that reached the fake.
type Call struct {
	Method string
	Name   string
	Args   any
}

// Fake is a scripted Session. Handlers default to echoing the request.
type Fake struct {
	ProviderName string
	ServerInfo   session.ServerInfo

	Actions   []session.ActionInfo
	Prompts   []session.PromptInfo
	Resources []session.ResourceInfo

	ActionHandler   func(name string, args map[string]any) (*session.ActionResult, error)
	PromptHandler   func(name string, args map[string]string) (*session.PromptResult, error)
	ResourceHandler func(uri string) (*session.ResourceResult, error)

	ListErr  map[string]error
	CloseErr error

	mu     sync.Mutex
	calls  []Call
	closed bool
}

var _ session.Session = (*Fake)(nil)

func (f *Fake) Name() string { return f.ProviderName }

func (f *Fake) Info() session.ServerInfo {
	info := f.ServerInfo
	if info.Name == "" {
		info.Name = f.ProviderName
	}
	return info
}

func (f *Fake) ListActions(ctx context.Context) ([]session.ActionInfo, error) {
	if err := f.ListErr[ListActions]; err != nil {
		return nil, err
	}
	return f.Actions, nil
}

func (f *Fake) ListPrompts(ctx context.Context) ([]session.PromptInfo, error) {
	if err := f.ListErr[ListPrompts]; err != nil {
		return nil, err
	}
	return f.Prompts, nil
}

func (f *Fake) ListResources(ctx context.Context) ([]session.ResourceInfo, error) {
	if err := f.ListErr[ListResources]; err != nil {
		return nil, err
	}
	return f.Resources, nil
}

func (f *Fake) CallAction(ctx context.Context, name string, args map[string]any) (*session.ActionResult, error) {
	f.record("call", name, args)
	if f.ActionHandler != nil {
		return f.ActionHandler(name, args)
	}
	return &session.ActionResult{Content: []session.ContentItem{{
		Type: session.ContentText,
		Text: fmt.Sprintf("%s:%s", f.ProviderName, name),
	}}}, nil
}

func (f *Fake) GetPrompt(ctx context.Context, name string, args map[string]string) (*session.PromptResult, error) {
	f.record("prompt", name, args)
	if f.PromptHandler != nil {
		return f.PromptHandler(name, args)
	}
	return &session.PromptResult{Messages: []session.PromptMessage{{
		Role:    "user",
		Content: []session.ContentItem{{Type: session.ContentText, Text: "prompt " + name}},
	}}}, nil
}

func (f *Fake) ReadResource(ctx context.Context, uri string) (*session.ResourceResult, error) {
	f.record("read", uri, nil)
	if f.ResourceHandler != nil {
		return f.ResourceHandler(uri)
	}
	return &session.ResourceResult{Contents: []session.ContentItem{{
		Type: session.ContentText,
		Text: f.ProviderName + " " + uri,
		URI:  uri,
	}}}, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.CloseErr
}

// Calls returns a copy of the recorded requests.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) record(method, name string, args any) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Name: name, Args: args})
	f.mu.Unlock()
}
