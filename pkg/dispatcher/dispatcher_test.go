package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/morezero/capabilities-chat/pkg/events"
	"github.com/morezero/capabilities-chat/pkg/registry"
	"github.com/morezero/capabilities-chat/pkg/session"
	"github.com/morezero/capabilities-chat/pkg/session/sessiontest"
)

func setup(t *testing.T, fakes ...*sessiontest.Fake) (*Dispatcher, *[]*events.CapabilityInvokedEvent) {
	t.Helper()
	reg := registry.NewRegistry(registry.NewRegistryParams{})
	for _, f := range fakes {
		if _, err := reg.Register(context.Background(), f); err != nil {
			t.Fatalf("dispatcher:dispatcher_test - register %s: %v", f.ProviderName, err)
		}
	}
	var published []*events.CapabilityInvokedEvent
	pub := &events.CallbackPublisher{OnInvoked: func(_ context.Context, e *events.CapabilityInvokedEvent) error {
		published = append(published, e)
		return nil
	}}
	return NewDispatcher(reg, Options{Publisher: pub}), &published
}

func TestInvoke_UnregisteredNeverContactsTransport(t *testing.T) {
	f := &sessiontest.Fake{ProviderName: "A", Actions: []session.ActionInfo{{Name: "lookup"}}}
	d, published := setup(t, f)

	res := d.Invoke(context.Background(), &InvokeRequest{CorrelationToken: "t1", Identifier: "missing"})
	if !res.IsError {
		t.Fatal("dispatcher:dispatcher_test - expected error result")
	}
	if res.ErrorCode() != registry.CodeCapabilityNotAvailable {
		t.Errorf("dispatcher:dispatcher_test - code = %q, want %q", res.ErrorCode(), registry.CodeCapabilityNotAvailable)
	}
	if res.CorrelationToken != "t1" {
		t.Errorf("dispatcher:dispatcher_test - token = %q, want t1", res.CorrelationToken)
	}
	if calls := f.Calls(); len(calls) != 0 {
		t.Errorf("dispatcher:dispatcher_test - transport contacted %d times", len(calls))
	}
	if len(*published) != 1 || (*published)[0].ErrorCode != registry.CodeCapabilityNotAvailable {
		t.Errorf("dispatcher:dispatcher_test - published = %+v", *published)
	}
}

func TestInvoke_Routing(t *testing.T) {
	a := &sessiontest.Fake{ProviderName: "A", Actions: []session.ActionInfo{{Name: "lookup"}, {Name: "broken"}, {Name: "refuse"}}}
	a.ActionHandler = func(name string, args map[string]any) (*session.ActionResult, error) {
		switch name {
		case "broken":
			return nil, errors.New("pipe closed")
		case "refuse":
			return &session.ActionResult{IsError: true, Content: []session.ContentItem{{Type: session.ContentText, Text: "bad input"}}}, nil
		}
		return &session.ActionResult{Content: []session.ContentItem{{Type: session.ContentText, Text: "found " + args["term"].(string)}}}, nil
	}
	d, _ := setup(t, a)

	tests := []struct {
		name        string
		identifier  string
		wantError   bool
		wantCode    string
		wantPayload string
	}{
		{name: "success", identifier: "lookup", wantPayload: "found x"},
		{name: "transport failure", identifier: "broken", wantError: true, wantCode: registry.CodeTransportError},
		{name: "provider error", identifier: "refuse", wantError: true, wantCode: registry.CodeProviderError, wantPayload: "bad input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Invoke(context.Background(), &InvokeRequest{Identifier: tt.identifier, Arguments: map[string]any{"term": "x"}})
			if res.IsError != tt.wantError {
				t.Fatalf("dispatcher:dispatcher_test - IsError = %v, want %v (%+v)", res.IsError, tt.wantError, res.Error)
			}
			if res.ErrorCode() != tt.wantCode {
				t.Errorf("dispatcher:dispatcher_test - code = %q, want %q", res.ErrorCode(), tt.wantCode)
			}
			if tt.wantPayload != "" && res.Payload() != tt.wantPayload {
				t.Errorf("dispatcher:dispatcher_test - payload = %q, want %q", res.Payload(), tt.wantPayload)
			}
			if res.CorrelationToken == "" {
				t.Error("dispatcher:dispatcher_test - missing tokens must be generated")
			}
			if res.Provider != "A" {
				t.Errorf("dispatcher:dispatcher_test - provider = %q", res.Provider)
			}
		})
	}
}

func TestInvoke_TransportErrorPayloadCarriesMessage(t *testing.T) {
	a := &sessiontest.Fake{ProviderName: "A", Actions: []session.ActionInfo{{Name: "x"}}}
	a.ActionHandler = func(string, map[string]any) (*session.ActionResult, error) {
		return nil, errors.New("timeout")
	}
	d, _ := setup(t, a)

	res := d.Invoke(context.Background(), &InvokeRequest{Identifier: "x"})
	if got := res.Payload(); got != registry.CodeTransportError+": timeout" {
		t.Errorf("dispatcher:dispatcher_test - payload = %q", got)
	}
}

func TestReadResource(t *testing.T) {
	first := &sessiontest.Fake{ProviderName: "first", Resources: []session.ResourceInfo{
		{URI: "drugs://categories", MIMEType: "text/markdown"},
		{URI: "drugs://{category}", Template: true},
	}}
	second := &sessiontest.Fake{ProviderName: "second", Resources: []session.ResourceInfo{{URI: "drugs://other"}}}
	d, _ := setup(t, first, second)

	t.Run("exact", func(t *testing.T) {
		r, ok, err := d.ReadResource(context.Background(), "drugs://other")
		if err != nil || !ok {
			t.Fatalf("dispatcher:dispatcher_test - ReadResource = %v, %v", ok, err)
		}
		if r.Provider != "second" || r.Fallback {
			t.Errorf("dispatcher:dispatcher_test - got %+v", r)
		}
		if r.Text != "second drugs://other" {
			t.Errorf("dispatcher:dispatcher_test - text = %q", r.Text)
		}
	})

	t.Run("family fallback", func(t *testing.T) {
		r, ok, err := d.ReadResource(context.Background(), "drugs://analgesic")
		if err != nil || !ok {
			t.Fatalf("dispatcher:dispatcher_test - ReadResource = %v, %v", ok, err)
		}
		if r.Provider != "first" || !r.Fallback {
			t.Errorf("dispatcher:dispatcher_test - got %+v", r)
		}
		calls := first.Calls()
		if len(calls) == 0 || calls[len(calls)-1].Name != "drugs://analgesic" {
			t.Errorf("dispatcher:dispatcher_test - provider should receive the original locator, calls = %+v", calls)
		}
	})

	t.Run("absent", func(t *testing.T) {
		before := len(first.Calls()) + len(second.Calls())
		r, ok, err := d.ReadResource(context.Background(), "papers://x")
		if err != nil || ok || r != nil {
			t.Fatalf("dispatcher:dispatcher_test - ReadResource = %+v, %v, %v", r, ok, err)
		}
		if after := len(first.Calls()) + len(second.Calls()); after != before {
			t.Error("dispatcher:dispatcher_test - absent resource must not contact providers")
		}
	})

	t.Run("transport error", func(t *testing.T) {
		broken := &sessiontest.Fake{ProviderName: "broken", Resources: []session.ResourceInfo{{URI: "notes://x"}}}
		broken.ResourceHandler = func(string) (*session.ResourceResult, error) { return nil, errors.New("eof") }
		d, _ := setup(t, broken)
		_, ok, err := d.ReadResource(context.Background(), "notes://x")
		if err == nil || !ok {
			t.Errorf("dispatcher:dispatcher_test - expected transport error, got ok=%v err=%v", ok, err)
		}
	})
}

func TestRenderPrompt(t *testing.T) {
	p := &sessiontest.Fake{ProviderName: "P", Prompts: []session.PromptInfo{{Name: "summarize"}, {Name: "multi"}, {Name: "empty"}}}
	p.PromptHandler = func(name string, args map[string]string) (*session.PromptResult, error) {
		switch name {
		case "multi":
			return &session.PromptResult{Messages: []session.PromptMessage{
				{Role: "user", Content: []session.ContentItem{{Text: "part one"}, {Text: "part two"}}},
				{Role: "user", Content: []session.ContentItem{{Text: "ignored"}}},
			}}, nil
		case "empty":
			return &session.PromptResult{}, nil
		}
		return &session.PromptResult{Messages: []session.PromptMessage{
			{Role: "user", Content: []session.ContentItem{{Text: "Summarize " + args["topic"]}}},
		}}, nil
	}
	d, _ := setup(t, p)

	text, err := d.RenderPrompt(context.Background(), "summarize", map[string]string{"topic": "aspirin"})
	if err != nil || text != "Summarize aspirin" {
		t.Errorf("dispatcher:dispatcher_test - RenderPrompt = %q, %v", text, err)
	}
	text, err = d.RenderPrompt(context.Background(), "multi", nil)
	if err != nil || text != "part one\npart two" {
		t.Errorf("dispatcher:dispatcher_test - RenderPrompt(multi) = %q, %v", text, err)
	}
	text, err = d.RenderPrompt(context.Background(), "empty", nil)
	if err != nil || text != "" {
		t.Errorf("dispatcher:dispatcher_test - RenderPrompt(empty) = %q, %v", text, err)
	}

	_, err = d.RenderPrompt(context.Background(), "nope", nil)
	if registry.ErrorCode(err) != registry.CodeNotFound {
		t.Errorf("dispatcher:dispatcher_test - missing prompt error = %v", err)
	}
}
