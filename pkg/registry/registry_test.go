package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/morezero/capabilities-chat/pkg/session"
	"github.com/morezero/capabilities-chat/pkg/session/sessiontest"
)

func newFake(name string, actions ...string) *sessiontest.Fake {
	f := &sessiontest.Fake{ProviderName: name}
	for _, a := range actions {
		f.Actions = append(f.Actions, session.ActionInfo{Name: a, Description: name + " " + a})
	}
	return f
}

func TestRegister_AllKinds(t *testing.T) {
	f := newFake("research", "search_papers", "extract_info")
	f.Prompts = []session.PromptInfo{{Name: "summarize", Arguments: []session.PromptArgument{{Name: "topic", Required: true}}}}
	f.Resources = []session.ResourceInfo{
		{URI: "papers://folders", Name: "folders"},
		{URI: "papers://{topic}", Name: "topic", Template: true},
	}

	reg := NewRegistry(NewRegistryParams{})
	sum, err := reg.Register(context.Background(), f)
	if err != nil {
		t.Fatalf("registry:registry_test - Register: %v", err)
	}
	if sum.Actions != 2 || sum.Prompts != 1 || sum.Resources != 2 || sum.Total() != 5 {
		t.Errorf("registry:registry_test - summary = %+v", sum)
	}
	if reg.Len() != 5 {
		t.Errorf("registry:registry_test - Len = %d, want 5", reg.Len())
	}

	c, ok := reg.Resolve(KindAction, "extract_info")
	if !ok || c.Session != f || c.Provider != "research" {
		t.Errorf("registry:registry_test - Resolve(extract_info) = %+v, %v", c, ok)
	}
	if _, ok := reg.Resolve(KindPrompt, "extract_info"); ok {
		t.Error("registry:registry_test - identifiers must be keyed per kind")
	}
	tmpl, ok := reg.Resolve(KindResource, "papers://{topic}")
	if !ok || !tmpl.Template {
		t.Errorf("registry:registry_test - template resource = %+v, %v", tmpl, ok)
	}
}

func TestRegister_LastRegisteredWins(t *testing.T) {
	a := newFake("A", "lookup")
	b := newFake("B", "lookup")

	reg := NewRegistry(NewRegistryParams{})
	if _, err := reg.Register(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	c, ok := reg.Resolve(KindAction, "lookup")
	if !ok {
		t.Fatal("registry:registry_test - lookup not registered")
	}
	if c.Session != b {
		t.Errorf("registry:registry_test - lookup owned by %s, want B", c.Provider)
	}
	if got := len(reg.Actions()); got != 1 {
		t.Errorf("registry:registry_test - Actions() len = %d, want 1", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	f := newFake("A", "one", "two")
	f.Resources = []session.ResourceInfo{{URI: "docs://index"}}

	reg := NewRegistry(NewRegistryParams{})
	for i := 0; i < 2; i++ {
		if _, err := reg.Register(context.Background(), f); err != nil {
			t.Fatal(err)
		}
	}
	snap := reg.Snapshot()
	want := []string{"one", "two", "docs://index"}
	if len(snap) != len(want) {
		t.Fatalf("registry:registry_test - snapshot len = %d, want %d", len(snap), len(want))
	}
	for i, id := range want {
		if snap[i].Identifier != id {
			t.Errorf("registry:registry_test - snapshot[%d] = %q, want %q", i, snap[i].Identifier, id)
		}
	}
}

func TestRegister_ReplacementKeepsPosition(t *testing.T) {
	reg := NewRegistry(NewRegistryParams{})
	_, _ = reg.Register(context.Background(), newFake("A", "first", "second"))
	_, _ = reg.Register(context.Background(), newFake("B", "first"))

	actions := reg.Actions()
	if len(actions) != 2 {
		t.Fatalf("registry:registry_test - actions len = %d, want 2", len(actions))
	}
	if actions[0].Identifier != "first" || actions[0].Provider != "B" {
		t.Errorf("registry:registry_test - actions[0] = %s/%s, want first/B", actions[0].Identifier, actions[0].Provider)
	}
	if actions[1].Identifier != "second" || actions[1].Provider != "A" {
		t.Errorf("registry:registry_test - actions[1] = %s/%s, want second/A", actions[1].Identifier, actions[1].Provider)
	}
}

func TestRegister_PartialListingFailure(t *testing.T) {
	f := newFake("flaky", "works")
	f.Resources = []session.ResourceInfo{{URI: "flaky://x"}}
	f.ListErr = map[string]error{sessiontest.ListPrompts: errors.New("boom")}

	reg := NewRegistry(NewRegistryParams{})
	sum, err := reg.Register(context.Background(), f)
	if err == nil {
		t.Fatal("registry:registry_test - expected listing error")
	}
	if code := ErrorCode(err); code != CodeListingFailed {
		t.Errorf("registry:registry_test - code = %q, want %q", code, CodeListingFailed)
	}
	if sum.Actions != 1 || sum.Resources != 1 || sum.Prompts != 0 {
		t.Errorf("registry:registry_test - summary = %+v", sum)
	}
	if _, ok := reg.Resolve(KindAction, "works"); !ok {
		t.Error("registry:registry_test - actions should survive a prompt listing failure")
	}
}

func TestResolveFamily(t *testing.T) {
	first := &sessiontest.Fake{ProviderName: "first", Resources: []session.ResourceInfo{
		{URI: "drugs://categories"},
		{URI: "drugs://{category}", Template: true},
	}}
	second := &sessiontest.Fake{ProviderName: "second", Resources: []session.ResourceInfo{
		{URI: "notes://index"},
		{URI: "drugs://other"},
	}}

	reg := NewRegistry(NewRegistryParams{})
	_, _ = reg.Register(context.Background(), first)
	_, _ = reg.Register(context.Background(), second)

	tests := []struct {
		name     string
		locator  string
		wantOK   bool
		provider string
	}{
		{name: "same scheme picks first registered", locator: "drugs://analgesic", wantOK: true, provider: "first"},
		{name: "other scheme", locator: "notes://anything", wantOK: true, provider: "second"},
		{name: "unknown scheme", locator: "papers://x", wantOK: false},
		{name: "no scheme", locator: "categories", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := reg.ResolveFamily(tt.locator)
			if ok != tt.wantOK {
				t.Fatalf("registry:registry_test - ResolveFamily(%q) ok = %v, want %v", tt.locator, ok, tt.wantOK)
			}
			if ok && c.Provider != tt.provider {
				t.Errorf("registry:registry_test - ResolveFamily(%q) provider = %s, want %s", tt.locator, c.Provider, tt.provider)
			}
		})
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	reg := NewRegistry(NewRegistryParams{})
	_, _ = reg.Register(context.Background(), newFake("A", "x"))

	snap := reg.Snapshot()
	snap[0].Identifier = "mutated"
	if _, ok := reg.Resolve(KindAction, "x"); !ok {
		t.Error("registry:registry_test - mutating a snapshot must not affect the registry")
	}
	if reg.Actions()[0].Identifier != "x" {
		t.Error("registry:registry_test - snapshot entries must be copies")
	}
}

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"drugs://categories": "drugs",
		"drugs://{category}": "drugs",
		"file:///tmp/x":      "file",
		"plain":              "",
		"://nothing":         "",
	}
	for in, want := range tests {
		if got := Scheme(in); got != want {
			t.Errorf("registry:types_test - Scheme(%q) = %q, want %q", in, got, want)
		}
	}
}
