package drugs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/morezero/capabilities-chat/pkg/session"
)

type fakeSearcher struct {
	records []Record
	err     error
	names   []string
	limits  []int
}

func (f *fakeSearcher) Search(_ context.Context, name string, limit int) ([]Record, error) {
	f.names = append(f.names, name)
	f.limits = append(f.limits, limit)
	return f.records, f.err
}

func connectTestServer(t *testing.T, searcher Searcher) (*session.MCPSession, *Store) {
	t.Helper()
	store := newTestStore(t)
	srv := NewServer(ServerParams{Store: store, Searcher: searcher})

	s, err := session.NewInProcess(context.Background(), "drugs", srv, session.Options{})
	if err != nil {
		t.Fatalf("NewInProcess: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, store
}

func TestServer_Listings(t *testing.T) {
	s, _ := connectTestServer(t, &fakeSearcher{})
	ctx := context.Background()

	if info := s.Info(); info.Name != ServerName || !info.HasActions || !info.HasPrompts || !info.HasResources {
		t.Fatalf("server info = %+v", info)
	}

	actions, err := s.ListActions(ctx)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	names := map[string]bool{}
	for _, a := range actions {
		names[a.Name] = true
	}
	if len(actions) != 2 || !names["search_drug_info"] || !names["extract_drug_info"] {
		t.Errorf("actions = %+v", actions)
	}

	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(prompts) != 1 || prompts[0].Name != "generate_drug_research_prompt" || len(prompts[0].Arguments) != 2 {
		t.Errorf("prompts = %+v", prompts)
	}

	resources, err := s.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	var sawStatic, sawTemplate bool
	for _, r := range resources {
		switch {
		case r.URI == CategoriesURI && !r.Template:
			sawStatic = true
		case r.URI == CategoryURI && r.Template:
			sawTemplate = true
		}
	}
	if !sawStatic || !sawTemplate {
		t.Errorf("resources = %+v", resources)
	}
}

func TestServer_SearchThenRead(t *testing.T) {
	searcher := &fakeSearcher{records: []Record{
		sampleRecord("Advil", "IBUPROFEN"),
		sampleRecord("Motrin", "IBUPROFEN"),
	}}
	s, _ := connectTestServer(t, searcher)
	ctx := context.Background()

	res, err := s.CallAction(ctx, "search_drug_info", map[string]any{"drug_name": "Ibuprofen"})
	if err != nil {
		t.Fatalf("CallAction: %v", err)
	}
	if res.IsError {
		t.Fatalf("search returned error result: %s", res.Text())
	}
	if res.Text() != `["Advil","Motrin"]` {
		t.Errorf("text = %q", res.Text())
	}
	if len(searcher.limits) != 1 || searcher.limits[0] != 5 {
		t.Errorf("default max_results should be 5, got %v", searcher.limits)
	}

	cats, err := s.ReadResource(ctx, CategoriesURI)
	if err != nil {
		t.Fatalf("ReadResource categories: %v", err)
	}
	if !strings.Contains(cats.Text(), "- **Ibuprofen**") {
		t.Errorf("categories = %q", cats.Text())
	}

	detail, err := s.ReadResource(ctx, "drugs://ibuprofen")
	if err != nil {
		t.Fatalf("ReadResource detail: %v", err)
	}
	if !strings.Contains(detail.Text(), "## Advil") || !strings.Contains(detail.Text(), "## Motrin") {
		t.Errorf("detail = %q", detail.Text())
	}

	extract, err := s.CallAction(ctx, "extract_drug_info", map[string]any{"brand_name": "Motrin"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(extract.Text(), `"brand_name": "Motrin"`) {
		t.Errorf("extract = %q", extract.Text())
	}
}

func TestServer_ExtractUnknownBrand(t *testing.T) {
	s, _ := connectTestServer(t, &fakeSearcher{})

	res, err := s.CallAction(context.Background(), "extract_drug_info", map[string]any{"brand_name": "Nope"})
	if err != nil {
		t.Fatalf("CallAction: %v", err)
	}
	if res.Text() != "No saved information found for drug brand: Nope" {
		t.Errorf("text = %q", res.Text())
	}
}

func TestServer_SearchFailureIsErrorResult(t *testing.T) {
	s, store := connectTestServer(t, &fakeSearcher{err: errors.New("timeout")})

	res, err := s.CallAction(context.Background(), "search_drug_info", map[string]any{"drug_name": "ibuprofen", "max_results": 2})
	if err != nil {
		t.Fatalf("CallAction: %v", err)
	}
	if !res.IsError {
		t.Error("search failure should be flagged as an error result")
	}
	if cats, _ := store.Categories(context.Background()); len(cats) != 0 {
		t.Errorf("nothing should be stored on failure, got %v", cats)
	}
}

func TestServer_EmptySearchKeepsSavedCategory(t *testing.T) {
	ctx := context.Background()
	s, store := connectTestServer(t, &fakeSearcher{})
	if err := store.SaveCategory(ctx, "ibuprofen", []Record{{BrandName: "Advil", SubstanceName: "IBUPROFEN"}}); err != nil {
		t.Fatalf("SaveCategory: %v", err)
	}

	res, err := s.CallAction(ctx, "search_drug_info", map[string]any{"drug_name": "ibuprofen"})
	if err != nil {
		t.Fatalf("CallAction: %v", err)
	}
	if res.IsError || res.Text() != "[]" {
		t.Errorf("empty search result = %+v, want [] without error", res)
	}

	recs, err := store.CategoryRecords(ctx, "ibuprofen")
	if err != nil {
		t.Fatalf("CategoryRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].BrandName != "Advil" {
		t.Errorf("saved records should survive an empty search, got %+v", recs)
	}
}

func TestServer_ResearchPrompt(t *testing.T) {
	s, _ := connectTestServer(t, &fakeSearcher{})

	out, err := s.GetPrompt(context.Background(), "generate_drug_research_prompt", map[string]string{
		"substance_name": "aspirin",
		"research_focus": "interactions",
	})
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(out.Messages))
	}
	text := session.JoinText(out.Messages[0].Content)
	if !strings.Contains(text, "'aspirin' with focus on interactions") {
		t.Errorf("prompt text = %q", text)
	}
}
