package drugs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// SearchTool handles the search_drug_info MCP tool.
type SearchTool struct {
	store    *Store
	searcher Searcher
	logger   *zap.Logger
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *Store, searcher Searcher, logger *zap.Logger) *SearchTool {
	return &SearchTool{store: store, searcher: searcher, logger: logger}
}

// Definition returns the MCP tool definition for search_drug_info.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_drug_info",
		mcp.WithDescription(
			"Search for drug information from openFDA by drug name (brand or substance). "+
				"Saves the label summaries and returns the brand names found.",
		),
		mcp.WithString("drug_name",
			mcp.Required(),
			mcp.Description("The name of the drug to search (e.g. 'ibuprofen')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Number of results to fetch (default: 5)"),
			mcp.DefaultNumber(5),
			mcp.Min(1),
		),
	)
}

// Handle processes the search_drug_info tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("drug_name", "")
	if name == "" {
		return mcp.NewToolResultError("'drug_name' is required"), nil
	}
	limit := req.GetInt("max_results", 5)

	records, err := t.searcher.Search(ctx, name, limit)
	if err != nil {
		t.logger.Warn("openFDA search failed", zap.String("drug", name), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("openFDA search failed", err), nil
	}

	brands := make([]string, 0, len(records))
	if len(records) == 0 {
		// No matches leaves earlier results for the category in place.
		t.logger.Info("no drug labels found", zap.String("drug", name))
	} else {
		if err := t.store.SaveCategory(ctx, name, records); err != nil {
			return nil, fmt.Errorf("saving %s: %w", name, err)
		}
		for _, r := range records {
			brands = append(brands, r.BrandName)
		}
		t.logger.Info("drug info saved",
			zap.String("category", CategoryKey(name)),
			zap.Strings("brands", brands))
	}

	text, err := json.Marshal(brands)
	if err != nil {
		return nil, fmt.Errorf("marshaling brand names: %w", err)
	}
	return mcp.NewToolResultStructured(map[string]any{"brand_names": brands}, string(text)), nil
}

// ExtractTool handles the extract_drug_info MCP tool.
type ExtractTool struct {
	store *Store
}

// NewExtractTool creates an ExtractTool.
func NewExtractTool(store *Store) *ExtractTool {
	return &ExtractTool{store: store}
}

// Definition returns the MCP tool definition for extract_drug_info.
func (t *ExtractTool) Definition() mcp.Tool {
	return mcp.NewTool("extract_drug_info",
		mcp.WithDescription(
			"Search for information about a specific drug by brand name across all saved searches.",
		),
		mcp.WithString("brand_name",
			mcp.Required(),
			mcp.Description("The brand name of the drug to look for"),
		),
	)
}

// Handle processes the extract_drug_info tool call.
func (t *ExtractTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brand := req.GetString("brand_name", "")
	if brand == "" {
		return mcp.NewToolResultError("'brand_name' is required"), nil
	}

	record, ok, err := t.store.FindBrand(ctx, brand)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", brand, err)
	}
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No saved information found for drug brand: %s", brand)), nil
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
