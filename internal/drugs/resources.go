package drugs

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mark3labs/mcp-go/mcp"
)

// URI layout of the drug resources.
const (
	Scheme        = "drugs"
	CategoriesURI = Scheme + "://categories"
	CategoryURI   = Scheme + "://{category}"
)

// Truncation limits for the category detail view.
const (
	usageLimit        = 300
	warningsLimit     = 200
	boxedWarningLimit = 200
)

// ResourceHandler serves the drugs:// resources.
type ResourceHandler struct {
	store *Store
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(store *Store) *ResourceHandler {
	return &ResourceHandler{store: store}
}

// CategoriesResource returns the MCP resource definition for the category list.
func (h *ResourceHandler) CategoriesResource() mcp.Resource {
	return mcp.NewResource(
		CategoriesURI,
		"Available drug categories",
		mcp.WithResourceDescription("List of substance categories that have been searched and saved"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// CategoryTemplate returns the MCP resource template for one category.
func (h *ResourceHandler) CategoryTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		CategoryURI,
		"Drugs in category",
		mcp.WithTemplateDescription("Detailed information about all saved drugs in a category"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// HandleCategories renders the category list.
func (h *ResourceHandler) HandleCategories(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	categories, err := h.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return markdown(req.Params.URI, RenderCategories(categories)), nil
}

// HandleCategory renders one category's records.
func (h *ResourceHandler) HandleCategory(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	category := templateArg(req, "category")
	if category == "" {
		category = strings.TrimPrefix(req.Params.URI, Scheme+"://")
	}
	records, err := h.store.CategoryRecords(ctx, category)
	if err != nil {
		return nil, err
	}
	return markdown(req.Params.URI, RenderCategory(category, records)), nil
}

// RenderCategories formats the category list as markdown.
func RenderCategories(categories []string) string {
	var b strings.Builder
	b.WriteString("# Available Drug Categories\n\n")
	if len(categories) == 0 {
		b.WriteString("No drug categories found. Search for drugs first using `search_drug_info()`.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "**Total Categories**: %d\n\n", len(categories))
	for _, c := range categories {
		fmt.Fprintf(&b, "- **%s**\n", displayName(c))
	}
	b.WriteString("\nUse the drug category name with other tools to access detailed information.\n")
	return b.String()
}

// RenderCategory formats a category's records as markdown.
func RenderCategory(category string, records []Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("# No drugs found for category: %s\n\n"+
			"Try searching for drugs in this category first using `search_drug_info('%s')`.", category, category)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Drugs in Category: %s\n\n", displayName(category))
	fmt.Fprintf(&b, "**Total Products**: %d\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "## %s\n", r.BrandName)
		fmt.Fprintf(&b, "- **Substance**: %s\n", r.SubstanceName)
		fmt.Fprintf(&b, "- **Manufacturer**: %s\n", r.Manufacturer)
		fmt.Fprintf(&b, "- **Route**: %s\n", r.Route)
		fmt.Fprintf(&b, "- **Purpose**: %s\n\n", r.Purpose)

		if r.Usage != NotSpecified {
			fmt.Fprintf(&b, "### Usage\n%s\n\n", truncate(r.Usage, usageLimit))
		}
		if r.Warnings != NotSpecified {
			fmt.Fprintf(&b, "### Key Warnings\n%s\n\n", truncate(r.Warnings, warningsLimit))
		}
		if r.BoxedWarning != None {
			fmt.Fprintf(&b, "### ⚠️ Boxed Warning\n%s\n\n", truncate(r.BoxedWarning, boxedWarningLimit))
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// truncate cuts s to limit runes and appends "..." when anything was cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// displayName turns a category key into title case words.
func displayName(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func templateArg(req mcp.ReadResourceRequest, name string) string {
	switch v := req.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func markdown(uri, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}
}
