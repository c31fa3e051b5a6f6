package drugs

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerName is the implementation name advertised during initialization.
const ServerName = "drug-research"

// Version is set at build time via ldflags.
var Version = "dev"

// ServerParams holds parameters for NewServer.
type ServerParams struct {
	Store    *Store
	Searcher Searcher
	Logger   *zap.Logger
}

// NewServer builds the MCP server exposing the drug tools, resources, and
// research prompt.
func NewServer(p ServerParams) *server.MCPServer {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		ServerName,
		Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	search := NewSearchTool(p.Store, p.Searcher, logger)
	s.AddTool(search.Definition(), search.Handle)

	extract := NewExtractTool(p.Store)
	s.AddTool(extract.Definition(), extract.Handle)

	resources := NewResourceHandler(p.Store)
	s.AddResource(resources.CategoriesResource(), resources.HandleCategories)
	s.AddResourceTemplate(resources.CategoryTemplate(), resources.HandleCategory)

	research := NewResearchPrompt()
	s.AddPrompt(research.Definition(), research.Handle)

	return s
}
