package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/bootstrap"
)

const logPrefix = "session:mcp"

// Options configure the client side of a session.
type Options struct {
	ClientName    string
	ClientVersion string
	// InitTimeout bounds the initialize handshake only; the session itself
	// lives as long as the context passed to Connect.
	InitTimeout time.Duration
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ClientName == "" {
		o.ClientName = "capchat"
	}
	if o.ClientVersion == "" {
		o.ClientVersion = "0.0.0"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// MCPSession is a Session backed by an mcp-go client.
type MCPSession struct {
	name   string
	client *client.Client
	info   ServerInfo
	logger *zap.Logger
}

var _ Session = (*MCPSession)(nil)

// Connect opens a session to the provider described by p and performs the
// initialize handshake. Stdio providers are spawned as subprocesses.
func Connect(ctx context.Context, p bootstrap.Provider, opts Options) (*MCPSession, error) {
	opts = opts.withDefaults()

	var (
		c   *client.Client
		err error
	)
	kind := p.EffectiveTransport()
	switch kind {
	case bootstrap.TransportStdio:
		if p.Command == "" {
			return nil, fmt.Errorf("%s - provider %s: stdio transport requires a command", logPrefix, p.Name)
		}
		// The stdio constructor starts the subprocess itself.
		c, err = client.NewStdioMCPClient(p.Command, p.EnvList(), p.Args...)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to spawn provider %s: %w", logPrefix, p.Name, err)
		}
		if stderr, ok := client.GetStderr(c); ok {
			go drainStderr(stderr, opts.Logger.With(zap.String("provider", p.Name)))
		}
	case bootstrap.TransportHTTP, bootstrap.TransportSSE:
		if p.URL == "" {
			return nil, fmt.Errorf("%s - provider %s: %s transport requires a url", logPrefix, p.Name, kind)
		}
		if kind == bootstrap.TransportSSE {
			c, err = client.NewSSEMCPClient(p.URL, transport.WithHeaders(p.Headers))
		} else {
			c, err = client.NewStreamableHttpClient(p.URL, transport.WithHTTPHeaders(p.Headers))
		}
		if err != nil {
			return nil, fmt.Errorf("%s - failed to create %s client for %s: %w", logPrefix, kind, p.Name, err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%s - failed to start %s client for %s: %w", logPrefix, kind, p.Name, err)
		}
	default:
		return nil, fmt.Errorf("%s - provider %s: unsupported transport %q", logPrefix, p.Name, kind)
	}

	return initialize(ctx, p.Name, c, opts)
}

// drainStderr forwards a child's stderr to the logger line by line. The pipe
// must be read continuously or the child blocks once the pipe buffer fills.
func drainStderr(r io.Reader, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Debug("provider stderr", zap.String("line", scanner.Text()))
	}
	// An oversized line stops the scanner; keep the pipe empty until it closes.
	_, _ = io.Copy(io.Discard, r)
}

// NewInProcess connects to an MCP server running in the same process.
func NewInProcess(ctx context.Context, name string, srv *server.MCPServer, opts Options) (*MCPSession, error) {
	opts = opts.withDefaults()
	c, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create in-process client for %s: %w", logPrefix, name, err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%s - failed to start in-process client for %s: %w", logPrefix, name, err)
	}
	return initialize(ctx, name, c, opts)
}

func initialize(ctx context.Context, name string, c *client.Client, opts Options) (*MCPSession, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: opts.ClientName, Version: opts.ClientVersion}

	if opts.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.InitTimeout)
		defer cancel()
	}
	res, err := c.Initialize(ctx, req)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%s - initialize %s: %w", logPrefix, name, err)
	}

	s := &MCPSession{
		name:   name,
		client: c,
		logger: opts.Logger.With(zap.String("provider", name)),
		info: ServerInfo{
			Name:            res.ServerInfo.Name,
			Version:         res.ServerInfo.Version,
			ProtocolVersion: res.ProtocolVersion,
			HasActions:      res.Capabilities.Tools != nil,
			HasPrompts:      res.Capabilities.Prompts != nil,
			HasResources:    res.Capabilities.Resources != nil,
		},
	}
	s.logger.Debug("session initialized",
		zap.String("server", s.info.Name),
		zap.String("version", s.info.Version),
		zap.String("protocol", s.info.ProtocolVersion))
	return s, nil
}

func (s *MCPSession) Name() string     { return s.name }
func (s *MCPSession) Info() ServerInfo { return s.info }

func (s *MCPSession) ListActions(ctx context.Context) ([]ActionInfo, error) {
	if !s.info.HasActions {
		return nil, nil
	}
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%s - list tools on %s: %w", logPrefix, s.name, err)
	}
	out := make([]ActionInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		out = append(out, ActionInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toolSchema(t),
		})
	}
	return out, nil
}

func (s *MCPSession) ListPrompts(ctx context.Context) ([]PromptInfo, error) {
	if !s.info.HasPrompts {
		return nil, nil
	}
	res, err := s.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("%s - list prompts on %s: %w", logPrefix, s.name, err)
	}
	out := make([]PromptInfo, 0, len(res.Prompts))
	for _, p := range res.Prompts {
		info := PromptInfo{Name: p.Name, Description: p.Description}
		for _, a := range p.Arguments {
			info.Arguments = append(info.Arguments, PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *MCPSession) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	if !s.info.HasResources {
		return nil, nil
	}
	res, err := s.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("%s - list resources on %s: %w", logPrefix, s.name, err)
	}
	out := make([]ResourceInfo, 0, len(res.Resources))
	for _, r := range res.Resources {
		out = append(out, ResourceInfo{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}

	// Templates are optional; a provider without them still lists its resources.
	tmpl, err := s.client.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
	if err != nil {
		s.logger.Debug("resource templates unavailable", zap.Error(err))
		return out, nil
	}
	for _, t := range tmpl.ResourceTemplates {
		if t.URITemplate == nil || t.URITemplate.Template == nil {
			continue
		}
		out = append(out, ResourceInfo{
			URI:         t.URITemplate.Raw(),
			Name:        t.Name,
			Description: t.Description,
			MIMEType:    t.MIMEType,
			Template:    true,
		})
	}
	return out, nil
}

func (s *MCPSession) CallAction(ctx context.Context, name string, args map[string]any) (*ActionResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s - call %s on %s: %w", logPrefix, name, s.name, err)
	}
	return &ActionResult{
		Content:    convertContent(res.Content),
		Structured: res.StructuredContent,
		IsError:    res.IsError,
	}, nil
}

func (s *MCPSession) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.GetPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s - get prompt %s on %s: %w", logPrefix, name, s.name, err)
	}
	out := &PromptResult{Description: res.Description}
	for _, m := range res.Messages {
		out.Messages = append(out.Messages, PromptMessage{
			Role:    string(m.Role),
			Content: convertContent([]mcp.Content{m.Content}),
		})
	}
	return out, nil
}

func (s *MCPSession) ReadResource(ctx context.Context, uri string) (*ResourceResult, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	res, err := s.client.ReadResource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s on %s: %w", logPrefix, uri, s.name, err)
	}
	out := &ResourceResult{}
	for _, c := range res.Contents {
		if item, ok := convertResourceContents(c); ok {
			out.Contents = append(out.Contents, item)
		}
	}
	return out, nil
}

func (s *MCPSession) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s - close %s: %w", logPrefix, s.name, err)
	}
	return nil
}

// toolSchema renders the tool's input schema as a plain JSON object, honoring a
// raw schema when the provider supplied one.
func toolSchema(t mcp.Tool) map[string]any {
	var raw []byte
	if len(t.RawInputSchema) > 0 {
		raw = t.RawInputSchema
	} else {
		b, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil
		}
		raw = b
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	return schema
}

func convertContent(in []mcp.Content) []ContentItem {
	out := make([]ContentItem, 0, len(in))
	for _, c := range in {
		switch v := c.(type) {
		case mcp.TextContent:
			out = append(out, ContentItem{Type: ContentText, Text: v.Text})
		case *mcp.TextContent:
			out = append(out, ContentItem{Type: ContentText, Text: v.Text})
		case mcp.ImageContent:
			out = append(out, ContentItem{Type: ContentImage, Data: v.Data, MIMEType: v.MIMEType})
		case mcp.AudioContent:
			out = append(out, ContentItem{Type: ContentAudio, Data: v.Data, MIMEType: v.MIMEType})
		case mcp.ResourceLink:
			out = append(out, ContentItem{Type: ContentLink, URI: v.URI, Text: v.Description})
		case mcp.EmbeddedResource:
			if item, ok := convertResourceContents(v.Resource); ok {
				item.Type = ContentResource
				out = append(out, item)
			}
		}
	}
	return out
}

func convertResourceContents(c mcp.ResourceContents) (ContentItem, bool) {
	switch v := c.(type) {
	case mcp.TextResourceContents:
		return ContentItem{Type: ContentText, Text: v.Text, URI: v.URI, MIMEType: v.MIMEType}, true
	case *mcp.TextResourceContents:
		return ContentItem{Type: ContentText, Text: v.Text, URI: v.URI, MIMEType: v.MIMEType}, true
	case mcp.BlobResourceContents:
		return ContentItem{Type: ContentResource, Data: v.Blob, URI: v.URI, MIMEType: v.MIMEType}, true
	case *mcp.BlobResourceContents:
		return ContentItem{Type: ContentResource, Data: v.Blob, URI: v.URI, MIMEType: v.MIMEType}, true
	}
	return ContentItem{}, false
}
