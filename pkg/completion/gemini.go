// Package completion adapts language-model backends to conversation.Completer.
package completion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/morezero/capabilities-chat/pkg/conversation"
)

const logPrefix = "completion:gemini"

// DefaultModel is used when GeminiConfig.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the backend produced no candidate.
var ErrEmptyResponse = errors.New("model returned no candidates")

// generator is the slice of the genai Models service the adapter needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini completer.
type GeminiConfig struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// Gemini is a conversation.Completer backed by the Gemini API with function calling.
type Gemini struct {
	models generator
	model  string
	logger *zap.Logger
}

var _ conversation.Completer = (*Gemini)(nil)

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s - API key is required", logPrefix)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create client: %w", logPrefix, err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models generator, cfg GeminiConfig) *Gemini {
	g := &Gemini{models: models, model: cfg.Model, logger: cfg.Logger}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Complete sends the conversation and returns the first candidate as ordered blocks.
func (g *Gemini) Complete(ctx context.Context, req *conversation.Request) ([]conversation.Block, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Tools:           toTools(req.Actions),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, toContents(req.History), config)
	if err != nil {
		return nil, fmt.Errorf("%s - generate content: %w", logPrefix, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%s - %w: blocked (%s)", logPrefix, ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%s - %w", logPrefix, ErrEmptyResponse)
	}

	blocks := fromParts(resp.Candidates[0].Content.Parts)
	g.logger.Debug("completion received",
		zap.String("model", g.model),
		zap.Int("blocks", len(blocks)),
		zap.String("finish", string(resp.Candidates[0].FinishReason)))
	return blocks, nil
}

func toTools(actions []conversation.ActionDescriptor) []*genai.Tool {
	if len(actions) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(actions))
	for _, a := range actions {
		decl := &genai.FunctionDeclaration{
			Name:        a.Name,
			Description: a.Description,
		}
		if len(a.InputSchema) > 0 {
			decl.ParametersJsonSchema = a.InputSchema
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toContents(history conversation.History) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(msg.Blocks))
		for _, b := range msg.Blocks {
			switch b.Type {
			case conversation.BlockText:
				if b.Text == "" {
					continue
				}
				parts = append(parts, &genai.Part{Text: b.Text, ThoughtSignature: b.Signature})
			case conversation.BlockInvocation:
				parts = append(parts, &genai.Part{
					FunctionCall:     &genai.FunctionCall{ID: b.Token, Name: b.Name, Args: b.Arguments},
					ThoughtSignature: b.Signature,
				})
			case conversation.BlockResult:
				key := "output"
				if b.IsError {
					key = "error"
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       b.Token,
					Name:     b.Name,
					Response: map[string]any{key: b.Payload},
				}})
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func fromParts(parts []*genai.Part) []conversation.Block {
	out := make([]conversation.Block, 0, len(parts))
	for _, p := range parts {
		if p == nil || p.Thought {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			b := conversation.InvocationBlock(p.FunctionCall.ID, p.FunctionCall.Name, p.FunctionCall.Args)
			b.Signature = p.ThoughtSignature
			out = append(out, b)
		case p.Text != "":
			b := conversation.TextBlock(p.Text)
			b.Signature = p.ThoughtSignature
			out = append(out, b)
		}
	}
	return out
}
