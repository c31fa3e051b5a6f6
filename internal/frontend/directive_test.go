package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/capabilities-chat/pkg/registry"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Directive
	}{
		{"empty", "   ", Directive{Kind: KindEmpty}},
		{"quit", "quit", Directive{Kind: KindQuit}},
		{"quit any case", " QUIT ", Directive{Kind: KindQuit}},
		{"query", "What is aspirin?", Directive{Kind: KindQuery, Text: "What is aspirin?"}},
		{"categories", "@categories", Directive{Kind: KindResource, Locator: "drugs://categories"}},
		{"named resource", "@ibuprofen", Directive{Kind: KindResource, Locator: "drugs://ibuprofen"}},
		{"tools", "/tools", Directive{Kind: KindListTools}},
		{"prompts", "/PROMPTS", Directive{Kind: KindListPrompts}},
		{"resources", "/resources", Directive{Kind: KindListResources}},
		{
			"prompt with args",
			"/prompt summarize topic=aspirin",
			Directive{Kind: KindPrompt, Name: "summarize", Args: map[string]string{"topic": "aspirin"}},
		},
		{
			"first equals splits and bare tokens drop",
			"/prompt p expr=a=b loose  k=",
			Directive{Kind: KindPrompt, Name: "p", Args: map[string]string{"expr": "a=b", "k": ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line, "drugs"))
		})
	}
}

func TestParseCustomScheme(t *testing.T) {
	d := Parse("@categories", "notes")
	assert.Equal(t, "notes://categories", d.Locator)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		line    string
		command string
		message string
	}{
		{"/prompt", "/prompt", PromptUsage},
		{"/bogus arg", "/bogus", "Unknown command: /bogus"},
		{"@", "", "missing resource name after '@'"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			d := Parse(tt.line, "drugs")
			require.Equal(t, KindInvalid, d.Kind)
			require.NotNil(t, d.Err)
			assert.Equal(t, registry.CodeInvalidDirective, d.Err.Code)
			assert.Equal(t, tt.message, d.Err.Message)
			if tt.command != "" {
				assert.Equal(t, map[string]string{"command": tt.command}, d.Err.Details)
			} else {
				assert.Nil(t, d.Err.Details)
			}
		})
	}
}
