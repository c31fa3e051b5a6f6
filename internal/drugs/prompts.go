package drugs

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Research focus areas accepted by the research prompt.
const (
	FocusSafety       = "safety"
	FocusEfficacy     = "efficacy"
	FocusInteractions = "interactions"
	FocusGeneral      = "general"
)

var focusInstructions = map[string]string{
	FocusSafety:       "Focus on safety profiles, adverse reactions, contraindications, and risk factors",
	FocusEfficacy:     "Focus on therapeutic effectiveness, clinical outcomes, and comparative efficacy",
	FocusInteractions: "Focus on drug-drug interactions, food interactions, and contraindications",
	FocusGeneral:      "Provide comprehensive overview including safety, efficacy, and clinical considerations",
}

// ResearchPrompt handles the generate_drug_research_prompt MCP prompt.
type ResearchPrompt struct{}

// NewResearchPrompt creates a ResearchPrompt.
func NewResearchPrompt() *ResearchPrompt {
	return &ResearchPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ResearchPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("generate_drug_research_prompt",
		mcp.WithPromptDescription("Generate a comprehensive research prompt for drug analysis."),
		mcp.WithArgument("substance_name",
			mcp.ArgumentDescription("The drug substance to research"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("research_focus",
			mcp.ArgumentDescription("Focus area: 'safety', 'efficacy', 'interactions', or 'general' (default: general)"),
		),
	)
}

// Handle renders the research prompt.
func (p *ResearchPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	substance := req.Params.Arguments["substance_name"]
	if substance == "" {
		return nil, fmt.Errorf("'substance_name' is required")
	}
	focus := req.Params.Arguments["research_focus"]
	if focus == "" {
		focus = FocusGeneral
	}

	return mcp.NewGetPromptResult(
		"Drug research analysis for "+substance,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(ResearchText(substance, focus))),
		},
	), nil
}

// ResearchText builds the research instructions. Unknown focus values use the
// general instruction but keep their name in the text.
func ResearchText(substance, focus string) string {
	instruction, ok := focusInstructions[focus]
	if !ok {
		instruction = focusInstructions[FocusGeneral]
	}

	return fmt.Sprintf(`Conduct comprehensive drug research analysis for '%[1]s' with focus on %[2]s. Follow these steps:

1. **Initial Data Collection**
   - Use search_drug_info('%[1]s') to gather FDA label data
   - Extract key information using extract_drug_info() for specific products

2. **Comparative Analysis**
   - Read the drugs://%[4]s resource to compare the saved formulations
   - Identify patterns across manufacturers and formulations

3. **Safety Assessment**
   - Review the warnings and boxed warnings of each saved product
   - %[3]s

4. **Research Synthesis**
   Provide a structured analysis including:
   - **Overview**: What is %[1]s and its primary uses
   - **Available Formulations**: Different brands and manufacturers
   - **Safety Profile**: Key warnings, contraindications, adverse reactions
   - **Clinical Considerations**: Important prescribing information
   - **Comparative Notes**: Differences between available products
   - **Research Gaps**: Areas needing further investigation

5. **Format Requirements**
   - Use clear headings and bullet points
   - Highlight critical safety information
   - Include specific product names when relevant
   - Cite FDA label data sources

Focus Area: %[3]s

Begin your analysis with the data collection steps above.`, substance, focus, instruction, CategoryKey(substance))
}
