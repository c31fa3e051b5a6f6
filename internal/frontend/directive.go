// Package frontend implements the interactive console: directive parsing and
// the read-eval loop over an orchestrator.
package frontend

import (
	"strings"

	"github.com/morezero/capabilities-chat/pkg/registry"
)

// Kind identifies what a console line asks for.
type Kind int

const (
	KindEmpty Kind = iota
	KindQuery
	KindResource
	KindListTools
	KindListPrompts
	KindListResources
	KindPrompt
	KindQuit
	KindInvalid
)

// Console usage strings.
const (
	PromptUsage   = "Usage: /prompt <name> <arg1=value1> <arg2=value2>"
	PromptExample = "Example: /prompt generate_drug_research_prompt substance_name=ibuprofen research_focus=safety"
	ValidCommands = "Available commands: /tools, /prompts, /resources, /prompt"
)

// Directive is one parsed console line.
type Directive struct {
	Kind Kind
	// Text is the user message for KindQuery.
	Text string
	// Locator is the resource locator for KindResource.
	Locator string
	// Prompt name and arguments for KindPrompt.
	Name string
	Args map[string]string
	// Err explains a KindInvalid directive.
	Err *registry.RegistryError
}

// Parse classifies a console line. scheme is the resource scheme used to
// expand "@name" shorthands into "<scheme>://name".
func Parse(line, scheme string) Directive {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Directive{Kind: KindEmpty}
	case strings.EqualFold(line, "quit"):
		return Directive{Kind: KindQuit}
	case strings.HasPrefix(line, "@"):
		name := strings.TrimSpace(line[1:])
		if name == "" {
			return invalid("missing resource name after '@'", "")
		}
		return Directive{Kind: KindResource, Locator: scheme + "://" + name}
	case strings.HasPrefix(line, "/"):
		return parseCommand(line)
	default:
		return Directive{Kind: KindQuery, Text: line}
	}
}

func parseCommand(line string) Directive {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	switch command {
	case "/tools":
		return Directive{Kind: KindListTools}
	case "/prompts":
		return Directive{Kind: KindListPrompts}
	case "/resources":
		return Directive{Kind: KindListResources}
	case "/prompt":
		if len(parts) < 2 {
			return invalid(PromptUsage, command)
		}
		args := make(map[string]string)
		for _, tok := range parts[2:] {
			// First '=' splits; tokens without one are dropped.
			if k, v, ok := strings.Cut(tok, "="); ok {
				args[k] = v
			}
		}
		return Directive{Kind: KindPrompt, Name: parts[1], Args: args}
	default:
		return invalid("Unknown command: "+command, command)
	}
}

func invalid(msg, command string) Directive {
	err := registry.NewRegistryError(registry.CodeInvalidDirective, msg)
	if command != "" {
		err.Details = map[string]string{"command": command}
	}
	return Directive{Kind: KindInvalid, Err: err}
}
