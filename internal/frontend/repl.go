package frontend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/conversation"
	"github.com/morezero/capabilities-chat/pkg/dispatcher"
	"github.com/morezero/capabilities-chat/pkg/orchestrator"
	"github.com/morezero/capabilities-chat/pkg/registry"
)

const logPrefix = "frontend:repl"

// Backend is the orchestrator surface the console drives.
type Backend interface {
	Registry() *registry.Registry
	SetObserver(obs conversation.Observer)
	Query(ctx context.Context, text string) (conversation.History, error)
	ExecutePrompt(ctx context.Context, name string, args map[string]string) (conversation.History, error)
	ReadResource(ctx context.Context, locator string) (*dispatcher.Resource, bool, error)
}

// REPLParams holds parameters for NewREPL.
type REPLParams struct {
	Backend Backend
	In      io.Reader
	Out     io.Writer
	// Scheme expands "@name" directives; defaults to "drugs".
	Scheme string
	// Markdown renders markdown resources through glamour.
	Markdown bool
	Logger   *zap.Logger
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	notice lipgloss.Style
	call   lipgloss.Style
	err    lipgloss.Style
}

// REPL reads directives line by line and prints results. It is single-threaded:
// each directive completes before the next line is read.
type REPL struct {
	backend  Backend
	in       io.Reader
	out      io.Writer
	scheme   string
	markdown *glamour.TermRenderer
	styles   styles
	logger   *zap.Logger
}

// NewREPL builds a console and installs itself as the backend's observer.
func NewREPL(p REPLParams) *REPL {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheme := p.Scheme
	if scheme == "" {
		scheme = "drugs"
	}

	lg := lipgloss.NewRenderer(p.Out)
	r := &REPL{
		backend: p.Backend,
		in:      p.In,
		out:     p.Out,
		scheme:  scheme,
		logger:  logger,
		styles: styles{
			title:  lg.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
			header: lg.NewStyle().Bold(true),
			notice: lg.NewStyle().Faint(true),
			call:   lg.NewStyle().Foreground(lipgloss.Color("245")),
			err:    lg.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
	if p.Markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			logger.Debug("markdown renderer unavailable", zap.Error(err))
		} else {
			r.markdown = md
		}
	}
	p.Backend.SetObserver(r)
	return r
}

// Run prints the banner and processes lines until quit, end of input, or ctx
// cancellation.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	for {
		r.printf("\nQuery: ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			r.printf("\n\nGoodbye!\n")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			r.printf("\n\nGoodbye!\n")
			if err := <-readErr; err != nil {
				return fmt.Errorf("%s - read input: %w", logPrefix, err)
			}
			return nil
		}

		if quit := r.Handle(ctx, line); quit {
			r.printf("\nGoodbye! Stay safe with your research!\n")
			return nil
		}
	}
}

// Handle executes one console line and reports whether it asked to quit.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	d := Parse(line, r.scheme)
	switch d.Kind {
	case KindEmpty:
	case KindQuit:
		return true
	case KindInvalid:
		r.invalid(d)
	case KindListTools:
		r.listTools()
	case KindListPrompts:
		r.listPrompts()
	case KindListResources:
		r.listResources()
	case KindResource:
		r.readResource(ctx, d.Locator)
	case KindPrompt:
		r.executePrompt(ctx, d.Name, d.Args)
	case KindQuery:
		if _, err := r.backend.Query(ctx, d.Text); err != nil {
			r.failure(err)
		}
	}
	return false
}

// OnText prints assistant text as it arrives.
func (r *REPL) OnText(text string) {
	r.printf("%s\n", text)
}

// OnInvocation prints each dispatched action and any failure.
func (r *REPL) OnInvocation(call conversation.Block, result *dispatcher.Result) {
	r.printf("%s\n", r.styles.call.Render(fmt.Sprintf("Calling %s with %s", call.Name, formatArgs(call.Arguments))))
	if result != nil && result.Error != nil {
		r.printf("%s\n", r.styles.err.Render(result.Payload()))
	}
}

func (r *REPL) banner() {
	r.printf("\n%s\n", r.styles.title.Render("MCP Capability Chat Started!"))
	r.printf("Available commands:\n")
	r.printf("• Type your queries\n")
	r.printf("• @categories - View available %s categories\n", r.scheme)
	r.printf("• @<category> - View a specific %s resource\n", r.scheme)
	r.printf("• /tools - List available tools\n")
	r.printf("• /prompts - List available prompts\n")
	r.printf("• /resources - List available resources\n")
	r.printf("• /prompt <name> <arg1=value1> - Execute a prompt\n")
	r.printf("• quit - Exit the chat\n")
}

func (r *REPL) invalid(d Directive) {
	command := ""
	if details, ok := d.Err.Details.(map[string]string); ok {
		command = details["command"]
	}
	switch command {
	case "/prompt":
		r.printf("%s\n%s\n", PromptUsage, PromptExample)
	case "":
		r.printf("%s\n", r.styles.err.Render(d.Err.Message))
	default:
		r.printf("%s\n%s\n", d.Err.Message, ValidCommands)
	}
}

func (r *REPL) listTools() {
	actions := r.backend.Registry().Actions()
	if len(actions) == 0 {
		r.printf("No tools available.\n")
		return
	}
	r.printf("\n%s\n", r.styles.header.Render("Available tools:"))
	for _, a := range actions {
		r.printf("- %s: %s\n", a.Identifier, a.Description)
	}
}

func (r *REPL) listPrompts() {
	prompts := r.backend.Registry().Prompts()
	if len(prompts) == 0 {
		r.printf("No prompts available.\n")
		return
	}
	r.printf("\n%s\n", r.styles.header.Render("Available prompts:"))
	for _, p := range prompts {
		r.printf("- %s: %s\n", p.Identifier, p.Description)
		if len(p.Arguments) == 0 {
			continue
		}
		r.printf("  Arguments:\n")
		for _, a := range p.Arguments {
			r.printf("    - %s: %s\n", a.Name, a.Description)
		}
	}
}

func (r *REPL) listResources() {
	resources := r.backend.Registry().Resources()
	if len(resources) == 0 {
		r.printf("No resources available.\n")
		return
	}
	r.printf("\n%s\n", r.styles.header.Render("Available resources:"))
	for _, res := range resources {
		line := "- " + res.Identifier
		if res.Name != "" {
			line += ": " + res.Name
		}
		if res.Template {
			line += " " + r.styles.notice.Render("(template)")
		}
		r.printf("%s\n", line)
	}
}

func (r *REPL) readResource(ctx context.Context, locator string) {
	res, found, err := r.backend.ReadResource(ctx, locator)
	if !found {
		r.printf("Resource '%s' not found.\n", locator)
		return
	}
	if err != nil {
		r.printf("%s\n", r.styles.err.Render("Error reading resource: "+err.Error()))
		return
	}
	if res == nil || res.Text == "" {
		r.printf("No content available.\n")
		return
	}

	r.printf("\n%s\n", r.styles.header.Render("Resource: "+locator))
	r.printf("Content:\n")
	r.printf("%s\n", r.render(res))
}

func (r *REPL) render(res *dispatcher.Resource) string {
	if r.markdown == nil || !isMarkdown(res) {
		return res.Text
	}
	out, err := r.markdown.Render(res.Text)
	if err != nil {
		r.logger.Debug("markdown render failed", zap.Error(err))
		return res.Text
	}
	return strings.TrimRight(out, "\n")
}

func (r *REPL) executePrompt(ctx context.Context, name string, args map[string]string) {
	if _, ok := r.backend.Registry().Resolve(registry.KindPrompt, name); !ok {
		r.printf("Prompt '%s' not found.\n", name)
		return
	}
	r.printf("\nExecuting prompt '%s'...\n", name)
	if _, err := r.backend.ExecutePrompt(ctx, name, args); err != nil {
		if errors.Is(err, orchestrator.ErrPromptNotFound) {
			r.printf("Prompt '%s' not found.\n", name)
			return
		}
		r.printf("%s\n", r.styles.err.Render("Error executing prompt: "+err.Error()))
	}
}

func (r *REPL) failure(err error) {
	r.logger.Warn("query failed", zap.Error(err))
	r.printf("%s\n", r.styles.err.Render("Error: "+err.Error()))
	r.printf("Please try again or check your query format.\n")
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func isMarkdown(res *dispatcher.Resource) bool {
	return res.MIMEType == "" || strings.Contains(res.MIMEType, "markdown")
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "no arguments"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}
