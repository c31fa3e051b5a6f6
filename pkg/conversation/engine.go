package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/dispatcher"
)

const logPrefix = "conversation:engine"

// DefaultMaxTokens is used when EngineParams.MaxTokens is zero.
const DefaultMaxTokens = 2024

// ErrTurnLimit is returned when a positive MaxTurns bound is reached before the
// model produced a final answer.
var ErrTurnLimit = errors.New("turn limit reached")

// State is the loop position within one Run.
type State int

const (
	AwaitingModel State = iota
	HasText
	HasInvocations
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "AWAITING_MODEL"
	case HasText:
		return "HAS_TEXT"
	case HasInvocations:
		return "HAS_INVOCATIONS"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EngineParams holds parameters for NewEngine.
type EngineParams struct {
	Completer Completer
	Invoker   Invoker
	Actions   ActionSource
	Observer  Observer
	System    string
	MaxTokens int
	// MaxTurns bounds completion requests per Run. Zero means unbounded.
	MaxTurns int
	Logger   *zap.Logger
}

// Engine drives the completion/invocation loop.
type Engine struct {
	completer Completer
	invoker   Invoker
	actions   ActionSource
	observer  Observer
	system    string
	maxTokens int
	maxTurns  int
	logger    *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(p EngineParams) *Engine {
	e := &Engine{
		completer: p.Completer,
		invoker:   p.Invoker,
		actions:   p.Actions,
		observer:  p.Observer,
		system:    p.System,
		maxTokens: p.MaxTokens,
		maxTurns:  p.MaxTurns,
		logger:    p.Logger,
	}
	if e.maxTokens <= 0 {
		e.maxTokens = DefaultMaxTokens
	}
	if e.actions == nil {
		e.actions = ActionSourceFunc(func() []ActionDescriptor { return nil })
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// SetObserver replaces the progress observer. Nil disables observation.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// Query runs a fresh conversation seeded with one user message.
func (e *Engine) Query(ctx context.Context, text string) (History, error) {
	return e.Run(ctx, UserText(text))
}

// Run advances history until the model answers without requesting invocations.
// The returned history includes every turn appended during the call, also when
// an error ends it early.
func (e *Engine) Run(ctx context.Context, history History) (History, error) {
	actions := e.actions.Actions()
	state := AwaitingModel

	for turn := 1; ; turn++ {
		if e.maxTurns > 0 && turn > e.maxTurns {
			return history, fmt.Errorf("%s - %w after %d completions", logPrefix, ErrTurnLimit, e.maxTurns)
		}
		if err := ctx.Err(); err != nil {
			return history, err
		}

		blocks, err := e.completer.Complete(ctx, &Request{
			System:    e.system,
			History:   history,
			Actions:   actions,
			MaxTokens: e.maxTokens,
		})
		if err != nil {
			return history, fmt.Errorf("%s - completion failed: %w", logPrefix, err)
		}

		assistant := Message{Role: RoleAssistant, Blocks: make([]Block, 0, len(blocks))}
		var invocations []Block
		for _, b := range blocks {
			switch b.Type {
			case BlockInvocation:
				if b.Token == "" {
					b.Token = uuid.NewString()
				}
				invocations = append(invocations, b)
			case BlockText:
				e.notifyText(b.Text)
			}
			assistant.Blocks = append(assistant.Blocks, b)
		}
		history = append(history, assistant)

		if len(invocations) == 0 {
			state = HasText
			e.logger.Debug("conversation finished", zap.Int("turns", turn), zap.Stringer("state", state))
			return history, nil
		}

		state = HasInvocations
		e.logger.Debug("dispatching invocations",
			zap.Int("turn", turn),
			zap.Int("count", len(invocations)),
			zap.Stringer("state", state))

		results := Message{Role: RoleUser, Blocks: make([]Block, 0, len(invocations))}
		for _, inv := range invocations {
			res := e.invoker.Invoke(ctx, &dispatcher.InvokeRequest{
				CorrelationToken: inv.Token,
				Identifier:       inv.Name,
				Arguments:        inv.Arguments,
			})
			if e.observer != nil {
				e.observer.OnInvocation(inv, res)
			}
			results.Blocks = append(results.Blocks, Block{
				Type:      BlockResult,
				Token:     inv.Token,
				Name:      inv.Name,
				Payload:   res.Payload(),
				IsError:   res.IsError,
				ErrorCode: res.ErrorCode(),
			})
		}
		history = append(history, results)
		state = AwaitingModel
	}
}

func (e *Engine) notifyText(text string) {
	if e.observer != nil && text != "" {
		e.observer.OnText(text)
	}
}
