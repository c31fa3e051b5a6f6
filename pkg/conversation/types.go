// Package conversation runs the tool-augmented dialogue with a completion backend.
package conversation

import (
	"context"
	"strings"

	"github.com/morezero/capabilities-chat/pkg/dispatcher"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags a content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockInvocation BlockType = "invocation"
	BlockResult     BlockType = "result"
)

// Block is one piece of a message. Invocation blocks carry Name/Arguments and a
// correlation Token; result blocks answer the invocation with the same Token.
type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text,omitempty"`

	Token     string         `json:"token,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`

	Payload   string `json:"payload,omitempty"`
	IsError   bool   `json:"isError,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`

	// Signature is an opaque backend token that must be echoed back with the block.
	Signature []byte `json:"signature,omitempty"`
}

// TextBlock builds a text block.
func TextBlock(text string) Block { return Block{Type: BlockText, Text: text} }

// InvocationBlock builds an invocation request block.
func InvocationBlock(token, name string, args map[string]any) Block {
	return Block{Type: BlockInvocation, Token: token, Name: name, Arguments: args}
}

// Message is one turn of the conversation.
type Message struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"blocks"`
}

// Text returns the concatenated text blocks of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// Invocations returns the invocation blocks of the message in order.
func (m Message) Invocations() []Block {
	var out []Block
	for _, b := range m.Blocks {
		if b.Type == BlockInvocation {
			out = append(out, b)
		}
	}
	return out
}

// History is the ordered list of turns for one Run.
type History []Message

// UserText returns a history holding a single user text message.
func UserText(text string) History {
	return History{{Role: RoleUser, Blocks: []Block{TextBlock(text)}}}
}

// Last returns the final message, or false when empty.
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}

// ActionDescriptor is what the completion backend learns about an action.
type ActionDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one completion request.
type Request struct {
	System    string
	History   History
	Actions   []ActionDescriptor
	MaxTokens int
}

// Completer produces the next assistant content for a conversation.
type Completer interface {
	Complete(ctx context.Context, req *Request) ([]Block, error)
}

// Invoker executes one action invocation.
type Invoker interface {
	Invoke(ctx context.Context, req *dispatcher.InvokeRequest) *dispatcher.Result
}

// ActionSource lists the actions offered to the model.
type ActionSource interface {
	Actions() []ActionDescriptor
}

// ActionSourceFunc adapts a function to ActionSource.
type ActionSourceFunc func() []ActionDescriptor

func (f ActionSourceFunc) Actions() []ActionDescriptor { return f() }

// Observer receives progress while a Run is in flight.
type Observer interface {
	OnText(text string)
	OnInvocation(invocation Block, result *dispatcher.Result)
}
