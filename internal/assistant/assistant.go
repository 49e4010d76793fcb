// Package assistant turns retrieved chunks and chat history into a model
// request and the model reply into an answer with citations.
package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"docqa/internal/fusion"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer sends a chat request and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

const DefaultSystemPrompt = "You are an Assistant named TB-RAG. Answer the questions in detail based on the provided document. " +
	"If the information is not in the documents or you can't find it, say to user you don't know the answer.Don't hallucinate"

const snippetPrefix = "Document snippet:\n"

// BuildMessages lays out a request as: system prompt, prior turns, the
// question, then one snippet message per retrieved chunk in fused order.
func BuildMessages(systemPrompt, question string, history []Message, results []fusion.Result) []Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	msgs := make([]Message, 0, len(history)+len(results)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: question})
	for _, r := range results {
		msgs = append(msgs, Message{Role: RoleUser, Content: snippetPrefix + r.Chunk.Text})
	}
	return msgs
}

// Answer is the reply to one question.
type Answer struct {
	Text          string            `json:"answer"`
	Citations     []fusion.Citation `json:"citations"`
	ShowCitations bool              `json:"show_citations"`
	FileName      string            `json:"file_name,omitempty"` // document the citations come from
}

// ErrModelCall matches every failure of the chat model behind an answer.
var ErrModelCall = errors.New("model call failed")

// ModelCallError wraps the completer error that prevented an answer.
type ModelCallError struct {
	Err error
}

func (e *ModelCallError) Error() string {
	return "model call failed: " + e.Err.Error()
}

func (e *ModelCallError) Unwrap() error { return e.Err }

func (e *ModelCallError) Is(target error) bool { return target == ErrModelCall }

// Assembler produces answers from retrieved results.
type Assembler struct {
	completer    Completer
	systemPrompt string
	hedge        *HedgeDetector
	logger       *zap.Logger
}

func NewAssembler(completer Completer, systemPrompt string, hedge *HedgeDetector, logger *zap.Logger) *Assembler {
	if hedge == nil {
		hedge = NewHedgeDetector(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		completer:    completer,
		systemPrompt: systemPrompt,
		hedge:        hedge,
		logger:       logger,
	}
}

// Answer asks the model and attaches every consumed chunk as a citation.
// Citations stay in the answer even when the reply hedges; ShowCitations
// tells the caller whether to display them. Zero results still produce a
// model call.
func (a *Assembler) Answer(ctx context.Context, question string, history []Message, results []fusion.Result) (Answer, error) {
	msgs := BuildMessages(a.systemPrompt, question, history, results)

	text, err := a.completer.Complete(ctx, msgs)
	if err != nil {
		return Answer{}, &ModelCallError{Err: err}
	}

	citations := make([]fusion.Citation, len(results))
	for i, r := range results {
		citations[i] = r.Citation()
	}

	hedged := a.hedge.IsHedge(text)
	a.logger.Debug("answer assembled",
		zap.Int("snippets", len(results)),
		zap.Bool("hedged", hedged),
	)

	return Answer{
		Text:          strings.TrimSpace(text),
		Citations:     citations,
		ShowCitations: !hedged && len(citations) > 0,
	}, nil
}
