package ai

import (
	"context"
	"errors"
	"strings"
)

const systemPrompt = "You are a helpful assistant. Answer based only on the provided context."

var ErrMissingCredential = errors.New("llm api key not set")

// Answer is the outcome of asking the answering service. Exactly one of
// Text and Err is meaningful; callers decide how an error is rendered.
type Answer struct {
	Text string
	Err  error
}

type completer interface {
	Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error)
}

// Answerer answers questions about a context string with a chat model.
type Answerer struct {
	client completer
	cfg    ChatConfig
}

func NewAnswerer(client *OpenAICompatibleClient, cfg ChatConfig) *Answerer {
	return &Answerer{client: client, cfg: cfg}
}

// Answer never returns a Go error; failures travel in Answer.Err.
func (a *Answerer) Answer(ctx context.Context, contextText, question string) Answer {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		return Answer{Err: ErrMissingCredential}
	}
	text, err := a.client.Complete(ctx, a.cfg, BuildMessages(contextText, question))
	if err != nil {
		return Answer{Err: err}
	}
	return Answer{Text: strings.TrimSpace(text)}
}

func BuildMessages(contextText, question string) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Context:\n" + contextText + "\n\nQuestion: " + question},
	}
}
