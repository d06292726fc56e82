// Package llm provides the language-model completion client used to refine
// rule-based itinerary drafts.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/wayfarer-labs/concierge/observability"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Completer generates text from a system and user instruction pair.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userInstruction string) (string, error)
}

// Client is an OpenAI-backed Completer.
type Client struct {
	api        openai.Client
	model      string
	timeout    time.Duration
	configured bool
}

// NewClient creates a Client. An empty apiKey yields a client whose Complete
// always fails; callers degrade to their rule-based fallback in that case.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		api:        openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		timeout:    timeout,
		configured: strings.TrimSpace(apiKey) != "",
	}
}

// Complete runs one chat completion and returns the response text verbatim.
func (c *Client) Complete(ctx context.Context, systemInstruction, userInstruction string) (string, error) {
	if !c.configured {
		return "", fmt.Errorf("llm api key is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userInstruction),
		},
	})
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		observability.RecordLookupCall("llm", "error", durationMS)
		return "", fmt.Errorf("llm completion failed: %w", err)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		observability.RecordLookupCall("llm", "error", durationMS)
		return "", fmt.Errorf("llm returned an empty completion")
	}

	observability.RecordLookupCall("llm", "success", durationMS)
	return completion.Choices[0].Message.Content, nil
}
