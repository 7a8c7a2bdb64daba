package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/resilience"
)

const summarySystemPrompt = "You summarize operational events for one service. " +
	"Describe the overall impact, the most severe issues and any recurring patterns " +
	"in at most one short paragraph. Use only the events provided."

// maxDescription bounds each event description in the prompt.
const maxDescription = 300

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer turns a service's events into prose with the chat endpoint.
type Summarizer struct {
	api       chatAPI
	exec      *resilience.Executor
	model     string
	maxTokens int
}

// NewSummarizer creates a Summarizer. A nil exec calls the API unguarded.
func NewSummarizer(api chatAPI, exec *resilience.Executor, cfg Config) *Summarizer {
	def := DefaultConfig()
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &Summarizer{api: api, exec: exec, model: cfg.ChatModel, maxTokens: cfg.MaxTokens}
}

// Summarize describes evs, which all belong to serviceID.
func (s *Summarizer) Summarize(ctx context.Context, serviceID string, evs []events.Event) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summaryPrompt(serviceID, evs)},
		},
	}

	resp, err := resilience.Do(ctx, s.exec, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		return s.api.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("llm: create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func summaryPrompt(serviceID string, evs []events.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s\nEvents (%d, newest first):\n", serviceID, len(evs))
	for _, ev := range evs {
		fmt.Fprintf(&b, "- %s [%s] %s: %s",
			ev.OccurredAt.UTC().Format(time.RFC3339), ev.Severity, ev.EventType, ev.Title)
		if d := strings.TrimSpace(ev.Description); d != "" {
			d = truncateDescription(d)
			b.WriteString(" | ")
			b.WriteString(strings.ReplaceAll(d, "\n", " "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// truncateDescription cuts d to at most maxDescription bytes on a rune
// boundary.
func truncateDescription(d string) string {
	if len(d) <= maxDescription {
		return d
	}
	i := maxDescription
	for i > 0 && !utf8.RuneStart(d[i]) {
		i--
	}
	return d[:i] + "..."
}
