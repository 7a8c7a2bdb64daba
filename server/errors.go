package server

import (
	"errors"

	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/resilience"
)

// Sentinel errors returned by Dispatcher.Call.
var (
	// ErrUnknownTool is returned for a tool name not in Tools().
	ErrUnknownTool = errors.New("server: unknown tool")

	// ErrInvalidArguments is returned when tool arguments do not decode or
	// miss a required field.
	ErrInvalidArguments = errors.New("server: invalid arguments")

	// ErrEventNotFound is the single outcome of a lookup for an absent event
	// and for an event the caller may not see.
	ErrEventNotFound = errors.New("event not found")
)

// toolErrorText maps a dispatch error to the text shown to the agent.
// Collaborator and audit details stay in logs.
func toolErrorText(err error) string {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return ErrEventNotFound.Error()
	case errors.Is(err, ErrInvalidArguments), errors.Is(err, events.ErrInvalidRequest):
		return err.Error()
	case resilience.Rejected(err):
		return "service is busy, try again later"
	case errors.Is(err, resilience.ErrTimeout):
		return "upstream request timed out"
	case errors.Is(err, events.ErrEmbedding):
		return "semantic search is unavailable"
	case errors.Is(err, events.ErrSummarize):
		return "impact summary is unavailable"
	default:
		return "internal error"
	}
}
