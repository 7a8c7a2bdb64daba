package server

import (
	"time"

	"github.com/PeterSurowski/ai-event-search/events"
)

// Tool names exposed on /tools/list and accepted by /tools/call.
const (
	ToolSearchEvents       = "search_events"
	ToolGetEventDetails    = "get_event_details"
	ToolGetServiceTimeline = "get_service_timeline"
	ToolGetImpactSummary   = "get_impact_summary"
)

// Tool describes one callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func dateTimeProp(desc string) map[string]any {
	return map[string]any{"type": "string", "format": "date-time", "description": desc}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func limitProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "description": "Maximum number of events to return"}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// Tools returns the tool catalog in a stable order.
func Tools() []Tool {
	return []Tool{
		{
			Name:        ToolSearchEvents,
			Description: "Search events visible to the caller by keyword or by semantic similarity.",
			InputSchema: objectSchema(map[string]any{
				"query": stringProp("Text to search for"),
				"mode": map[string]any{
					"type":        "string",
					"enum":        []string{string(events.ModeKeyword), string(events.ModeSemantic)},
					"default":     string(events.ModeKeyword),
					"description": "keyword matches literal text; semantic ranks by embedding similarity",
				},
				"serviceId": stringProp("Restrict results to one service"),
				"eventType": stringProp("Restrict results to one event type"),
				"severity":  stringProp("Restrict results to one severity"),
				"from":      dateTimeProp("Earliest occurrence time (RFC 3339)"),
				"to":        dateTimeProp("Latest occurrence time (RFC 3339)"),
				"limit":     limitProp(),
			}, "query"),
		},
		{
			Name:        ToolGetEventDetails,
			Description: "Fetch a single event by id.",
			InputSchema: objectSchema(map[string]any{
				"eventId": stringProp("Event id"),
			}, "eventId"),
		},
		{
			Name:        ToolGetServiceTimeline,
			Description: "List a service's events, newest first.",
			InputSchema: objectSchema(map[string]any{
				"serviceId": stringProp("Service id"),
				"from":      dateTimeProp("Earliest occurrence time (RFC 3339)"),
				"to":        dateTimeProp("Latest occurrence time (RFC 3339)"),
				"limit":     limitProp(),
			}, "serviceId"),
		},
		{
			Name:        ToolGetImpactSummary,
			Description: "Summarize the impact of a service's recent events in prose.",
			InputSchema: objectSchema(map[string]any{
				"serviceId": stringProp("Service id"),
				"from":      dateTimeProp("Earliest occurrence time (RFC 3339)"),
				"to":        dateTimeProp("Latest occurrence time (RFC 3339)"),
			}, "serviceId"),
		},
	}
}

type searchArgs struct {
	Query     string            `json:"query"`
	Mode      events.SearchMode `json:"mode"`
	ServiceID string            `json:"serviceId"`
	EventType string            `json:"eventType"`
	Severity  string            `json:"severity"`
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Limit     int               `json:"limit"`
}

func (a searchArgs) request() events.SearchRequest {
	return events.SearchRequest{
		Query: a.Query,
		Mode:  a.Mode,
		Filters: events.Filters{
			ServiceID: a.ServiceID,
			EventType: a.EventType,
			Severity:  a.Severity,
			Range:     events.DateRange{From: a.From, To: a.To},
		},
		Limit: a.Limit,
	}
}

type detailsArgs struct {
	EventID string `json:"eventId"`
}

type timelineArgs struct {
	ServiceID string    `json:"serviceId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Limit     int       `json:"limit"`
}

func (a timelineArgs) dateRange() events.DateRange {
	return events.DateRange{From: a.From, To: a.To}
}

type impactArgs struct {
	ServiceID string    `json:"serviceId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

func (a impactArgs) dateRange() events.DateRange {
	return events.DateRange{From: a.From, To: a.To}
}

// eventList is the result of search and timeline tools.
type eventList struct {
	Events []events.Event `json:"events"`
	Count  int            `json:"count"`
}

func newEventList(evs []events.Event) eventList {
	if evs == nil {
		evs = []events.Event{}
	}
	return eventList{Events: evs, Count: len(evs)}
}

func (l eventList) ResultCount() int { return l.Count }

type eventDetails struct {
	Event events.Event `json:"event"`
}

func (eventDetails) ResultCount() int { return 1 }

type impactResult struct {
	events.ImpactSummary
}

func (r impactResult) ResultCount() int { return r.EventCount }
