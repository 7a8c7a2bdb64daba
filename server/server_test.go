package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PeterSurowski/ai-event-search/audit"
	"github.com/PeterSurowski/ai-event-search/auth"
	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/health"
	"github.com/PeterSurowski/ai-event-search/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubEmbedder struct{ err error }

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, serviceID string, evs []events.Event) (string, error) {
	return fmt.Sprintf("%s: %d events", serviceID, len(evs)), nil
}

type fixture struct {
	srv      *Server
	recorder *audit.MemoryRecorder
	registry *prometheus.Registry
}

func newFixture(t *testing.T, embedder events.Embedder) *fixture {
	t.Helper()

	store := events.NewMemoryStore(
		events.Event{ID: "evt-a", ServiceID: "svc-a", EventType: "incident", Severity: "high",
			Title: "Database outage", OccurredAt: base, Embedding: []float32{1, 0}},
		events.Event{ID: "evt-b", ServiceID: "svc-b", EventType: "incident", Severity: "critical",
			Title: "Database outage in eu", OccurredAt: base.Add(-time.Hour), Embedding: []float32{1, 0}},
	)
	creds := auth.NewMemoryCredentialStore()
	err := creds.Add(auth.CredentialRecord{
		ID:                 "tok-a",
		CredentialHash:     auth.HashCredential("secret-a"),
		Name:               "agent-a",
		AuthorizedServices: []string{"svc-a"},
		CreatedAt:          base,
	})
	if err != nil {
		t.Fatalf("Add() = %v", err)
	}

	recorder := audit.NewMemoryRecorder()
	resolver := auth.NewResolver(creds, recorder, nil, auth.ResolverConfig{})
	t.Cleanup(func() { _ = resolver.Close(context.Background()) })

	gate := events.NewGate(store, embedder, stubSummarizer{}, recorder, events.GateConfig{})
	registry := prometheus.NewRegistry()
	srv := New(Config{}, Options{
		Dispatcher: NewDispatcher(gate, resolver, nil),
		Health:     health.NewAggregator(),
		Gatherer:   registry,
	})
	return &fixture{srv: srv, recorder: recorder, registry: registry}
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) call(t *testing.T, name string, args any, token string) CallResult {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	body, err := json.Marshal(CallRequest{Name: name, Arguments: raw, Meta: CallMeta{AuthToken: token}})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := f.post(t, string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /tools/call %s = %d %s", name, rec.Code, rec.Body.String())
	}
	var res CallResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("content = %+v, want one text block", res.Content)
	}
	return res
}

func (f *fixture) actions() []audit.Action {
	var out []audit.Action
	for _, e := range f.recorder.Entries() {
		out = append(out, e.Action)
	}
	return out
}

func decodeList(t *testing.T, res CallResult) eventList {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}
	var l eventList
	if err := json.Unmarshal([]byte(res.Content[0].Text), &l); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return l
}

func listIDs(l eventList) []string {
	ids := make([]string, 0, len(l.Events))
	for _, ev := range l.Events {
		ids = append(ids, ev.ID)
	}
	return ids
}

func TestListTools(t *testing.T) {
	f := newFixture(t, stubEmbedder{})
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools/list", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /tools/list = %d", rec.Code)
	}

	var body struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var names []string
	for _, tool := range body.Tools {
		names = append(names, tool.Name)
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s schema type = %v", tool.Name, tool.InputSchema["type"])
		}
	}
	want := []string{ToolSearchEvents, ToolGetEventDetails, ToolGetServiceTimeline, ToolGetImpactSummary}
	if !slices.Equal(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestSearchEvents_ScopedToCaller(t *testing.T) {
	for _, mode := range []string{"", "keyword", "semantic"} {
		t.Run("mode="+mode, func(t *testing.T) {
			f := newFixture(t, stubEmbedder{})
			args := map[string]any{"query": "outage"}
			if mode != "" {
				args["mode"] = mode
			}
			l := decodeList(t, f.call(t, ToolSearchEvents, args, "secret-a"))
			if got := listIDs(l); !slices.Equal(got, []string{"evt-a"}) || l.Count != 1 {
				t.Errorf("results = %v (count %d), want [evt-a]", got, l.Count)
			}
			want := []audit.Action{audit.ActionAuthenticationSuccess, audit.ActionSearch}
			if got := f.actions(); !slices.Equal(got, want) {
				t.Errorf("audit = %v, want %v", got, want)
			}
			if got := f.recorder.Entries()[1].CallerID; got != "tok-a" {
				t.Errorf("search audited for %q", got)
			}
		})
	}
}

func TestSearchEvents_ServiceFilterOutsideScope(t *testing.T) {
	f := newFixture(t, stubEmbedder{})
	l := decodeList(t, f.call(t, ToolSearchEvents, map[string]any{"query": "outage", "serviceId": "svc-b"}, "secret-a"))
	if l.Count != 0 {
		t.Errorf("results = %v, want none", listIDs(l))
	}
}

func TestCall_UnauthenticatedSeesNothing(t *testing.T) {
	for _, token := range []string{"", "never-issued"} {
		t.Run("token="+token, func(t *testing.T) {
			f := newFixture(t, stubEmbedder{})
			l := decodeList(t, f.call(t, ToolSearchEvents, map[string]any{"query": "outage"}, token))
			if l.Count != 0 {
				t.Errorf("results = %v, want none", listIDs(l))
			}
			tl := decodeList(t, f.call(t, ToolGetServiceTimeline, map[string]any{"serviceId": "svc-a"}, token))
			if tl.Count != 0 {
				t.Errorf("timeline = %v, want none", listIDs(tl))
			}
			if got := f.recorder.Entries()[0].Action; got != audit.ActionAuthenticationFailure {
				t.Errorf("first audit = %s, want authentication_failure", got)
			}
		})
	}
}

func TestGetEventDetails(t *testing.T) {
	f := newFixture(t, stubEmbedder{})

	res := f.call(t, ToolGetEventDetails, map[string]any{"eventId": "evt-a"}, "secret-a")
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}
	var d eventDetails
	if err := json.Unmarshal([]byte(res.Content[0].Text), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Event.ID != "evt-a" || d.Event.ServiceID != "svc-a" {
		t.Errorf("event = %+v", d.Event)
	}
}

func TestGetEventDetails_DeniedMatchesAbsent(t *testing.T) {
	f := newFixture(t, stubEmbedder{})

	denied := f.call(t, ToolGetEventDetails, map[string]any{"eventId": "evt-b"}, "secret-a")
	absent := f.call(t, ToolGetEventDetails, map[string]any{"eventId": "evt-missing"}, "secret-a")

	for name, res := range map[string]CallResult{"denied": denied, "absent": absent} {
		if !res.IsError || res.Content[0].Text != "event not found" {
			t.Errorf("%s = %+v, want event not found", name, res)
		}
		if res.StructuredContent != nil {
			t.Errorf("%s carries structured content %v", name, res.StructuredContent)
		}
	}

	entries := f.recorder.Entries()
	if got := entries[1].Action; got != audit.ActionAuthorizationDenied {
		t.Errorf("denied lookup audited as %s", got)
	}
}

func TestGetServiceTimeline(t *testing.T) {
	f := newFixture(t, stubEmbedder{})

	own := decodeList(t, f.call(t, ToolGetServiceTimeline, map[string]any{"serviceId": "svc-a"}, "secret-a"))
	if got := listIDs(own); !slices.Equal(got, []string{"evt-a"}) {
		t.Errorf("svc-a timeline = %v", got)
	}
	other := decodeList(t, f.call(t, ToolGetServiceTimeline, map[string]any{"serviceId": "svc-b"}, "secret-a"))
	if other.Count != 0 {
		t.Errorf("svc-b timeline = %v, want none", listIDs(other))
	}

	ranged := decodeList(t, f.call(t, ToolGetServiceTimeline, map[string]any{
		"serviceId": "svc-a",
		"from":      base.Add(time.Minute).Format(time.RFC3339),
	}, "secret-a"))
	if ranged.Count != 0 {
		t.Errorf("ranged timeline = %v, want none", listIDs(ranged))
	}
}

func TestGetImpactSummary(t *testing.T) {
	f := newFixture(t, stubEmbedder{})

	res := f.call(t, ToolGetImpactSummary, map[string]any{"serviceId": "svc-a"}, "secret-a")
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}
	var s events.ImpactSummary
	if err := json.Unmarshal([]byte(res.Content[0].Text), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Summary != "svc-a: 1 events" || s.EventCount != 1 || s.BySeverity["high"] != 1 {
		t.Errorf("summary = %+v", s)
	}

	denied := f.call(t, ToolGetImpactSummary, map[string]any{"serviceId": "svc-b"}, "secret-a")
	var d events.ImpactSummary
	if err := json.Unmarshal([]byte(denied.Content[0].Text), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.EventCount != 0 || d.Summary != "" {
		t.Errorf("denied summary = %+v, want empty", d)
	}
}

func TestCall_ToolErrors(t *testing.T) {
	tests := []struct {
		name     string
		embedder events.Embedder
		tool     string
		args     map[string]any
		want     string
	}{
		{"missing query", stubEmbedder{}, ToolSearchEvents, map[string]any{}, "query is required"},
		{"unknown argument", stubEmbedder{}, ToolSearchEvents, map[string]any{"query": "x", "tenant": "svc-b"}, "invalid arguments"},
		{"bad date", stubEmbedder{}, ToolGetServiceTimeline, map[string]any{"serviceId": "svc-a", "from": "yesterday"}, "invalid arguments"},
		{"limit on summary", stubEmbedder{}, ToolGetImpactSummary, map[string]any{"serviceId": "svc-a", "limit": 5}, "invalid arguments"},
		{"unknown mode", stubEmbedder{}, ToolSearchEvents, map[string]any{"query": "x", "mode": "fuzzy"}, "unknown search mode"},
		{"inverted range", stubEmbedder{}, ToolGetServiceTimeline, map[string]any{
			"serviceId": "svc-a",
			"from":      base.Format(time.RFC3339),
			"to":        base.Add(-time.Hour).Format(time.RFC3339),
		}, "invalid request"},
		{"embedder down", stubEmbedder{err: errors.New("dial tcp: refused")}, ToolSearchEvents,
			map[string]any{"query": "x", "mode": "semantic"}, "semantic search is unavailable"},
		{"circuit open", stubEmbedder{err: resilience.ErrCircuitOpen}, ToolSearchEvents,
			map[string]any{"query": "x", "mode": "semantic"}, "service is busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.embedder)
			res := f.call(t, tt.tool, tt.args, "secret-a")
			if !res.IsError || !strings.Contains(res.Content[0].Text, tt.want) {
				t.Errorf("result = %+v, want error mentioning %q", res, tt.want)
			}
			if strings.Contains(res.Content[0].Text, "dial tcp") {
				t.Errorf("collaborator detail leaked: %q", res.Content[0].Text)
			}
			if entries := f.recorder.Entries(); len(entries) == 0 || entries[0].Action != audit.ActionAuthenticationSuccess {
				t.Errorf("audit entries = %+v, want the attempt recorded", entries)
			}
		})
	}
}

func TestCall_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantAudit []audit.Action
	}{
		{"malformed", `{"name":`, http.StatusBadRequest, nil},
		{"missing name", `{"arguments":{}}`, http.StatusBadRequest, nil},
		{"unknown tool", `{"name":"drop_tables","_meta":{"authToken":"secret-a"}}`, http.StatusNotFound,
			[]audit.Action{audit.ActionAuthenticationSuccess}},
		{"unknown tool without credential", `{"name":"drop_tables"}`, http.StatusNotFound,
			[]audit.Action{audit.ActionAuthenticationFailure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, stubEmbedder{})
			rec := f.post(t, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" || body.RequestID == "" {
				t.Errorf("body = %s", rec.Body.String())
			}
			if got := f.actions(); !slices.Equal(got, tt.wantAudit) {
				t.Errorf("audit actions = %v, want %v", got, tt.wantAudit)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, stubEmbedder{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tools/list", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	f.srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "req-123" {
		t.Errorf("echoed request id = %q", got)
	}

	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools/list", nil))
	if _, err := uuid.Parse(rec.Header().Get(HeaderRequestID)); err != nil {
		t.Errorf("generated request id %q: %v", rec.Header().Get(HeaderRequestID), err)
	}
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	f := newFixture(t, stubEmbedder{})
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "eventsearch_test_total", Help: "test"})
	f.registry.MustRegister(counter)
	counter.Inc()

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/metrics", "eventsearch_test_total 1"},
		{"/healthz", "OK"},
		{"/readyz", "OK"},
		{"/health", `"status":"healthy"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("GET %s = %d %s", tt.path, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUnmarshalArgs_Empty(t *testing.T) {
	for _, raw := range []string{"", " ", "null"} {
		var a detailsArgs
		if err := unmarshalArgs(json.RawMessage(raw), &a); err != nil {
			t.Errorf("unmarshalArgs(%q) = %v", raw, err)
		}
	}
	if err := unmarshalArgs(json.RawMessage(`[1]`), &detailsArgs{}); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("array args = %v, want ErrInvalidArguments", err)
	}
}

func TestCallRequest_Encoding(t *testing.T) {
	var req CallRequest
	err := json.NewDecoder(bytes.NewReader([]byte(`{"name":"search_events","arguments":{"query":"x"},"_meta":{"authToken":"t"}}`))).Decode(&req)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Meta.AuthToken != "t" || string(req.Arguments) != `{"query":"x"}` {
		t.Errorf("request = %+v", req)
	}
}
