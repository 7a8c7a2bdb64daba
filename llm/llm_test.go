package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PeterSurowski/ai-event-search/cache"
	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/resilience"
)

// fakeAPI serves the two OpenAI endpoints the package uses.
type fakeAPI struct {
	t *testing.T

	mu        sync.Mutex
	embedReqs []openai.EmbeddingRequest
	chatReqs  []openai.ChatCompletionRequest

	vector  []float32
	content string
	status  int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
		f.t.Errorf("Authorization = %q", got)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/embeddings":
		var req openai.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode embedding request: %v", err)
		}
		f.mu.Lock()
		f.embedReqs = append(f.embedReqs, req)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": f.vector}},
		})
	case "/v1/chat/completions":
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode chat request: %v", err)
		}
		f.mu.Lock()
		f.chatReqs = append(f.chatReqs, req)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": f.content},
			}},
		})
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T, api *fakeAPI) *openai.Client {
	t.Helper()
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient() = %v, want ErrMissingAPIKey", err)
	}
}

func TestEmbedder_Embed(t *testing.T) {
	api := &fakeAPI{vector: []float32{0.25, -0.5, 1}}
	client := newFakeClient(t, api)

	cfg := DefaultConfig()
	cfg.Dimensions = 3
	e := NewEmbedder(client, NewExecutor("embedding", cfg, nil), cfg)

	got, err := e.Embed(context.Background(), "payment outage")
	if err != nil {
		t.Fatalf("Embed() = %v", err)
	}
	if len(got) != 3 || got[0] != 0.25 || got[2] != 1 {
		t.Errorf("Embed() = %v", got)
	}

	if len(api.embedReqs) != 1 {
		t.Fatalf("requests = %d", len(api.embedReqs))
	}
	req := api.embedReqs[0]
	if req.Model != openai.SmallEmbedding3 || req.Dimensions != 3 {
		t.Errorf("request model/dims = %q/%d", req.Model, req.Dimensions)
	}
	if in, ok := req.Input.([]any); !ok || len(in) != 1 || in[0] != "payment outage" {
		t.Errorf("request input = %#v", req.Input)
	}
}

func TestEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
		dims int
		want error
	}{
		{name: "server error", api: &fakeAPI{status: http.StatusInternalServerError}},
		{name: "empty vector", api: &fakeAPI{vector: []float32{}}, want: ErrEmptyResponse},
		{name: "dimension mismatch", api: &fakeAPI{vector: []float32{1, 2}}, dims: 3, want: ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient(t, tt.api)
			e := NewEmbedder(client, nil, Config{Dimensions: tt.dims})

			_, err := e.Embed(context.Background(), "q")
			if err == nil {
				t.Fatal("Embed() = nil error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Embed() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEmbedder_OpenCircuitSkipsAPI(t *testing.T) {
	api := &fakeAPI{status: http.StatusInternalServerError}
	client := newFakeClient(t, api)

	cfg := DefaultConfig()
	cfg.MaxFailures = 1
	cfg.ResetTimeout = time.Hour
	var opened atomic.Bool
	exec := NewExecutor("embedding", cfg, func(_ string, _, to resilience.State) {
		if to == resilience.StateOpen {
			opened.Store(true)
		}
	})
	e := NewEmbedder(client, exec, cfg)

	_, _ = e.Embed(context.Background(), "q")
	_, err := e.Embed(context.Background(), "q")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Embed() = %v, want ErrCircuitOpen", err)
	}
	if !opened.Load() {
		t.Error("state change callback not invoked")
	}
	if exec.CircuitBreaker().Name() != "embedding" {
		t.Errorf("breaker name = %q", exec.CircuitBreaker().Name())
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	api := &fakeAPI{content: "  Two payment incidents degraded checkout.  "}
	client := newFakeClient(t, api)
	s := NewSummarizer(client, nil, Config{})

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evs := []events.Event{
		{ID: "a2", ServiceID: "svc-a", EventType: "incident", Severity: "critical", Title: "Checkout down", Description: "line one\nline two", OccurredAt: at},
		{ID: "a1", ServiceID: "svc-a", EventType: "deploy", Severity: "low", Title: "Release 1.2", Description: strings.Repeat("x", 400), OccurredAt: at.Add(-time.Hour)},
	}

	got, err := s.Summarize(context.Background(), "svc-a", evs)
	if err != nil {
		t.Fatalf("Summarize() = %v", err)
	}
	if got != "Two payment incidents degraded checkout." {
		t.Errorf("Summarize() = %q", got)
	}

	if len(api.chatReqs) != 1 {
		t.Fatalf("requests = %d", len(api.chatReqs))
	}
	req := api.chatReqs[0]
	if req.Model != openai.GPT4oMini || req.MaxTokens != 400 {
		t.Errorf("model/max tokens = %q/%d", req.Model, req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages = %+v", req.Messages)
	}
	prompt := req.Messages[1].Content
	for _, want := range []string{
		"Service: svc-a",
		"Events (2, newest first)",
		"2026-03-01T12:00:00Z [critical] incident: Checkout down | line one line two",
		strings.Repeat("x", maxDescription) + "...",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "disk full", want: "disk full"},
		{name: "exact", in: strings.Repeat("x", maxDescription), want: strings.Repeat("x", maxDescription)},
		{name: "ascii", in: strings.Repeat("x", maxDescription+1), want: strings.Repeat("x", maxDescription) + "..."},
		{name: "rune across limit", in: strings.Repeat("x", maxDescription-1) + "é", want: strings.Repeat("x", maxDescription-1) + "..."},
		{name: "rune on limit", in: strings.Repeat("€", 150), want: strings.Repeat("€", maxDescription/3) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateDescription(tt.in)
			if got != tt.want {
				t.Errorf("truncateDescription() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateDescription() returned invalid UTF-8 %q", got)
			}
		})
	}
}

func TestSummarizer_EmptyResponse(t *testing.T) {
	client := newFakeClient(t, &fakeAPI{content: "   "})
	s := NewSummarizer(client, nil, Config{})

	if _, err := s.Summarize(context.Background(), "svc-a", nil); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Summarize() = %v, want ErrEmptyResponse", err)
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache()
	next := &countingEmbedder{}
	e := NewCachedEmbedder(next, "m1", store, cache.DefaultPolicy(), nil)

	for i := 0; i < 3; i++ {
		v, err := e.Embed(ctx, "abcd")
		if err != nil || len(v) != 1 || v[0] != 4 {
			t.Fatalf("Embed() = %v, %v", v, err)
		}
	}
	if next.calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", next.calls.Load())
	}

	_, _ = e.Embed(ctx, "other")
	if next.calls.Load() != 2 {
		t.Errorf("distinct text must miss; calls = %d", next.calls.Load())
	}

	// A different model never reuses another model's vectors.
	e2 := NewCachedEmbedder(next, "m2", store, cache.DefaultPolicy(), nil)
	_, _ = e2.Embed(ctx, "abcd")
	if next.calls.Load() != 3 {
		t.Errorf("model change must miss; calls = %d", next.calls.Load())
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	next := &countingEmbedder{err: boom}
	e := NewCachedEmbedder(next, "m1", cache.NewMemoryCache(), cache.DefaultPolicy(), nil)

	if _, err := e.Embed(ctx, "q"); !errors.Is(err, boom) {
		t.Fatalf("Embed() = %v", err)
	}
	next.err = nil
	if _, err := e.Embed(ctx, "q"); err != nil {
		t.Fatalf("Embed() after recovery = %v", err)
	}
	if next.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", next.calls.Load())
	}
}
