package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

func TestGeneratorSendsChatPrompt(t *testing.T) {
	var payload struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
		Options  struct {
			Temperature float64 `json:"temperature"`
			NumPredict  int     `json:"num_predict"`
		} `json:"options"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  Protein matters. [Source 1] "}}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3.1:8b", "embed"))
	answer, err := gen.GenerateAnswer(context.Background(), domain.SearchLocal, "question?", "[Source 1]\nchunk text")
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "Protein matters. [Source 1]" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if payload.Model != "llama3.1:8b" || payload.Stream {
		t.Fatalf("unexpected payload model=%q stream=%v", payload.Model, payload.Stream)
	}
	if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", payload.Messages)
	}
	if !strings.Contains(payload.Messages[1].Content, "question?") || !strings.Contains(payload.Messages[1].Content, "chunk text") {
		t.Fatalf("unexpected user prompt: %s", payload.Messages[1].Content)
	}
	if payload.Options.Temperature != 0.4 || payload.Options.NumPredict != 1536 {
		t.Fatalf("unexpected options: %+v", payload.Options)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestEmbedRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	client := NewWithOptions(server.URL, "gen", "embed", Options{EmbedExecutor: exec})
	vector, err := NewEmbedder(client).EmbedQuery(context.Background(), "protein")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 || calls.Load() != 2 {
		t.Fatalf("unexpected vector %v after %d calls", vector, calls.Load())
	}
}

func TestGeneratorDoesNotWrapPermanentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "missing", "embed"))
	_, err := gen.GenerateAnswer(context.Background(), domain.SearchGlobal, "q", "ctx")
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed")).Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestPingReportsStatus(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer healthy.Close()
	if err := New(healthy.URL, "gen", "embed").Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	err := New(down.URL, "gen", "embed").Ping(context.Background())
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 status error, got %v", err)
	}
}
