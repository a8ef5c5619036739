package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func TestEmbedderKeepsInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(Options{BaseURL: server.URL}))
	vectors, err := embedder.Embed(context.Background(), []string{"protein", "sleep"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestGeneratorUsesGlobalPrompt(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Sleep and nutrition. "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{BaseURL: server.URL + "/v1", ChatModel: "local-model"}))
	answer, err := gen.GenerateAnswer(context.Background(), domain.SearchGlobal, "Main themes?", "[Community 1: Sleep]")
	require.NoError(t, err)
	assert.Equal(t, "Sleep and nutrition.", answer)
	assert.Equal(t, "local-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.True(t, strings.HasPrefix(req.Messages[1].Content, "Community Summaries:"))
}

func TestGeneratorMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{BaseURL: server.URL}))
	_, err := gen.GenerateAnswer(context.Background(), domain.SearchLocal, "q", "ctx")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestGeneratorNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{BaseURL: server.URL}))
	if _, err := gen.GenerateAnswer(context.Background(), domain.SearchLocal, "q", "ctx"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
