package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

type searchFake struct {
	got domain.SearchRequest
	err error
}

func (f *searchFake) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SearchResponse{
		Query:      req.Query,
		SearchType: domain.SearchLocal,
		Results: []domain.SearchResult{{
			ID: "Protein", Type: domain.ResultEntity, Content: "Protein: Macronutrient", Score: 0.91,
			Metadata: domain.ResultMetadata{GraphNeighbors: []string{"Kidney", "Muscle"}},
		}},
		Answer:  "Protein builds muscle.",
		Metrics: &domain.MetricsResult{Overall: 0.75},
	}, nil
}

type evaluatorFake struct {
	results []domain.SearchResult
	answer  string
}

func (f *evaluatorFake) Evaluate(_ string, results []domain.SearchResult, answer, _ string) domain.MetricsResult {
	f.results = results
	f.answer = answer
	return domain.MetricsResult{Relevance: 0.6, Overall: 0.4}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestHandleSearch(t *testing.T) {
	search := &searchFake{}
	res, err := handleSearch(search)(context.Background(), callRequest("graphrag_search", map[string]any{
		"query":           "protein",
		"search_type":     "auto",
		"top_k":           float64(4),
		"generate_answer": true,
		"include_graph":   true,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, domain.SearchAuto, search.got.SearchType)
	assert.Equal(t, 4, search.got.TopK)
	assert.True(t, search.got.GenerateAnswer)
	assert.True(t, search.got.IncludeGraph)

	text := resultText(t, res)
	assert.Contains(t, text, "**Graph neighbors:** Kidney, Muscle")
	assert.Contains(t, text, "Protein builds muscle.")
	assert.Contains(t, text, "| Overall | 0.7500 |")
}

func TestHandleSearchErrors(t *testing.T) {
	res, err := handleSearch(&searchFake{})(context.Background(), callRequest("graphrag_search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = handleSearch(&searchFake{})(context.Background(), callRequest("graphrag_search", map[string]any{"query": "q", "search_type": "semantic"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	failing := &searchFake{err: domain.WrapError(domain.ErrStoreLoad, "load chunks", errors.New("missing"))}
	res, err = handleSearch(failing)(context.Background(), callRequest("graphrag_search", map[string]any{"query": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "store load failed")
}

func TestHandleEvaluate(t *testing.T) {
	evaluator := &evaluatorFake{}
	res, err := handleEvaluate(evaluator)(context.Background(), callRequest("graphrag_evaluate", map[string]any{
		"query":  "protein",
		"answer": "Protein.",
		"results": []any{
			map[string]any{"id": "c1", "type": "chunk", "content": "Protein text", "score": 0.8},
		},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, evaluator.results, 1)
	assert.Equal(t, domain.ResultChunk, evaluator.results[0].Type)
	assert.Equal(t, "Protein.", evaluator.answer)
	assert.Contains(t, resultText(t, res), "| Relevance | 0.6000 |")

	res, err = handleEvaluate(evaluator)(context.Background(), callRequest("graphrag_evaluate", map[string]any{
		"query":   "protein",
		"results": []any{map[string]any{"id": "x", "type": "document"}},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("test", Services{Search: &searchFake{}, Evaluator: &evaluatorFake{}})
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"graphrag_search"`)
	assert.Contains(t, body, `"graphrag_evaluate"`)
	assert.NotContains(t, body, `"graphrag_graph_stats"`)
}
