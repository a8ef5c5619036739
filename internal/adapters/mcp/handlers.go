package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

func handleSearch(search ports.SearchService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		mode, ok := domain.ParseSearchMode(request.GetString("search_type", ""))
		if !ok {
			return mcp.NewToolResultError("search_type must be local, global, hybrid or auto"), nil
		}
		generate := request.GetBool("generate_answer", false)

		resp, err := search.Search(ctx, domain.SearchRequest{
			Query:           query,
			TopK:            request.GetInt("top_k", 0),
			SearchType:      mode,
			GenerateAnswer:  generate,
			IncludeEntities: request.GetBool("include_entities", false),
			IncludeGraph:    request.GetBool("include_graph", false),
			Evaluate:        generate,
		})
		if err != nil {
			slog.Error("mcp_search_failed", "query", query, "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResponse(resp)), nil
	}
}

func handleEvaluate(evaluator ports.ResultEvaluator) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		results, err := decodeResults(request.GetArguments()["results"])
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		m := evaluator.Evaluate(query, results, request.GetString("answer", ""), request.GetString("ground_truth", ""))
		return mcp.NewToolResultText(formatMetrics(m)), nil
	}
}

func handleGraphStats(stats ports.GraphStatsReader) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s, err := stats.GraphStats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("graph stats error: %v", err)), nil
		}
		return mcp.NewToolResultText(formatGraphStats(s)), nil
	}
}

// decodeResults round-trips the loosely typed tool argument through JSON.
func decodeResults(raw any) ([]domain.SearchResult, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("results must be an array of search results: %w", err)
	}
	for i, r := range results {
		if !r.Type.Valid() {
			return nil, fmt.Errorf("results[%d]: unknown type %q", i, r.Type)
		}
	}
	return results, nil
}
