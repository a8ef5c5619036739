// Package mcpadapter exposes search and evaluation as MCP tools.
package mcpadapter

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

const serverName = "graphrag-search"

type Services struct {
	Search    ports.SearchService
	Evaluator ports.ResultEvaluator
	Stats     ports.GraphStatsReader
}

func NewServer(version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTool(searchTool(), handleSearch(svc.Search))
	s.AddTool(evaluateTool(), handleEvaluate(svc.Evaluator))
	if svc.Stats != nil {
		s.AddTool(graphStatsTool(), handleGraphStats(svc.Stats))
	}
	return s
}
