package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/graphrag-search/internal/adapters/mcp"
	"github.com/kirillkom/graphrag-search/internal/bootstrap"
	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg, err := config.LoadFile(os.Getenv("GRAPHRAG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.BatchEnabled = false
	// stdout carries the MCP protocol; logs go to stderr.
	logging.New("graphrag-mcp", cfg.LogLevel, "text")

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(version, mcpadapter.Services{
		Search:    app.SearchUC,
		Evaluator: app.Evaluator,
		Stats:     app.StatsUC,
	})
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
		os.Exit(1)
	}
}
