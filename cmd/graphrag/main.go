package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/graphrag-search/internal/adapters/cli"
	"github.com/kirillkom/graphrag-search/internal/bootstrap"
	"github.com/kirillkom/graphrag-search/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context, cfg config.Config) (*cli.Backend, error) {
		app, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &cli.Backend{
			Search:    app.SearchUC,
			Evaluator: app.Evaluator,
			Stats:     app.StatsUC,
			Batch:     app.BatchUC,
			Close:     app.Close,
		}, nil
	})
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
