// Package cli implements the graphrag command line tool.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/observability/logging"
)

// BatchRunner runs a batch comparison in process.
type BatchRunner interface {
	RunQueries(ctx context.Context, queries []string, modes []domain.SearchMode, topK int) (*domain.BatchReport, error)
}

// Backend is what the commands run against.
type Backend struct {
	Search    ports.SearchService
	Evaluator ports.ResultEvaluator
	Stats     ports.GraphStatsReader
	Batch     BatchRunner
	Close     func()
}

type BackendFactory func(ctx context.Context, cfg config.Config) (*Backend, error)

type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	factory BackendFactory
}

// NewRootCommand builds the command tree. Flags, GRAPHRAG_* variables and the
// optional YAML file all feed the same config.Config.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	opts := &rootOptions{v: viper.New(), factory: factory}

	root := &cobra.Command{
		Use:   "graphrag",
		Short: "Search and evaluate a GraphRAG knowledge store",
		Long: `graphrag queries precomputed GraphRAG output (chunk, entity and community
embeddings plus the entity graph) with local or global search, generates
answers and scores them with retrieval and answer quality metrics.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "YAML config file")
	flags.String("data-dir", "", "directory with GraphRAG output files")
	flags.String("llm-provider", "", "embedding and generation backend (ollama, openai)")
	flags.String("store-tier", "", "store tier to load at startup (none, chunks, entities, graph)")
	flags.String("graph-backend", "", "graph source for the graph tier (file, neo4j)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	opts.v.SetEnvPrefix("GRAPHRAG")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()
	_ = opts.v.BindPFlags(flags)

	root.AddCommand(
		newSearchCommand(opts),
		newEvaluateCommand(opts),
		newBatchCommand(opts),
		newStatsCommand(opts),
	)
	return root
}

func (o *rootOptions) config() (config.Config, error) {
	cfg, err := config.LoadFile(o.cfgFile)
	if err != nil {
		return cfg, err
	}
	if o.v.IsSet("data-dir") {
		cfg.DataDir = o.v.GetString("data-dir")
	}
	if o.v.IsSet("llm-provider") {
		cfg.LLMProvider = o.v.GetString("llm-provider")
	}
	if o.v.IsSet("store-tier") {
		cfg.StoreTier = o.v.GetString("store-tier")
	}
	if o.v.IsSet("graph-backend") {
		cfg.GraphBackend = o.v.GetString("graph-backend")
	}
	cfg.LogLevel = o.v.GetString("log-level")
	cfg.BatchEnabled = false
	return cfg, nil
}

func (o *rootOptions) backend(ctx context.Context) (*Backend, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logging.New("graphrag-cli", cfg.LogLevel, "text")
	b, err := o.factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	return b, nil
}

func (b *Backend) close() {
	if b.Close != nil {
		b.Close()
	}
}
