package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-search/internal/config"
	"github.com/kirillkom/graphrag-search/internal/core/evaluation"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
	"github.com/kirillkom/graphrag-search/internal/core/store"
	"github.com/kirillkom/graphrag-search/internal/core/usecase"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/cache/embedcache"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/graph/neo4jgraph"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/llm/openai"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Store       *store.TieredStore
	Communities *store.CommunityStore
	Evaluator   *evaluation.Evaluator

	SearchUC *usecase.SearchUseCase
	StatsUC  *usecase.GraphStatsUseCase
	// BatchUC always runs in-process batches; Submit and RunByID need
	// Repo and Queue, which exist only when batches are enabled.
	BatchUC *usecase.BatchUseCase

	Repo  ports.EvaluationRepository
	Queue ports.BatchQueue

	executors map[string]*resilience.Executor
	checks    []readinessCheck
	closeFn   func()
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, executors: make(map[string]*resilience.Executor)}
	var closers []func()
	app.closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	embedExec := resilience.NewExecutor(resilienceConfig(cfg, resilience.ProfileEmbedding))
	genExec := resilience.NewExecutor(resilienceConfig(cfg, resilience.ProfileGeneration))
	app.executors["embedding"] = embedExec
	app.executors["generation"] = genExec

	embedder, generator, err := newLLM(cfg, embedExec, genExec)
	if err != nil {
		return fail(err)
	}
	if cfg.EmbedCacheEnabled {
		cached, err := embedcache.Open(embedder, embedcache.Options{
			Dir:       cfg.EmbedCacheDir,
			TTL:       time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second,
			Namespace: embedNamespace(cfg),
		})
		if err != nil {
			return fail(fmt.Errorf("init embedding cache: %w", err))
		}
		closers = append(closers, func() { _ = cached.Close() })
		embedder = cached
	}

	storage, err := localfs.New(cfg.DataDir, embedder)
	if err != nil {
		return fail(fmt.Errorf("init data dir: %w", err))
	}

	var graphs ports.GraphSource = storage
	if strings.EqualFold(cfg.GraphBackend, "neo4j") {
		source, err := neo4jgraph.New(neo4jgraph.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return fail(fmt.Errorf("init neo4j graph source: %w", err))
		}
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = source.Close(closeCtx)
		})
		app.checks = append(app.checks, readinessCheck{name: "neo4j", check: source.Ping})
		graphs = source
	}

	app.Store = store.NewTieredStore(storage, graphs)
	app.Communities = store.NewCommunityStore(storage)

	tier, err := store.ParseTier(cfg.StoreTier)
	if err != nil {
		return fail(err)
	}
	if tier > store.TierNone {
		if err := app.Store.Load(ctx, tier); err != nil {
			return fail(fmt.Errorf("load store tier %s: %w", tier, err))
		}
	}

	app.Evaluator = evaluation.New(evaluation.Options{
		ResultCap:    cfg.EvalResultCap,
		PairSample:   cfg.EvalPairSample,
		ContentChars: cfg.EvalContentChars,
		ContextChars: cfg.EvalContextChars,
		AnswerChars:  cfg.EvalAnswerChars,
		MaxSentences: cfg.EvalMaxSentences,
	})

	local := usecase.NewLocalSearch(app.Store, embedder, usecase.LocalSearchConfig{
		EntityTopK:        cfg.LocalEntityTopK,
		GraphSeeds:        cfg.LocalGraphSeeds,
		HopRadius:         cfg.GraphHopRadius,
		MaxGraphNeighbors: cfg.GraphMaxNeighbors,
		AutoPromote:       cfg.LocalAutoPromote,
	})
	global := usecase.NewGlobalSearch(app.Communities, embedder)
	app.SearchUC = usecase.NewSearchUseCase(local, global, generator, app.Evaluator, usecase.SearchConfig{
		DefaultTopK:      cfg.SearchDefaultTopK,
		MaxTopK:          cfg.SearchMaxTopK,
		ContextMaxTokens: cfg.ContextMaxTokens,
	})
	app.StatsUC = usecase.NewGraphStatsUseCase(app.Store)

	if cfg.BatchEnabled {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("open postgres: %w", err))
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewEvaluationRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("ensure schema: %w", err))
		}

		natsExec := resilience.NewExecutor(resilienceConfig(cfg, resilience.ProfileQueue))
		app.executors["nats"] = natsExec
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: natsExec,
			HandlerTimeout:     time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fail(fmt.Errorf("init message queue: %w", err))
		}
		closers = append(closers, queue.Close)

		app.Repo = repo
		app.Queue = queue
		app.checks = append(app.checks,
			readinessCheck{name: "postgres", check: repo.Ping},
			readinessCheck{name: "nats", check: func(context.Context) error {
				if !queue.Connected() {
					return errors.New("not connected")
				}
				return nil
			}},
		)
	}
	app.BatchUC = usecase.NewBatchUseCase(app.SearchUC, app.Repo, app.Queue)

	slog.Info("bootstrap_completed",
		"llm_provider", cfg.LLMProvider,
		"graph_backend", cfg.GraphBackend,
		"store_tier", app.Store.Tier().String(),
		"batch_enabled", cfg.BatchEnabled,
	)
	return app, nil
}

// Ready fails when the store has no tier loaded or a dependency is down.
func (a *App) Ready(ctx context.Context) error {
	if a.Store == nil || a.Store.Tier() < store.TierChunks {
		return errors.New("store: no tier loaded")
	}
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// BreakerStates lists circuit breaker states by executor and operation.
func (a *App) BreakerStates() map[string]string {
	out := make(map[string]string)
	for name, exec := range a.executors {
		for op, state := range exec.BreakerStates() {
			out[name+"/"+op] = state
		}
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newLLM(cfg config.Config, embedExec, genExec *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "ollama":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			Temperature:      cfg.GenerationTemperature,
			MaxTokens:        cfg.GenerationMaxTokens,
			Timeout:          time.Duration(cfg.GenerationTimeoutSeconds) * time.Second,
			EmbedExecutor:    embedExec,
			GenerateExecutor: genExec,
		})
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	case "openai":
		client := openai.New(openai.Options{
			BaseURL:          cfg.OpenAIBaseURL,
			APIKey:           cfg.OpenAIAPIKey,
			ChatModel:        cfg.OpenAIChatModel,
			EmbedModel:       cfg.OpenAIEmbedModel,
			Temperature:      float32(cfg.GenerationTemperature),
			MaxTokens:        cfg.GenerationMaxTokens,
			EmbedExecutor:    embedExec,
			GenerateExecutor: genExec,
		})
		return openai.NewEmbedder(client), openai.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func embedNamespace(cfg config.Config) string {
	if strings.EqualFold(cfg.LLMProvider, "openai") {
		return "openai:" + cfg.OpenAIEmbedModel
	}
	return "ollama:" + cfg.OllamaEmbedModel
}

func resilienceConfig(cfg config.Config, profile resilience.Profile) resilience.Config {
	return resilience.ForProfile(profile).WithOverrides(resilience.Overrides{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     cfg.ResilienceRetryMultiplier,
		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerOpenTimeout:  time.Duration(cfg.ResilienceBreakerOpenSeconds) * time.Second,
	})
}
