package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

type SearchConfig struct {
	DefaultTopK      int
	MaxTopK          int
	ContextMaxTokens int
}

func (c SearchConfig) normalize() SearchConfig {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 10
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = 100
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	return c
}

// SearchUseCase runs one query end to end: search, optional generation and
// scoring.
type SearchUseCase struct {
	local     *LocalSearch
	global    *GlobalSearch
	generator ports.AnswerGenerator
	evaluator ports.ResultEvaluator
	contexts  *ContextBuilder
	cfg       SearchConfig
}

func NewSearchUseCase(
	local *LocalSearch,
	global *GlobalSearch,
	generator ports.AnswerGenerator,
	evaluator ports.ResultEvaluator,
	cfg SearchConfig,
) *SearchUseCase {
	cfg = cfg.normalize()
	return &SearchUseCase{
		local:     local,
		global:    global,
		generator: generator,
		evaluator: evaluator,
		contexts:  NewContextBuilder(cfg.ContextMaxTokens),
		cfg:       cfg,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req, mode, err := uc.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := uc.retrieve(ctx, mode, req)
	if err != nil {
		return nil, err
	}
	searchElapsed := time.Since(start)

	resp := &domain.SearchResponse{
		Query:      req.Query,
		SearchType: mode,
		Results:    results,
	}

	if req.GenerateAnswer {
		genStart := time.Now()
		answer, err := uc.generate(ctx, mode, req.Query, results)
		resp.Timings.GenerationSeconds = time.Since(genStart).Seconds()
		switch {
		case err == nil:
			resp.Answer = answer
		case ctx.Err() != nil:
			return nil, err
		default:
			slog.Warn("answer_generation_failed", "search_type", string(mode), "error", err)
			resp.Warnings = append(resp.Warnings, err.Error())
		}
	}

	if (req.GenerateAnswer || req.Evaluate) && uc.evaluator != nil {
		metrics := uc.evaluator.Evaluate(req.Query, results, resp.Answer, req.GroundTruth)
		resp.Metrics = &metrics
	}

	resp.Timings.SearchSeconds = searchElapsed.Seconds()
	resp.Timings.TotalSeconds = time.Since(start).Seconds()
	return resp, nil
}

func (uc *SearchUseCase) normalizeRequest(req domain.SearchRequest) (domain.SearchRequest, domain.SearchMode, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, "", domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	switch {
	case req.TopK < 0:
		return req, "", domain.WrapError(domain.ErrInvalidInput, "search", errors.New("top_k must be positive"))
	case req.TopK == 0:
		req.TopK = uc.cfg.DefaultTopK
	case req.TopK > uc.cfg.MaxTopK:
		req.TopK = uc.cfg.MaxTopK
	}

	mode, ok := domain.ParseSearchMode(string(req.SearchType))
	if !ok {
		return req, "", domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unknown search_type %q", req.SearchType))
	}
	if mode == domain.SearchAuto {
		mode = ClassifyQuery(req.Query)
	}
	req.SearchType = mode
	return req, mode, nil
}

func (uc *SearchUseCase) retrieve(ctx context.Context, mode domain.SearchMode, req domain.SearchRequest) ([]domain.SearchResult, error) {
	switch mode {
	case domain.SearchGlobal:
		return uc.global.Search(ctx, req.Query, req.TopK)
	case domain.SearchHybrid:
		return uc.hybrid(ctx, req)
	default:
		return uc.local.Search(ctx, req.Query, LocalSearchOptions{
			TopK:            req.TopK,
			IncludeEntities: req.IncludeEntities,
			IncludeGraph:    req.IncludeGraph,
		})
	}
}

// hybrid splits top_k between local and global search, local taking the odd
// slot, and merges both lists by score.
func (uc *SearchUseCase) hybrid(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	localK := (req.TopK + 1) / 2
	globalK := max(req.TopK-localK, 1)

	local, err := uc.local.Search(ctx, req.Query, LocalSearchOptions{
		TopK:            localK,
		IncludeEntities: req.IncludeEntities,
		IncludeGraph:    req.IncludeGraph,
	})
	if err != nil {
		return nil, err
	}
	global, err := uc.global.Search(ctx, req.Query, globalK)
	if err != nil {
		return nil, err
	}

	merged := make([]domain.SearchResult, 0, len(local)+len(global))
	merged = append(merged, local...)
	merged = append(merged, global...)
	slices.SortStableFunc(merged, func(a, b domain.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	// Community ids are small integers and may collide with chunk ids.
	merged = dedupeBy(merged, func(r domain.SearchResult) string { return string(r.Type) + "/" + r.ID })
	return truncateResults(merged, req.TopK), nil
}

func (uc *SearchUseCase) generate(ctx context.Context, mode domain.SearchMode, query string, results []domain.SearchResult) (string, error) {
	if uc.generator == nil {
		return "", domain.WrapError(domain.ErrGeneration, "generate answer", errors.New("no generator configured"))
	}
	answer, err := uc.generator.GenerateAnswer(ctx, mode, query, uc.contexts.Build(mode, results))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", domain.WrapError(domain.ErrGeneration, "generate answer", errors.New("empty answer"))
	}
	return strings.TrimSpace(answer), nil
}
