package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/usecase"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/report"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		mode        string
		topK        int
		generate    bool
		entities    bool
		withGraph   bool
		evaluate    bool
		groundTruth string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a local, global, hybrid or auto search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searchMode, ok := domain.ParseSearchMode(mode)
			if !ok {
				return fmt.Errorf("unknown --mode %q", mode)
			}
			b, err := opts.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			resp, err := b.Search.Search(cmd.Context(), domain.SearchRequest{
				Query:           args[0],
				TopK:            topK,
				SearchType:      searchMode,
				GenerateAnswer:  generate,
				GroundTruth:     groundTruth,
				IncludeEntities: entities,
				IncludeGraph:    withGraph,
				Evaluate:        evaluate,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			renderSearch(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&mode, "mode", "m", "local", "search mode (local, global, hybrid, auto)")
	f.IntVarP(&topK, "top-k", "k", 0, "number of results (0 uses the configured default)")
	f.BoolVarP(&generate, "generate", "g", false, "generate an answer from the results")
	f.BoolVar(&entities, "entities", false, "merge entity matches into local results")
	f.BoolVar(&withGraph, "graph", false, "expand entity matches over the knowledge graph")
	f.BoolVar(&evaluate, "evaluate", false, "score the results even without an answer")
	f.StringVar(&groundTruth, "ground-truth", "", "reference answer for quality scoring")
	f.BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func newEvaluateCommand(opts *rootOptions) *cobra.Command {
	var (
		query       string
		answer      string
		resultsPath string
		groundTruth string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an answer against saved search results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if query == "" {
				return errors.New("--query is required")
			}
			results, err := readResults(resultsPath)
			if err != nil {
				return err
			}
			b, err := opts.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			m := b.Evaluator.Evaluate(query, results, answer, groundTruth)
			if asJSON {
				return writeJSON(cmd, m)
			}
			renderMetrics(cmd.OutOrStdout(), "", m)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&query, "query", "q", "", "the query the results answer")
	f.StringVarP(&answer, "answer", "a", "", "generated answer to score")
	f.StringVarP(&resultsPath, "results", "r", "", "JSON file with a search response or a results array")
	f.StringVar(&groundTruth, "ground-truth", "", "reference answer")
	f.BoolVar(&asJSON, "json", false, "print metrics as JSON")
	return cmd
}

func newBatchCommand(opts *rootOptions) *cobra.Command {
	var (
		queriesPath string
		outputPath  string
		xlsxPath    string
		topK        int
		skipLocal   bool
		skipGlobal  bool
		hybrid      bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compare local and global search over a list of queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var modes []domain.SearchMode
			if !skipLocal {
				modes = append(modes, domain.SearchLocal)
			}
			if !skipGlobal {
				modes = append(modes, domain.SearchGlobal)
			}
			if hybrid {
				modes = append(modes, domain.SearchHybrid)
			}
			if len(modes) == 0 {
				return errors.New("--skip-local and --skip-global leave nothing to run without --hybrid")
			}
			lines, err := readLines(queriesPath)
			if err != nil {
				return err
			}
			queries := usecase.CleanQueries(lines)
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d queries from %s\n", len(queries), queriesPath)

			b, err := opts.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			rep, err := b.Batch.RunQueries(cmd.Context(), queries, modes, topK)
			if err != nil {
				return err
			}
			if err := writeTextReport(outputPath, rep); err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := writeWorkbook(xlsxPath, rep); err != nil {
					return err
				}
			}
			renderSummaries(cmd.OutOrStdout(), rep.Summaries)
			fmt.Fprintf(cmd.ErrOrStderr(), "Metrics written to %s\n", outputPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&queriesPath, "queries", "q", "queries.txt", "file with one query per line, # for comments")
	f.StringVarP(&outputPath, "output", "o", "metrics.txt", "text report path")
	f.StringVar(&xlsxPath, "xlsx", "", "optional xlsx workbook path")
	f.IntVarP(&topK, "top-k", "k", 0, "results per query (0 uses the configured default)")
	f.BoolVar(&skipLocal, "skip-local", false, "skip local search")
	f.BoolVar(&skipGlobal, "skip-global", false, "skip global search")
	f.BoolVar(&hybrid, "hybrid", false, "also run hybrid search")
	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print knowledge graph statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := opts.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			stats, err := b.Stats.GraphStats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}
			renderStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}
	return lines, nil
}

// readResults accepts either a saved search response or a bare array of
// results.
func readResults(path string) ([]domain.SearchResult, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err == nil && resp.Results != nil {
		return resp.Results, nil
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return results, nil
}

func writeTextReport(path string, rep *domain.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.WriteText(f, rep, time.Now()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func writeWorkbook(path string, rep *domain.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := report.WriteWorkbook(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
