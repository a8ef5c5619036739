package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

const (
	embeddingsDir      = "processed/embeddings"
	graphFile          = "output/graph/graph.graphml"
	communityReportsPQ = "output/reports/community_reports.parquet"
)

// Storage reads an indexed GraphRAG data directory:
//
//	processed/embeddings/{chunks,entities,communities}_embeddings.npy
//	processed/embeddings/{chunks,entities,communities}_metadata.json
//	output/graph/graph.graphml
//	output/reports/community_reports.parquet
type Storage struct {
	basePath string
	// embedder is only used to embed community reports read from the
	// parquet fallback, which carries no vectors.
	embedder ports.Embedder
}

func New(basePath string, embedder ports.Embedder) (*Storage, error) {
	if basePath == "" {
		basePath = "./data"
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", basePath)
	}
	return &Storage{basePath: basePath, embedder: embedder}, nil
}

func (s *Storage) BasePath() string {
	return s.basePath
}

func (s *Storage) LoadChunks(ctx context.Context) ([]domain.Chunk, domain.Matrix, error) {
	vectors, err := s.readMatrix(ctx, "chunks")
	if err != nil {
		return nil, domain.Matrix{}, err
	}
	var records []chunkRecord
	if err := s.readJSON(ctx, metadataKey("chunks"), &records); err != nil {
		return nil, domain.Matrix{}, err
	}
	chunks := make([]domain.Chunk, 0, len(records))
	for i, r := range records {
		chunks = append(chunks, r.toDomain(i))
	}
	return chunks, vectors, nil
}

func (s *Storage) LoadEntities(ctx context.Context) ([]domain.Entity, domain.Matrix, error) {
	vectors, err := s.readMatrix(ctx, "entities")
	if err != nil {
		return nil, domain.Matrix{}, err
	}
	var records []entityRecord
	if err := s.readJSON(ctx, metadataKey("entities"), &records); err != nil {
		return nil, domain.Matrix{}, err
	}
	entities := make([]domain.Entity, 0, len(records))
	for i, r := range records {
		entities = append(entities, r.toDomain(i))
	}
	return entities, vectors, nil
}

// LoadCommunityReports prefers the embedded community metadata and falls
// back to the parquet reports, embedding "title\nsummary" for each one.
func (s *Storage) LoadCommunityReports(ctx context.Context) ([]domain.CommunityReport, domain.Matrix, error) {
	vectors, err := s.readMatrix(ctx, "communities")
	switch {
	case err == nil:
		var records []communityRecord
		if err := s.readJSON(ctx, metadataKey("communities"), &records); err != nil {
			return nil, domain.Matrix{}, err
		}
		reports := make([]domain.CommunityReport, 0, len(records))
		for i, r := range records {
			reports = append(reports, r.toDomain(i))
		}
		return reports, vectors, nil
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("community_embeddings_missing", "fallback", communityReportsPQ)
		return s.loadParquetReports(ctx)
	default:
		return nil, domain.Matrix{}, err
	}
}

func (s *Storage) LoadGraph(ctx context.Context) ([]domain.Entity, []domain.Relationship, error) {
	f, err := s.Open(ctx, graphFile)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrStoreLoad, "load graph", err)
	}
	defer f.Close()

	nodes, edges, err := decodeGraphML(f)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrStoreLoad, "load graph", err)
	}
	return nodes, edges, nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) loadParquetReports(ctx context.Context) ([]domain.CommunityReport, domain.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Matrix{}, err
	}
	reports, err := readCommunityReports(filepath.Join(s.basePath, filepath.FromSlash(communityReportsPQ)))
	if err != nil {
		return nil, domain.Matrix{}, domain.WrapError(domain.ErrStoreLoad, "load community reports", err)
	}
	if len(reports) == 0 {
		return reports, domain.Matrix{}, nil
	}
	if s.embedder == nil {
		return nil, domain.Matrix{}, domain.WrapError(
			domain.ErrStoreLoad,
			"load community reports",
			errors.New("community embeddings missing and no embedder configured"),
		)
	}

	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = r.Title + "\n" + r.Summary
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.Matrix{}, fmt.Errorf("embed community reports: %w", err)
	}
	return reports, domain.NewMatrix(vectors), nil
}

func metadataKey(name string) string {
	return embeddingsDir + "/" + name + "_metadata.json"
}

func embeddingsKey(name string) string {
	return embeddingsDir + "/" + name + "_embeddings.npy"
}
