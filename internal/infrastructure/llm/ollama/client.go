package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// EmbedExecutor and GenerateExecutor may be nil for single attempts.
	EmbedExecutor    *resilience.Executor
	GenerateExecutor *resilience.Executor
}

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	opts       Options
}

func New(baseURL, genModel, embedModel string) *Client {
	return NewWithOptions(baseURL, genModel, embedModel, Options{})
}

func NewWithOptions(baseURL, genModel, embedModel string, opts Options) *Client {
	if opts.Temperature <= 0 {
		opts.Temperature = 0.4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1536
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	response, err := call[embedResponse](ctx, e.client, e.client.opts.EmbedExecutor, http.MethodPost, "/api/embed", "embed", map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, mode domain.SearchMode, query, contextText string) (string, error) {
	chat := prompt.ForMode(mode, query, contextText)
	return g.client.chat(ctx, chat)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) chat(ctx context.Context, chat prompt.Chat) (string, error) {
	reqBody := map[string]any{
		"model": c.genModel,
		"messages": []chatMessage{
			{Role: "system", Content: chat.System},
			{Role: "user", Content: chat.User},
		},
		"stream": false,
		"options": map[string]any{
			"temperature": c.opts.Temperature,
			"num_predict": c.opts.MaxTokens,
		},
	}

	response, err := call[chatResponse](ctx, c, c.opts.GenerateExecutor, http.MethodPost, "/api/chat", "chat", reqBody)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

// Ping checks that the Ollama server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.roundTrip(ctx, http.MethodGet, "/api/tags", "ping", nil, nil)
}
