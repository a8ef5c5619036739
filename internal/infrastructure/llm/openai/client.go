// Package openai talks to OpenAI-compatible chat and embedding endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

type Options struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	EmbedModel  string
	Temperature float32
	MaxTokens   int

	EmbedExecutor    *resilience.Executor
	GenerateExecutor *resilience.Executor
}

type Client struct {
	api  *goopenai.Client
	opts Options
}

func New(opts Options) *Client {
	apiKey := opts.APIKey
	if apiKey == "" {
		// Local OpenAI-compatible servers usually ignore the key.
		apiKey = "unused"
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		cfg.BaseURL = base
	}
	if opts.ChatModel == "" {
		opts.ChatModel = goopenai.GPT4oMini
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = string(goopenai.SmallEmbedding3)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1536
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), opts: opts}
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
	resp, err := resilience.Do(ctx, e.client.opts.EmbedExecutor, "openai_embed", func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input: texts,
			Model: goopenai.EmbeddingModel(e.client.opts.EmbedModel),
		})
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
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
	req := goopenai.ChatCompletionRequest{
		Model: g.client.opts.ChatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: chat.System},
			{Role: goopenai.ChatMessageRoleUser, Content: chat.User},
		},
		Temperature: g.client.opts.Temperature,
		MaxTokens:   g.client.opts.MaxTokens,
	}

	resp, err := resilience.Do(ctx, g.client.opts.GenerateExecutor, "openai_chat", func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
		return g.client.api.CreateChatCompletion(ctx, req)
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", err, classifyOpenAIError)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// statusError adapts go-openai errors to resilience.StatusCoder.
type statusError struct {
	err    error
	status int
}

func (e statusError) Error() string   { return e.err.Error() }
func (e statusError) Unwrap() error   { return e.err }
func (e statusError) HTTPStatus() int { return e.status }

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return resilience.ClassifyHTTPError(statusError{err: err, status: apiErr.HTTPStatusCode})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return resilience.ClassifyHTTPError(statusError{err: err, status: reqErr.HTTPStatusCode})
	}
	return resilience.ClassifyHTTPError(err)
}
