package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

// HTTPStatusError is a non-2xx Ollama reply. It satisfies
// resilience.StatusCoder so the shared HTTP policy decides retries.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, e.Body)
}

func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }

// call runs one JSON request under exec and marks exhausted transient
// failures as temporary.
func call[T any](ctx context.Context, c *Client, exec *resilience.Executor, method, path, operation string, payload any) (T, error) {
	out, err := resilience.Do(ctx, exec, "ollama_"+operation, func(ctx context.Context) (T, error) {
		var out T
		return out, c.roundTrip(ctx, method, path, operation, payload, &out)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return out, resilience.WrapTemporary("ollama "+operation, err, resilience.ClassifyHTTPError)
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, operation string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
