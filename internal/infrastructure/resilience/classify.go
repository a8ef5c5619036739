package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// ClassifyHTTPError is the shared policy for HTTP model backends: transport
// failures and 408/429/5xx are retried, other statuses are permanent and do
// not count against the breaker, cancellation is neither.
func ClassifyHTTPError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var status StatusCoder
	if errors.As(err, &status) {
		if IsRetryableHTTPStatus(status.HTTPStatus()) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// WrapTemporary marks retry-exhausted transient failures as domain.ErrTemporary.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
