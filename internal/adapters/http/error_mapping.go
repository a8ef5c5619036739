package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStoreNotLoaded):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrStoreLoad),
		domain.IsKind(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"operation", operation,
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", attrs...)
	} else {
		slog.Warn("request_failed", attrs...)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
