package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

// transientErrors clear once the client reconnects.
var transientErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
	nats.ErrReconnectBufExceeded,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	for _, transient := range transientErrors {
		if errors.Is(err, transient) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	return resilience.WrapTemporary("nats publish", err, classifyNATSError)
}
