package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/graphrag-search/internal/infrastructure/resilience"
)

const workerGroup = "batch-workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	timeout  time.Duration
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// HandlerTimeout bounds one batch run; zero means no bound.
	HandlerTimeout time.Duration
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("graphrag-search"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		timeout:  options.HandlerTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Connected reports whether the connection is currently usable.
func (q *Queue) Connected() bool {
	return q.conn != nil && q.conn.IsConnected()
}

type batchQueuedEvent struct {
	BatchID  string    `json:"batch_id"`
	QueuedAt time.Time `json:"queued_at"`
}

func encodeBatchQueued(batchID string, now time.Time) ([]byte, error) {
	return json.Marshal(batchQueuedEvent{BatchID: batchID, QueuedAt: now.UTC()})
}

// decodeBatchQueued accepts the JSON event and bare batch ids.
func decodeBatchQueued(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", errors.New("empty batch event")
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var ev batchQueuedEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return "", fmt.Errorf("decode batch event: %w", err)
	}
	if ev.BatchID == "" {
		return "", errors.New("batch event without batch_id")
	}
	return ev.BatchID, nil
}

func (q *Queue) PublishBatchQueued(ctx context.Context, batchID string) error {
	payload, err := encodeBatchQueued(batchID, time.Now())
	if err != nil {
		return fmt.Errorf("encode batch event: %w", err)
	}
	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeBatchQueued runs handler for every queued batch until ctx is done,
// then drains the subscription.
func (q *Queue) SubscribeBatchQueued(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		batchID, err := decodeBatchQueued(msg.Data)
		if err != nil {
			slog.Error("batch_event_invalid", "error", err)
			return
		}

		handlerCtx, cancel := q.handlerContext(ctx)
		defer cancel()
		if err := handler(handlerCtx, batchID); err != nil {
			slog.Error("batch_handler_failed", "batch_id", batchID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handlerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return context.WithCancel(ctx)
}
