package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dkovalev/interview-copilot/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// Queue carries ingestion events between the api and the worker.
// Upload events name a file waiting for extraction; story events name a
// persisted story waiting for indexing.
type Queue struct {
	conn          *nats.Conn
	uploadSubject string
	storySubject  string
	executor      *resilience.Executor
}

func New(url, uploadSubject, storySubject string) (*Queue, error) {
	return NewWithOptions(url, uploadSubject, storySubject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, uploadSubject, storySubject string, options Options) (*Queue, error) {
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
		nats.Name("interview-copilot"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:          conn,
		uploadSubject: uploadSubject,
		storySubject:  storySubject,
		executor:      options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishUploadIngested(ctx context.Context, uploadID string) error {
	return q.publish(ctx, q.uploadSubject, uploadID)
}

func (q *Queue) PublishStoryQueued(ctx context.Context, storyID string) error {
	return q.publish(ctx, q.storySubject, storyID)
}

func (q *Queue) publish(ctx context.Context, subject, id string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, []byte(id)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) SubscribeUploadIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.uploadSubject, handler)
}

func (q *Queue) SubscribeStoryQueued(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.storySubject, handler)
}

func (q *Queue) subscribe(ctx context.Context, subject string, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(subject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			log.Printf("worker handler error for %s id=%s: %v", subject, string(msg.Data), err)
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
