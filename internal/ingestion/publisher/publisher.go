// Package publisher validates document mutations and publishes them as
// events for the search server's Kafka consumer.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/resilience"
)

// Sink is where events go; *kafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

type Publisher struct {
	sink   Sink
	retry  resilience.RetryConfig
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Publisher)

// WithRetry sets how failed sends are retried. The default is
// resilience.DefaultRetryConfig.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Publisher) { p.retry = cfg }
}

func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		retry:  resilience.DefaultRetryConfig(),
		now:    time.Now,
		logger: slog.Default().With("component", "publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) PublishAdd(ctx context.Context, id int, text string, status index.Status, ratings []int) error {
	return p.Publish(ctx, ingestion.DocumentEvent{
		Op:         ingestion.OpAdd,
		DocumentID: id,
		Text:       text,
		Status:     status,
		Ratings:    ratings,
	})
}

func (p *Publisher) PublishRemove(ctx context.Context, id int, parallel bool) error {
	return p.Publish(ctx, ingestion.DocumentEvent{
		Op:         ingestion.OpRemove,
		DocumentID: id,
		Parallel:   parallel,
	})
}

// Publish validates every event and sends them in one batch. Nothing is sent
// if any event is invalid.
func (p *Publisher) Publish(ctx context.Context, events ...ingestion.DocumentEvent) error {
	batch := make([]kafka.Event, 0, len(events))
	now := p.now().UTC()
	for i := range events {
		ev := events[i]
		if err := validator.ValidateDocumentEvent(&ev); err != nil {
			return fmt.Errorf("event %d (document %d): %w", i, ev.DocumentID, err)
		}
		if ev.EmittedAt.IsZero() {
			ev.EmittedAt = now
		}
		batch = append(batch, kafka.Event{Key: ev.Key(), Value: ev})
	}
	err := resilience.Retry(ctx, "publish document events", p.retry, func(ctx context.Context) error {
		return p.sink.Publish(ctx, batch...)
	})
	if err != nil {
		return err
	}
	p.logger.Info("document events published", "count", len(batch))
	return nil
}
