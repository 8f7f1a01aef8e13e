// Package consumer applies document events read from Kafka to the search
// service.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/metrics"
)

// Applier is the write side of the search service.
type Applier interface {
	AddDocument(ctx context.Context, req service.AddDocumentRequest) error
	RemoveDocument(ctx context.Context, id int, policy executor.Policy) bool
}

// IndexConsumer wraps a Kafka consumer to drive the index.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a MessageHandler that applies each event to svc.
// Events the service rejects for good (malformed payloads, duplicate adds,
// removals of unknown ids, invalid words) are logged and committed so they
// do not block the partition; only unexpected errors are retried.
func HandleMessage(svc Applier, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event", "error", err, "key", string(key))
			observe(m, "unknown", "malformed")
			return nil
		}
		if err := validator.ValidateDocumentEvent(&event); err != nil {
			logger.Error("invalid document event", "doc_id", event.DocumentID, "error", err)
			observe(m, string(event.Op), "invalid")
			return nil
		}

		switch event.Op {
		case ingestion.OpAdd:
			err = svc.AddDocument(ctx, service.AddDocumentRequest{
				ID:      event.DocumentID,
				Text:    event.Text,
				Status:  event.Status,
				Ratings: event.Ratings,
			})
		case ingestion.OpRemove:
			policy := executor.Sequential
			if event.Parallel {
				policy = executor.Parallel
			}
			if !svc.RemoveDocument(ctx, event.DocumentID, policy) {
				observe(m, string(event.Op), "noop")
				logger.Debug("remove of unknown document skipped", "doc_id", event.DocumentID)
				return nil
			}
		}

		switch {
		case err == nil:
			observe(m, string(event.Op), "applied")
			logger.Debug("document event applied", "op", event.Op, "doc_id", event.DocumentID)
			return nil
		case isPermanent(err):
			observe(m, string(event.Op), "rejected")
			logger.Warn("document event rejected", "op", event.Op, "doc_id", event.DocumentID, "error", err)
			return nil
		default:
			observe(m, string(event.Op), "error")
			return fmt.Errorf("applying %s of document %d: %w", event.Op, event.DocumentID, err)
		}
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidDocumentID) ||
		errors.Is(err, apperrors.ErrUnknownDocumentID) ||
		errors.Is(err, apperrors.ErrInvalidWord)
}

func observe(m *metrics.Metrics, op, outcome string) {
	if m != nil {
		m.IngestEventsTotal.WithLabelValues(op, outcome).Inc()
	}
}
