package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/metrics"
)

func encode(t *testing.T, ev ingestion.DocumentEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	engine, err := indexer.NewEngine("and")
	require.NoError(t, err)
	return service.New(engine, executor.New(engine))
}

func TestHandleMessageAppliesEvents(t *testing.T) {
	svc := newService(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	handle := HandleMessage(svc, m)
	ctx := context.Background()

	require.NoError(t, handle(ctx, []byte("1"), encode(t, ingestion.DocumentEvent{
		Op: ingestion.OpAdd, DocumentID: 1, Text: "white cat and collar", Status: index.StatusActual, Ratings: []int{4},
	})))
	require.NoError(t, handle(ctx, []byte("2"), encode(t, ingestion.DocumentEvent{
		Op: ingestion.OpAdd, DocumentID: 2, Text: "fluffy cat", Status: index.StatusBanned,
	})))

	doc, ok := svc.Document(2)
	require.True(t, ok)
	assert.Equal(t, index.StatusBanned, doc.Status)

	require.NoError(t, handle(ctx, []byte("1"), encode(t, ingestion.DocumentEvent{
		Op: ingestion.OpRemove, DocumentID: 1, Parallel: true,
	})))
	_, ok = svc.Document(1)
	assert.False(t, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("add", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("remove", "applied")))
}

func TestHandleMessageSkipsPermanentFailures(t *testing.T) {
	svc := newService(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	handle := HandleMessage(svc, m)
	ctx := context.Background()

	add := encode(t, ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 1, Text: "cat"})
	require.NoError(t, handle(ctx, nil, add))
	assert.NoError(t, handle(ctx, nil, add), "duplicate add is committed")
	assert.NoError(t, handle(ctx, nil, encode(t, ingestion.DocumentEvent{Op: ingestion.OpRemove, DocumentID: 9})))
	assert.NoError(t, handle(ctx, nil, encode(t, ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 3, Text: "bad\x02"})))
	assert.NoError(t, handle(ctx, nil, []byte("{not json")))
	assert.NoError(t, handle(ctx, nil, encode(t, ingestion.DocumentEvent{Op: "upsert", DocumentID: 3})))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("add", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("remove", "noop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("unknown", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("upsert", "invalid")))
	assert.Equal(t, 1, svc.Stats().Documents)
}

type failingApplier struct{ err error }

func (f failingApplier) AddDocument(context.Context, service.AddDocumentRequest) error { return f.err }
func (f failingApplier) RemoveDocument(context.Context, int, executor.Policy) bool    { return false }

func TestHandleMessageRetriesUnexpectedErrors(t *testing.T) {
	boom := errors.New("boom")
	handle := HandleMessage(failingApplier{err: boom}, nil)
	err := handle(context.Background(), nil, encode(t, ingestion.DocumentEvent{Op: ingestion.OpAdd, DocumentID: 1}))
	assert.ErrorIs(t, err, boom)
}
