package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Embedded-Search-Server/pkg/health"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Search.CorpusFile = corpus
	return cfg
}

func TestBuildServiceLoadsCorpus(t *testing.T) {
	cfg := testConfig(t)
	svc, err := buildService(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, svc.Stats().Documents)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, svc.DocumentIDs())

	cfg.Search.StopWords = "cat"
	svc, err = buildService(context.Background(), cfg)
	require.NoError(t, err)
	words, err := svc.WordFrequencies(1)
	require.NoError(t, err)
	assert.NotContains(t, words, "cat")
	assert.Contains(t, words, "and", "config stop words replace the corpus ones")
}

func TestCheckerReportsOptionalBackends(t *testing.T) {
	cfg := testConfig(t)
	svc, err := buildService(context.Background(), cfg)
	require.NoError(t, err)

	report := newChecker(cfg, svc, nil).Run(context.Background())
	assert.Equal(t, health.StatusUp, report.Status)
	assert.Contains(t, report.Components["index"].Message, "5 documents")

	cfg.Redis.Enabled = true
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	report = newChecker(cfg, svc, nil).Run(context.Background())
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Equal(t, health.StatusDown, report.Components["redis"].Status)
	assert.Equal(t, health.StatusDown, report.Components["kafka"].Status)
}

func TestLoadtestAgainstServer(t *testing.T) {
	svc, err := buildService(context.Background(), testConfig(t))
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.New(svc).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := run(t, "loadtest", "--url", srv.URL, "--concurrency", "2", "--duration", "100ms", "-q", "cat", "-q", "groomed -dog")
	require.NoError(t, err)
	assert.Contains(t, out, "requests: ")
	assert.Contains(t, out, "failed: 0")
	assert.Contains(t, out, "  200: ")
}

func TestLoadtestNoServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := run(t, "loadtest", "--url", url, "--concurrency", "1", "--duration", "50ms")
	require.Error(t, err)
}

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(9), percentile(lat, 90))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Equal(t, time.Duration(1), percentile(lat, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestSearchURL(t *testing.T) {
	u := searchURL("http://localhost:8080", "groomed -dog", true)
	assert.True(t, strings.HasPrefix(u, "http://localhost:8080/api/v1/search?"))
	assert.Contains(t, u, "q=groomed+-dog")
	assert.Contains(t, u, "parallel=true")
}
