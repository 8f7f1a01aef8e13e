package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(s Status) Check {
	return func(context.Context) ComponentHealth { return ComponentHealth{Status: s} }
}

func TestRunAggregates(t *testing.T) {
	tests := []struct {
		name     string
		critical Status
		optional Status
		expect   Status
	}{
		{"all up", StatusUp, StatusUp, StatusUp},
		{"optional down", StatusUp, StatusDown, StatusDegraded},
		{"critical degraded", StatusDegraded, StatusUp, StatusDegraded},
		{"critical down", StatusDown, StatusUp, StatusDown},
		{"both down", StatusDown, StatusDown, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(time.Second)
			c.Register("index", fixed(tt.critical))
			c.RegisterOptional("redis", fixed(tt.optional))
			report := c.Run(context.Background())
			assert.Equal(t, tt.expect, report.Status)
			assert.Len(t, report.Components, 2)
			assert.NotEmpty(t, report.Components["index"].Latency)
		})
	}
}

func TestRunAppliesTimeout(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		return ComponentHealth{Status: StatusDown, Message: ctx.Err().Error()}
	})
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Components["slow"].Message)
}

func TestHandlers(t *testing.T) {
	c := NewChecker(time.Second)
	c.RegisterOptional("kafka", fixed(StatusDown))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.Register("index", fixed(StatusDown))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
