package instrumentation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestProviderExportsMetrics(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(true)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	require.True(t, p.Enabled())
	require.NotNil(t, p.Handler())

	ctx := context.Background()
	p.Metrics().RecordRefresh(ctx, "postgres", 20*time.Millisecond, 3, nil)
	p.Metrics().RecordRefresh(ctx, "postgres", time.Millisecond, 0, errors.New("down"))
	p.Metrics().RecordTaskOp(ctx, "create", "ok")
	p.Metrics().RecordBucket(ctx, "today", 2)

	body := scrape(t, p)
	assert.Contains(t, body, "remote_refresh_total")
	assert.Contains(t, body, `result="error"`)
	assert.Contains(t, body, "personal_task_operations_total")
	assert.Contains(t, body, "agenda_bucket_events")
}

func TestProviderDisabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(false)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.Handler())
	require.NoError(t, p.Shutdown(context.Background()))

	// The zero recorder must be safe to call.
	ctx := context.Background()
	p.Metrics().RecordRefresh(ctx, "none", 0, 0, nil)
	p.Metrics().RecordTaskOp(ctx, "delete", "noop")
	p.Metrics().RecordBucket(ctx, "week", 0)

	var nilMetrics *Metrics
	nilMetrics.RecordTaskOp(ctx, "create", "ok")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	p, err := NewProvider(true)
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	r := gin.New()
	r.Use(p.Metrics().Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, p)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `http_route="/health"`)
	assert.Contains(t, body, `http_route="unmatched"`)
}
