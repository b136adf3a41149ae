package ops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discovery-workers/internal/common/logger"
)

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthz(t *testing.T) {
	s := NewServer(":0", nil, logger.NewTestLogger(t))

	rec, body := get(t, s.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzAllChecksPass(t *testing.T) {
	s := NewServer(":0", map[string]Check{
		"elasticsearch": func(context.Context) error { return nil },
		"redis":         func(context.Context) error { return nil },
	}, logger.NewTestLogger(t))

	rec, body := get(t, s.Router(), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, map[string]interface{}{"elasticsearch": "ok", "redis": "ok"}, body["checks"])
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	s := NewServer(":0", map[string]Check{
		"elasticsearch": func(context.Context) error { return nil },
		"postgres":      func(context.Context) error { return assert.AnError },
	}, logger.NewTestLogger(t))

	rec, body := get(t, s.Router(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["elasticsearch"])
	assert.Equal(t, assert.AnError.Error(), checks["postgres"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(":0", nil, logger.NewTestLogger(t))

	rec, _ := get(t, s.Router(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
