package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/api/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
}

func TestReadyCheck(t *testing.T) {
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ReadyCheck(map[string]handler.Pinger{"database": up, "redis": up})(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"status": "ready"}, decodeBody(t, rec)["data"])
	})

	t.Run("one dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ReadyCheck(map[string]handler.Pinger{"database": up, "redis": down})(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "redis not ready", body["error"])
	})

	t.Run("no dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ReadyCheck(nil)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
