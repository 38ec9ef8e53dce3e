package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
	"github.com/cindycandyy/fe-kpl/internal/pkg/metrics"
)

// observeLogs はパッケージロガーを差し替えて出力を記録する
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Get()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })
	return logs
}

func TestSetupMiddleware(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, metrics.NewNop())

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSetupMiddleware_RecoversPanic(t *testing.T) {
	observeLogs(t)
	e := echo.New()
	SetupMiddleware(e, nil)

	e.GET("/panic", func(c echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   echo.HandlerFunc
		wantCode  int
		wantLevel zapcore.Level
		wantMsg   string
	}{
		{
			name:      "正常",
			handler:   func(c echo.Context) error { return c.String(http.StatusOK, "success") },
			wantCode:  http.StatusOK,
			wantLevel: zapcore.InfoLevel,
			wantMsg:   "request completed",
		},
		{
			name:      "クライアントエラー",
			handler:   func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad request") },
			wantCode:  http.StatusBadRequest,
			wantLevel: zapcore.WarnLevel,
			wantMsg:   "client error",
		},
		{
			name:      "サーバーエラー",
			handler:   func(c echo.Context) error { return errors.New("db down") },
			wantCode:  http.StatusInternalServerError,
			wantLevel: zapcore.ErrorLevel,
			wantMsg:   "server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)
			e := echo.New()
			e.Use(RequestIDMiddleware())
			e.Use(RequestLogger())
			e.GET("/test", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(HeaderUserID, "user-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			entries := logs.FilterMessage(tt.wantMsg).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
			assert.Equal(t, "user-1", fields["user_id"])
			assert.EqualValues(t, tt.wantCode, fields["status"])
		})
	}
}

func TestRequestLogger_ContextLogger(t *testing.T) {
	logs := observeLogs(t)
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/test", func(c echo.Context) error {
		logger.FromContext(c.Request().Context()).Info("handler log")
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	e.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("handler log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	t.Run("リクエストIDがなければ生成する", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
	})

	t.Run("既存のリクエストIDを維持する", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(echo.HeaderXRequestID, "existing-request-id")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, "existing-request-id", rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	e := echo.New()
	e.Use(PrometheusMiddleware(m))
	e.GET("/events/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.String(http.StatusOK, "ok")
	})

	for _, path := range []string{"/events/a", "/events/b", "/events/missing"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// ルート定義のパスで集計される
	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/events/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/events/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}
