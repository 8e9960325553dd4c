package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/api/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	g.GET("/api/boom", func(c echo.Context) error { panic("boom") })
	g.GET("/api/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundErrorf("no %s", "thing")) })
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(pingHandler{})

	t.Run("health", func(t *testing.T) {
		rec := serve(s, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handler routes use the envelope", func(t *testing.T) {
		rec := serve(s, "/api/ping")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":200,"message":"OK","data":"pong"}`, rec.Body.String())
	})

	t.Run("app errors carry their status", func(t *testing.T) {
		rec := serve(s, "/api/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("panics become 500", func(t *testing.T) {
		rec := serve(s, "/api/boom")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := serve(s, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServerRateLimit(t *testing.T) {
	s := NewServer(pingHandler{}, WithRateLimiter(denyAll{}))
	assert.Equal(t, http.StatusTooManyRequests, serve(s, "/api/ping").Code)
	assert.Equal(t, http.StatusOK, serve(s, "/healthz").Code)
}

func TestServerHealthChecks(t *testing.T) {
	t.Run("healthy dependencies", func(t *testing.T) {
		s := NewServer(nil, WithHealthCheck("postgres", func(context.Context) error { return nil }))
		rec := serve(s, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","postgres":"ok"}`, rec.Body.String())
	})

	t.Run("a failing dependency degrades the service", func(t *testing.T) {
		s := NewServer(nil,
			WithHealthCheck("postgres", func(context.Context) error { return nil }),
			WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("connection refused") }),
		)
		rec := serve(s, "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}
