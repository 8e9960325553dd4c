package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "finsignal-test", r.Header.Get("User-Agent"))
			assert.Equal(t, "SPY", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(`{"value":42}`))
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("finsignal-test"))

	t.Run("decodes json", func(t *testing.T) {
		var out struct{ Value int }
		err := c.GetJSON(context.Background(), srv.URL+"/ok", map[string][]string{"symbol": {"SPY"}}, &out)
		require.NoError(t, err)
		assert.Equal(t, 42, out.Value)
	})

	t.Run("server errors are transient", func(t *testing.T) {
		err := c.GetJSON(context.Background(), srv.URL+"/down", nil, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadGateway, se.Code)
		assert.True(t, IsTransient(err))
	})

	t.Run("client errors are not", func(t *testing.T) {
		err := c.GetJSON(context.Background(), srv.URL+"/missing", nil, nil)
		assert.Error(t, err)
		assert.False(t, IsTransient(err))
	})

	t.Run("connection refused is transient", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		url := dead.URL
		dead.Close()
		err := c.GetJSON(context.Background(), url, nil, nil)
		assert.True(t, IsTransient(err))
	})

	t.Run("cancelled context is not", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.GetJSON(ctx, srv.URL+"/ok", nil, nil)
		assert.False(t, IsTransient(err))
	})
}
