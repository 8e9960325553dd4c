package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeRequest struct {
	Ticker string `param:"ticker" validate:"required,ticker"`
	From   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=100"`
}

func bind(target, ticker string, req interface{}) interface{} {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	c.SetParamNames("ticker")
	c.SetParamValues(ticker)
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequest(t *testing.T) {
	t.Run("fills defaults for a valid request", func(t *testing.T) {
		req := &rangeRequest{}
		assert.Nil(t, bind("/x?from=2024-01-02", "BRK.B", req))
		assert.Equal(t, "BRK.B", req.Ticker)
		assert.Equal(t, 50, req.Limit)
	})

	t.Run("reports fields by their request names", func(t *testing.T) {
		res := bind("/x?from=yesterday&limit=500", "not a ticker", &rangeRequest{})
		errs, ok := res.([]ValidationError)
		require.True(t, ok)

		byField := map[string]string{}
		for _, e := range errs {
			byField[e.Field] = e.Code
		}
		assert.Equal(t, "ERR_TICKER", byField["ticker"])
		assert.Equal(t, "ERR_DATETIME", byField["from"])
		assert.Equal(t, "ERR_LTE", byField["limit"])
	})
}
