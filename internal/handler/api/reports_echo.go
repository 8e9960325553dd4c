package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/service/metrics"
	"FinSignal/internal/usecase"
	xhttp "FinSignal/pkg/http"
	xlogger "FinSignal/pkg/logger"
)

// ReportsEchoHandler serves the latest engine reports.
type ReportsEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ReportsUseCase
}

var _ xhttp.Handler = (*ReportsEchoHandler)(nil)

func NewReportsEchoHandler(logger *xlogger.Logger, uc *usecase.ReportsUseCase) *ReportsEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ReportsEchoHandler{logger: logger, uc: uc}
}

func (h *ReportsEchoHandler) RegisterRoutes(g *echo.Group) {
	api := g.Group("/api")
	api.GET("/tickers", h.Tickers)
	api.GET("/tickers/:ticker/indicators", h.Indicators)
	api.GET("/tickers/:ticker/signals", h.Signals)
	api.GET("/tickers/:ticker/anomalies", h.Anomalies)
}

func (h *ReportsEchoHandler) Tickers(c echo.Context) error {
	defer observe("tickers", time.Now())
	tickers, err := h.uc.Tickers(c.Request().Context())
	if err != nil {
		return h.fail(c, "tickers", err)
	}
	return xhttp.ListResponse(c, tickers, int64(len(tickers)))
}

func (h *ReportsEchoHandler) Indicators(c echo.Context) error {
	defer observe("indicators", time.Now())
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("indicators", "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Indicators(c.Request().Context(), usecase.IndicatorsParams{
		Ticker: req.Ticker,
		From:   req.From,
		To:     req.To,
		Limit:  req.Limit,
	})
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Signals(c echo.Context) error {
	defer observe("signals", time.Now())
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("signals", "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Signals(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Anomalies(c echo.Context) error {
	defer observe("anomalies", time.Now())
	req := &models.AnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("anomalies", "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Anomalies(c.Request().Context(), usecase.AnomaliesParams{
		Ticker: req.Ticker,
		Kind:   req.Kind,
		Limit:  req.Limit,
	})
	if err != nil {
		return h.fail(c, "anomalies", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps use case errors onto AppError statuses.
func (h *ReportsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, domrepo.ErrReportMissing):
		appErr = xhttp.NotFoundErrorf("no report for %s", c.Param("ticker")).
			WithParam("ticker", c.Param("ticker")).
			WithError(err)
	case errors.Is(err, usecase.ErrInvalidParams):
		appErr = xhttp.BadRequestErrorf("%s", err.Error()).WithError(err)
	default:
		h.logger.Error("report usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
		appErr = xhttp.InternalErrorf("report lookup failed").WithError(err)
	}
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
