package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/markethours"
	pkgch "FinSignal/pkg/clickhouse"
	applogger "FinSignal/pkg/logger"
)

// CHBarStore keeps bars in the ClickHouse bars table.
type CHBarStore struct {
	ch     *pkgch.Client
	table  string
	source string
	l      *applogger.Logger
}

var (
	_ domrepo.BarLoader = (*CHBarStore)(nil)
	_ domrepo.BarWriter = (*CHBarStore)(nil)
)

// NewCHBarStore creates a bar store over db.bars. source tags inserted rows.
func NewCHBarStore(ch *pkgch.Client, db, source string, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{ch: ch, table: db + ".bars", source: source, l: l}
}

func (s *CHBarStore) WriteBars(ctx context.Context, bars []models.Bar) error {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		ts, err := b.Time(markethours.NewYork)
		if err != nil {
			return err
		}
		day, _ := time.Parse(models.DateLayout, b.Date)
		rows = append(rows, []any{b.Ticker, ts, day, b.Open, b.High, b.Low, b.Close, b.Volume, s.source})
	}
	q := fmt.Sprintf("INSERT INTO %s (ticker, ts, date, open, high, low, close, volume, source)", s.table)
	if err := s.ch.InsertRows(ctx, q, rows); err != nil {
		s.l.Error("clickhouse insert bars failed", applogger.String("table", s.table), applogger.Int("rows", len(rows)), applogger.Error(err))
		return fmt.Errorf("insert bars: %w", err)
	}
	return nil
}

// Load reads bars of the given tickers, or every ticker when none are given.
// Rows replaced by ReplacingMergeTree are collapsed with FINAL.
func (s *CHBarStore) Load(ctx context.Context, tickers []string) ([]models.Bar, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ticker, ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE (length(?) = 0 OR has(?, ticker))
        ORDER BY ticker, ts ASC
    `, s.table)
	if tickers == nil {
		tickers = []string{}
	}
	rows, err := s.ch.DB().QueryContext(ctx, q, tickers, tickers)
	if err != nil {
		s.l.Error("clickhouse load bars query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var (
			b  models.Bar
			ts time.Time
		)
		if err := rows.Scan(&b.Ticker, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		ts = ts.In(markethours.NewYork)
		b.Date = ts.Format(models.DateLayout)
		b.Datetime = ts.Format(models.DateTimeLayout)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", s.table, domrepo.ErrNoBars)
	}
	s.l.Info("clickhouse load bars ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// CHReportSink writes indicator records to the indicator_records table.
type CHReportSink struct {
	ch    *pkgch.Client
	table string
}

var _ domrepo.ReportSink = (*CHReportSink)(nil)

func NewCHReportSink(ch *pkgch.Client, db string) *CHReportSink {
	return &CHReportSink{ch: ch, table: db + ".indicator_records"}
}

func (s *CHReportSink) Name() string { return "clickhouse" }

func (s *CHReportSink) Save(ctx context.Context, a *models.Analysis) error {
	runID, err := uuid.Parse(a.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", a.RunID, err)
	}
	var rows [][]any
	for _, ticker := range sortedTickers(a) {
		for i := range a.Reports[ticker].Indicators {
			r := &a.Reports[ticker].Indicators[i]
			day, err := time.Parse(models.DateLayout, r.Date)
			if err != nil {
				return fmt.Errorf("record %s: bad date %q", ticker, r.Date)
			}
			row := []any{runID, ticker, day, r.Close}
			for _, v := range r.Indicators() {
				row = append(row, v)
			}
			for _, sig := range r.Signals.Values() {
				row = append(row, string(sig))
			}
			rows = append(rows, row)
		}
	}
	q := fmt.Sprintf(`INSERT INTO %s (run_id, ticker, date, close,
        sma, ema, ma_10, ma_20, rsi, ema_12, ema_26, macd, signal_line,
        upper_band, lower_band, pct_k, pct_d, adx, plus_di, minus_di,
        ma_signal, rsi_signal, bollinger_signal, macd_signal, stochastic_signal, adx_signal)`, s.table)
	if err := s.ch.InsertRows(ctx, q, rows); err != nil {
		return fmt.Errorf("insert indicator records: %w", err)
	}
	return nil
}
