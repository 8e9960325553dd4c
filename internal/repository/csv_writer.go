package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

var barColumns = []string{"ticker", "date", "datetime", "open_price", "close_price", "high_price", "low_price", "volume"}

// CSVReportSink flattens a run into indicators.csv and anomalies.csv.
// Floats are rounded to precision places; undefined values are empty cells.
type CSVReportSink struct {
	indicatorsPath string
	anomaliesPath  string
	precision      int32
}

var _ domrepo.ReportSink = (*CSVReportSink)(nil)

func NewCSVReportSink(indicatorsPath, anomaliesPath string, precision int32) *CSVReportSink {
	return &CSVReportSink{indicatorsPath: indicatorsPath, anomaliesPath: anomaliesPath, precision: precision}
}

func (s *CSVReportSink) Name() string { return "csv" }

// Save renders both files before touching disk and replaces each one
// atomically, so a failed run leaves the previous pair in place.
func (s *CSVReportSink) Save(_ context.Context, a *models.Analysis) error {
	var indicators, anomalies bytes.Buffer
	if err := s.WriteIndicators(&indicators, a); err != nil {
		return fmt.Errorf("render %s: %w", s.indicatorsPath, err)
	}
	if err := s.WriteAnomalies(&anomalies, a); err != nil {
		return fmt.Errorf("render %s: %w", s.anomaliesPath, err)
	}
	for _, path := range []string{s.indicatorsPath, s.anomaliesPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if err := WriteFileAtomic(s.indicatorsPath, indicators.Bytes()); err != nil {
		return err
	}
	return WriteFileAtomic(s.anomaliesPath, anomalies.Bytes())
}

// WriteIndicators writes one row per ticker and bar.
func (s *CSVReportSink) WriteIndicators(w io.Writer, a *models.Analysis) error {
	cw := csv.NewWriter(w)
	header := append(append(append([]string{}, barColumns...), models.IndicatorFields...), models.SignalFields...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, ticker := range sortedTickers(a) {
		for i := range a.Reports[ticker].Indicators {
			r := &a.Reports[ticker].Indicators[i]
			row = row[:0]
			row = append(row,
				ticker, r.Date, r.Datetime,
				s.format(r.Open), s.format(r.Close), s.format(r.High), s.format(r.Low),
				strconv.FormatInt(r.Volume, 10),
			)
			for _, v := range r.Indicators() {
				if v == nil {
					row = append(row, "")
					continue
				}
				row = append(row, s.format(*v))
			}
			for _, sig := range r.Signals.Values() {
				row = append(row, string(sig))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAnomalies writes ticker,Date,Type,Details with Details as a JSON object.
func (s *CSVReportSink) WriteAnomalies(w io.Writer, a *models.Analysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ticker", "Date", "Type", "Details"}); err != nil {
		return err
	}
	for _, ticker := range sortedTickers(a) {
		for _, an := range a.Reports[ticker].Anomalies {
			details, err := json.Marshal(an.Details)
			if err != nil {
				return fmt.Errorf("encode details: %w", err)
			}
			if err := cw.Write([]string{ticker, an.Date, an.Type, string(details)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *CSVReportSink) format(v float64) string {
	return decimal.NewFromFloat(v).Round(s.precision).String()
}
