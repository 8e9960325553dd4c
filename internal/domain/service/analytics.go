package service

import "FinSignal/internal/domain/models"

// SignalGenerator fills the signal fields of indicator records in place.
type SignalGenerator interface {
	Apply(records []models.IndicatorRecord)
}

// AnomalyDetector scans a ticker's records for contradicting signals.
type AnomalyDetector interface {
	Detect(ticker string, records []models.IndicatorRecord) []models.Anomaly
}
