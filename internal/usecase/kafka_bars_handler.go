package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/markethours"
	pkgkafka "FinSignal/pkg/kafka"
)

// KafkaBarsHandler consumes live bars published by fetchers and persists them.
type KafkaBarsHandler struct {
	topic   string
	store   domrepo.LiveStore
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, store domrepo.LiveStore, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// Handle stores one bar. Malformed payloads fail permanently and end up in the DLQ.
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var bar models.Bar
	if err := json.Unmarshal(b, &bar); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode bar: %w", err)
	}
	if err := bar.Validate(); err != nil {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid bar: %w", err)
	}

	// bar age from its exchange timestamp
	if ts, err := bar.Time(markethours.NewYork); err == nil {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())
	}

	start := time.Now()
	stored, err := h.store.Append(ctx, bar)
	h.metrics.RecordLatency("live_store_append_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return fmt.Errorf("store bar %s: %w", bar.Key(), err)
	}
	if stored {
		h.metrics.RecordBarStored("kafka_consumer", bar.Ticker)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
