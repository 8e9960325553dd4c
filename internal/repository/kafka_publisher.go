package repository

import (
	"context"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	pkgkafka "FinSignal/pkg/kafka"
)

// KafkaBarPublisher publishes live bars keyed by ticker, so each ticker stays ordered on one partition.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.BarPublisher = (*KafkaBarPublisher)(nil)

func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) *KafkaBarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) PublishBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(bars))
	for i, b := range bars {
		msgs[i] = pkgkafka.Message{Key: []byte(b.Ticker), Value: b}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaBarPublisher) Close() error { return nil }

// KafkaReportSink publishes one TickerReport per ticker on the records topic.
type KafkaReportSink struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.ReportSink = (*KafkaReportSink)(nil)

func NewKafkaReportSink(producer *pkgkafka.Producer, topic string) *KafkaReportSink {
	return &KafkaReportSink{producer: producer, topic: topic}
}

func (s *KafkaReportSink) Name() string { return "kafka" }

func (s *KafkaReportSink) Save(ctx context.Context, a *models.Analysis) error {
	tickers := sortedTickers(a)
	msgs := make([]pkgkafka.Message, 0, len(tickers))
	for _, ticker := range tickers {
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(ticker),
			Value:   a.Reports[ticker],
			Headers: map[string]string{"run_id": a.RunID},
		})
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}
