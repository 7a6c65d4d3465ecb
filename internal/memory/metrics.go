package memory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/storyweaver/internal/memory"

// Metrics holds memory-store otel instruments.
type Metrics struct {
	meter         metric.Meter
	logger        *zap.Logger
	stores        metric.Int64Counter
	recalls       metric.Int64Counter
	recallResults metric.Int64Histogram
	feedback      metric.Int64Counter
}

// NewMetrics creates a Metrics instance for the memory store.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.stores, err = m.meter.Int64Counter(
		"storyweaver.memory.stores_total",
		metric.WithDescription("Total records stored, by category"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		m.logger.Warn("failed to create stores counter", zap.Error(err))
	}

	m.recalls, err = m.meter.Int64Counter(
		"storyweaver.memory.recalls_total",
		metric.WithDescription("Total similarity recalls, by category"),
		metric.WithUnit("{recall}"),
	)
	if err != nil {
		m.logger.Warn("failed to create recalls counter", zap.Error(err))
	}

	m.recallResults, err = m.meter.Int64Histogram(
		"storyweaver.memory.recall_results",
		metric.WithDescription("Number of records returned per recall"),
		metric.WithUnit("{record}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10, 25, 50),
	)
	if err != nil {
		m.logger.Warn("failed to create recall results histogram", zap.Error(err))
	}

	m.feedback, err = m.meter.Int64Counter(
		"storyweaver.memory.feedback_total",
		metric.WithDescription("Total feedback records, by agent"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		m.logger.Warn("failed to create feedback counter", zap.Error(err))
	}
}

// RecordStore counts one stored record.
func (m *Metrics) RecordStore(ctx context.Context, category Category) {
	if m.stores != nil {
		m.stores.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
	}
}

// RecordRecall counts one recall and its result size.
func (m *Metrics) RecordRecall(ctx context.Context, category Category, results int) {
	attrs := metric.WithAttributes(attribute.String("category", string(category)))
	if m.recalls != nil {
		m.recalls.Add(ctx, 1, attrs)
	}
	if m.recallResults != nil {
		m.recallResults.Record(ctx, int64(results), attrs)
	}
}

// RecordFeedback counts one feedback record.
func (m *Metrics) RecordFeedback(ctx context.Context, agent string) {
	if m.feedback != nil {
		m.feedback.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
	}
}
