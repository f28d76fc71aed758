package transform

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

const tracerName = "github.com/theoremus-urban-solutions/gtfs-transformer/transform"

// Transformer runs an ordered list of strategies over a dataset.
type Transformer struct {
	strategies []Strategy
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *Metrics
}

// Option configures a Transformer.
type Option func(*Transformer)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) { t.logger = logger }
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Transformer) { t.tracer = tracer }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Transformer) { t.metrics = m }
}

// New creates a Transformer with no strategies.
func New(opts ...Option) *Transformer {
	t := &Transformer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(tracerName)
	}
	return t
}

// AddStrategy appends strategies to the run order.
func (t *Transformer) AddStrategy(s ...Strategy) {
	t.strategies = append(t.strategies, s...)
}

func (t *Transformer) Strategies() []Strategy { return t.strategies }

// Run applies every strategy in order and stops at the first failure. There
// is no rollback: strategies that completed keep their changes. Cancellation
// is honoured between strategies.
func (t *Transformer) Run(ctx context.Context, ds *gtfs.Dataset) error {
	tctx := NewTransformContext(ctx, t.logger)
	return t.RunWithContext(tctx, ds)
}

// RunWithContext is Run with a caller-provided TransformContext.
func (t *Transformer) RunWithContext(tctx *TransformContext, ds *gtfs.Dataset) error {
	start := time.Now()
	for _, s := range t.strategies {
		if err := tctx.Context().Err(); err != nil {
			return err
		}
		if err := t.runStrategy(tctx, s, ds); err != nil {
			return err
		}
	}
	t.metrics.observeDataset(ds)
	tctx.Logger().Info("transform complete",
		"strategies", len(t.strategies),
		"duration", time.Since(start),
	)
	return nil
}

func (t *Transformer) runStrategy(tctx *TransformContext, s Strategy, ds *gtfs.Dataset) error {
	name := s.Name()
	_, span := t.tracer.Start(tctx.Context(), "transform."+name,
		trace.WithAttributes(
			attribute.String("transform.run_id", tctx.RunID()),
			attribute.String("transform.strategy", name),
		))
	defer span.End()

	tctx.Logger().Debug("running strategy", "strategy", name)
	start := time.Now()
	err := s.Run(tctx, ds)
	t.metrics.observeStrategy(name, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tctx.Logger().Error("strategy failed", "strategy", name, "error", err)
		return &StrategyError{Strategy: name, Err: err}
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
