package transform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

type funcStrategy struct {
	name string
	run  func(tctx *TransformContext, ds *gtfs.Dataset) error
}

func (f *funcStrategy) Name() string { return f.name }

func (f *funcStrategy) Run(tctx *TransformContext, ds *gtfs.Dataset) error { return f.run(tctx, ds) }

func smallDataset(t *testing.T) *gtfs.Dataset {
	t.Helper()
	ds := gtfs.NewDataset()
	ds.AddAgency(&gtfs.Agency{ID: "A"})
	route := &gtfs.Route{ID: gtfs.NewAgencyAndID("A", "R")}
	ds.AddRoute(route)
	ds.AddTrip(&gtfs.Trip{ID: gtfs.NewAgencyAndID("A", "T"), Route: route})
	require.NoError(t, ds.Reindex())
	return ds
}

func newTestTransformer(t *testing.T) (*Transformer, *tracetest.SpanRecorder, *Metrics) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m := NewMetrics(prometheus.NewRegistry())
	tr := New(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracer(tp.Tracer("test")),
		WithMetrics(m),
	)
	return tr, sr, m
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestTransformerRunsCompaction(t *testing.T) {
	tr, sr, m := newTestTransformer(t)
	s, err := NewStrategy(CompactIDsName)
	require.NoError(t, err)
	tr.AddStrategy(s)

	ds := smallDataset(t)
	require.NoError(t, tr.Run(context.Background(), ds))

	assert.NotNil(t, ds.TripForID(gtfs.NewAgencyAndID("a0", "t0")))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "transform.compact_ids", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, CompactIDsName, spanAttr(spans[0], "transform.strategy"))
	assert.NotEmpty(t, spanAttr(spans[0], "transform.run_id"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(CompactIDsName, "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runs.WithLabelValues(CompactIDsName, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entities.WithLabelValues("trips")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestTransformerStopsAtFirstFailure(t *testing.T) {
	tr, sr, m := newTestTransformer(t)
	boom := errors.New("boom")
	var ranAfter bool
	tr.AddStrategy(
		&funcStrategy{name: "rename", run: func(_ *TransformContext, ds *gtfs.Dataset) error {
			ds.Agencies()[0].ID = "renamed"
			return nil
		}},
		&funcStrategy{name: "fail", run: func(*TransformContext, *gtfs.Dataset) error { return boom }},
		&funcStrategy{name: "after", run: func(*TransformContext, *gtfs.Dataset) error {
			ranAfter = true
			return nil
		}},
	)

	ds := smallDataset(t)
	err := tr.Run(context.Background(), ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var se *StrategyError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fail", se.Strategy)
	assert.False(t, ranAfter)
	// no rollback
	assert.Equal(t, "renamed", ds.Agencies()[0].ID)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("fail", "error")))
}

func TestTransformerCancelled(t *testing.T) {
	tr, sr, _ := newTestTransformer(t)
	var ran bool
	tr.AddStrategy(&funcStrategy{name: "noop", run: func(*TransformContext, *gtfs.Dataset) error {
		ran = true
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Run(ctx, smallDataset(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
	assert.Empty(t, sr.Ended())
}

func TestTransformContextSharedState(t *testing.T) {
	tr, _, _ := newTestTransformer(t)
	var runIDs []string
	tr.AddStrategy(
		&funcStrategy{name: "put", run: func(tctx *TransformContext, _ *gtfs.Dataset) error {
			runIDs = append(runIDs, tctx.RunID())
			tctx.Put("answer", 42)
			return nil
		}},
		&funcStrategy{name: "get", run: func(tctx *TransformContext, _ *gtfs.Dataset) error {
			runIDs = append(runIDs, tctx.RunID())
			v, ok := tctx.Get("answer")
			if !ok || v != 42 {
				return errors.New("value not shared")
			}
			return nil
		}},
	)

	require.NoError(t, tr.Run(context.Background(), smallDataset(t)))
	require.Len(t, runIDs, 2)
	assert.Equal(t, runIDs[0], runIDs[1])
	assert.Len(t, tr.Strategies(), 2)
}

func TestNilMetricsAndDefaults(t *testing.T) {
	tr := New()
	assert.NotNil(t, tr.logger)
	assert.NotNil(t, tr.tracer)
	tr.AddStrategy(&CompactIDsStrategy{})
	require.NoError(t, tr.Run(context.Background(), smallDataset(t)))

	tctx := NewTransformContext(context.Background(), nil)
	assert.NotNil(t, tctx.Logger())
	assert.NotEmpty(t, tctx.RunID())
}

func TestRegistry(t *testing.T) {
	_, err := NewStrategy("does_not_exist")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	Register("test_noop", func() Strategy {
		return &funcStrategy{name: "test_noop", run: func(*TransformContext, *gtfs.Dataset) error { return nil }}
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "test_noop")
		registryMu.Unlock()
	})

	assert.Equal(t, []string{CompactIDsName, "test_noop"}, StrategyNames())

	strategies, err := NewStrategies([]string{"test_noop", CompactIDsName})
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, CompactIDsName, strategies[1].Name())

	_, err = NewStrategies([]string{CompactIDsName, "nope"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNotices(t *testing.T) {
	n := NewNotices()
	for _, ex := range []string{"x", "y", "z", "w"} {
		n.Add(NoticeNoShapeID, ex)
	}
	n.Add(NoticeEmptyAgencyID, "nameless")

	assert.Equal(t, 4, n.Count(NoticeNoShapeID))
	assert.Equal(t, []string{"x", "y", "z"}, n.Examples(NoticeNoShapeID))
	assert.Equal(t, 2, n.Len())
	assert.Zero(t, n.Count(NoticeUnlistedAgency))
	assert.Nil(t, n.Examples(NoticeUnlistedAgency))
}
