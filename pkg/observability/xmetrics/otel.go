package xmetrics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xhid/xmetrics"
	unknownName                = "unknown"

	// MetricOperationTotal 操作计数，属性 component/operation/status。
	MetricOperationTotal = "xhid.operation.total"
	// MetricOperationDuration 操作耗时（秒），属性同上。
	MetricOperationDuration = "xhid.operation.duration"
)

// DefaultDurationBuckets 耗时直方图桶边界（秒）。
// 单次生成在微秒级，时钟等待上限默认 500ms。
var DefaultDurationBuckets = []float64{
	0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005,
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
}

type otelConfig struct {
	name           string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	buckets        []float64
}

// Option OTel 观测器选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 tracer/meter 名称，空字符串被忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认 otel 全局 Provider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel 全局 Provider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// WithDurationBuckets 设置耗时直方图桶边界（秒），必须非空、有限且严格递增。
func WithDurationBuckets(buckets ...float64) Option {
	return func(cfg *otelConfig) {
		cfg.buckets = slices.Clone(buckets)
	}
}

func newOTelConfig(opts []Option) (*otelConfig, error) {
	cfg := &otelConfig{
		name:           defaultInstrumentationName,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		buckets:        DefaultDurationBuckets,
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(cfg)
	}
	if err := validateBuckets(cfg.buckets); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateBuckets(buckets []float64) error {
	if len(buckets) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidBuckets)
	}
	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: bucket %d is %v", ErrInvalidBuckets, i, b)
		}
		if i > 0 && b <= buckets[i-1] {
			return fmt.Errorf("%w: not strictly increasing at %d", ErrInvalidBuckets, i)
		}
	}
	return nil
}

// NewOTelObserver 创建基于 OpenTelemetry 的观测器：每次操作一个 internal span，
// 并累加 xhid.operation.total 与 xhid.operation.duration。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg, err := newOTelConfig(opts)
	if err != nil {
		return nil, err
	}
	return newOTelObserver(cfg)
}

func newOTelObserver(cfg *otelConfig) (*otelObserver, error) {
	meter := cfg.meterProvider.Meter(cfg.name)
	total, err := meter.Int64Counter(MetricOperationTotal,
		metric.WithDescription("hybrid id operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstrument, MetricOperationTotal, err)
	}
	duration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("hybrid id operation duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(cfg.buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstrument, MetricOperationDuration, err)
	}
	return &otelObserver{
		tracer:   cfg.tracerProvider.Tracer(cfg.name),
		total:    total,
		duration: duration,
	}, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)

	attrs := append([]attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}, attrsToOTel(opts.Attrs)...)
	ctx, span := o.tracer.Start(ctx, component+"/"+operation, trace.WithAttributes(attrs...))

	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownName
	}
	return s
}

type otelSpan struct {
	span      trace.Span
	observer  *otelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	once      sync.Once
}

// End 结束 span 并记录指标，重复调用只生效一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		status := result.Status()
		if result.Err != nil {
			s.span.RecordError(result.Err)
			s.span.SetStatus(codes.Error, result.Err.Error())
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 调用方 ctx 已取消时指标仍要记录
		ctx := context.WithoutCancel(s.ctx)
		set := metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
		)
		s.observer.total.Add(ctx, 1, set)
		s.observer.duration.Record(ctx, time.Since(s.start).Seconds(), set)
	})
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		out = append(out, toKeyValue(a))
	}
	return out
}

func toKeyValue(a Attr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case time.Duration:
		return attribute.Int64(a.Key, v.Nanoseconds())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}
