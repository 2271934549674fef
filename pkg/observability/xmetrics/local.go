package xmetrics

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// OperationStat 一组 component/operation/status 的累计值。
type OperationStat struct {
	Component string
	Operation string
	Status    Status
	Count     int64
	// Seconds 累计耗时。
	Seconds float64
}

var _ Observer = (*Local)(nil)

// Local 进程内观测器：指标写入私有 MeterProvider，由 ManualReader 按需采集。
// 适合 xhidctl bench 这类短生命周期进程直接打印汇总，不依赖外部采集端。
//
//	local, _ := xmetrics.NewLocal()
//	defer local.Shutdown(ctx)
//	gen, _ := xhid.New(cfg, xhid.WithObserver(local))
//	stats, _ := local.Snapshot(ctx)
type Local struct {
	*otelObserver
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewLocal 创建进程内观测器。WithMeterProvider 对 Local 无效，其余选项同 NewOTelObserver。
func NewLocal(opts ...Option) (*Local, error) {
	cfg, err := newOTelConfig(opts)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cfg.meterProvider = provider

	obs, err := newOTelObserver(cfg)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &Local{otelObserver: obs, reader: reader, provider: provider}, nil
}

// Snapshot 采集当前累计值，按 component、operation、status 排序。
func (l *Local) Snapshot(ctx context.Context) ([]OperationStat, error) {
	var rm metricdata.ResourceMetrics
	if err := l.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollect, err)
	}

	type key struct{ component, operation, status string }
	stats := make(map[key]*OperationStat)
	get := func(set attribute.Set) *OperationStat {
		k := key{attrString(set, "component"), attrString(set, "operation"), attrString(set, "status")}
		s, ok := stats[k]
		if !ok {
			s = &OperationStat{Component: k.component, Operation: k.operation, Status: Status(k.status)}
			stats[k] = s
		}
		return s
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != MetricOperationTotal {
					continue
				}
				for _, dp := range data.DataPoints {
					get(dp.Attributes).Count += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name != MetricOperationDuration {
					continue
				}
				for _, dp := range data.DataPoints {
					get(dp.Attributes).Seconds += dp.Sum
				}
			}
		}
	}

	out := make([]OperationStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b OperationStat) int {
		return cmp.Or(
			cmp.Compare(a.Component, b.Component),
			cmp.Compare(a.Operation, b.Operation),
			cmp.Compare(a.Status, b.Status),
		)
	})
	return out, nil
}

// Shutdown 关闭内部 MeterProvider，之后 Snapshot 返回错误。
func (l *Local) Shutdown(ctx context.Context) error {
	return l.provider.Shutdown(ctx)
}

func attrString(set attribute.Set, k string) string {
	v, ok := set.Value(attribute.Key(k))
	if !ok {
		return ""
	}
	return v.AsString()
}
