package xmetrics

import "errors"

var (
	// ErrInstrument 创建 otel 计数器或直方图失败。
	ErrInstrument = errors.New("xmetrics: create instrument")
	// ErrInvalidBuckets 直方图桶边界为空、非有限值或不严格递增。
	ErrInvalidBuckets = errors.New("xmetrics: invalid histogram buckets")
	// ErrNilOption 传入了 nil Option。
	ErrNilOption = errors.New("xmetrics: nil option")
	// ErrCollect 从本地 reader 采集指标失败。
	ErrCollect = errors.New("xmetrics: collect metrics")
)
