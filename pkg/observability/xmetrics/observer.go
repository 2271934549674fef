package xmetrics

import "context"

// Status 操作结果，作为 status 指标属性。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// SpanOptions 一次观测的标识与初始属性。
type SpanOptions struct {
	// Component 组件名，例如 "xhid"、"xassign"。
	Component string
	// Operation 操作名，例如 "generate"、"clock_wait"、"assign"。
	Operation string
	Attrs     []Attr
}

// Result 观测结束时的结果。Err 非 nil 时状态为 StatusError。
type Result struct {
	Err   error
	Attrs []Attr
}

// Status 返回结果对应的状态。
func (r Result) Status() Status {
	if r.Err != nil {
		return StatusError
	}
	return StatusOK
}

// Span 一次进行中的观测。
type Span interface {
	End(result Result)
}

// Observer 观测接口。xhid 与 xassign 只依赖此接口，实现见 NewOTelObserver 与 NewLocal。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不做任何记录。
type NoopObserver struct{}

// Start 原样返回 ctx（nil 时替换为 Background）与空跨度。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

// End 不做任何事。
func (NoopSpan) End(Result) {}

// Start 通过 observer 开始观测。生成器默认不配置观测器，observer 为 nil 时返回空跨度，
// 调用方无需判空。返回的 ctx 与 Span 永不为 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
