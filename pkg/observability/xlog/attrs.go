package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 常用属性 Key 常量
// =============================================================================

const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyDuration 耗时字段的标准 key
	KeyDuration = "duration"

	// KeyCount 计数字段的标准 key
	KeyCount = "count"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyOperation 操作名称字段的标准 key
	KeyOperation = "operation"

	// KeyTraceID 与 KeySpanID 由 EnrichHandler 从 OpenTelemetry span 中提取
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// ID 生成相关的 key
const (
	KeyProfile = "profile"
	KeyNode    = "node"
	KeyKeyID   = "key_id"
	KeyPrefix  = "prefix"
	KeyBlind   = "blind"
	KeyReason  = "reason"
)

// =============================================================================
// 便捷属性构造函数
// =============================================================================

// Err 创建错误属性
//
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "generate failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.2ms"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Profile 创建 ID profile 名称属性
func Profile(name string) slog.Attr {
	return slog.String(KeyProfile, name)
}

// Node 创建节点标识属性
func Node(node string) slog.Attr {
	return slog.String(KeyNode, node)
}

// KeyID 创建盲化密钥编号属性。密钥内容永远不应进入日志。
func KeyID(id uint8) slog.Attr {
	return slog.Int(KeyKeyID, int(id))
}

// Prefix 创建 ID 前缀属性
func Prefix(p string) slog.Attr {
	return slog.String(KeyPrefix, p)
}

// Blind 创建盲化模式属性
func Blind(on bool) slog.Attr {
	return slog.Bool(KeyBlind, on)
}

// Reason 创建原因属性（如时钟等待原因）
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}
