package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultMu     sync.Mutex
	defaultLogger LoggerWithLevel

	// newBuilder 构建默认 Logger，测试可替换
	newBuilder = defaultBuilder
)

// defaultBuilder stderr、text 格式，级别取 HYBRID_ID_LOG_LEVEL，未设置或非法时为 DefaultLevel。
func defaultBuilder() *Builder {
	level := DefaultLevel
	if s := os.Getenv(DefaultLevelEnv); s != "" {
		if l, err := ParseLevel(s); err == nil {
			level = l
		}
	}
	return New().SetLevel(level)
}

// Default 返回进程级默认 Logger，首次调用时构建。
// xhid.New 与 xassign.New 未传入 WithLogger 时使用它。
func Default() LoggerWithLevel {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = buildDefault()
	}
	return defaultLogger
}

// buildDefault 构建失败时退化为 stderr 上的 WARN 级别 text logger，不 panic。
func buildDefault() LoggerWithLevel {
	logger, _, err := newBuilder().Build()
	if err == nil {
		return logger
	}
	fmt.Fprintf(os.Stderr, "xlog: build default logger: %v, using fallback\n", err)
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(DefaultLevel))
	return &xlogger{
		handler:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}),
		levelVar: levelVar,
		guard:    new(errorGuard),
	}
}

// Discard 返回丢弃所有输出的 Logger，用于测试与静默场景。
func Discard() LoggerWithLevel {
	logger, _, err := New().SetOutput(io.Discard).SetLevel(LevelError).Build()
	if err != nil {
		return Default()
	}
	return logger
}
