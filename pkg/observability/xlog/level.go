package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，取值与 slog.Level 相同。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// DefaultLevel Default() 使用的级别。
//
// 生成器作为库嵌入业务进程，正常路径不输出；WARN 只覆盖节点自动推导与时钟回拨，
// 这两类事件需要运维介入。
const DefaultLevel = LevelWarn

// DefaultLevelEnv 覆盖 Default() 级别的环境变量。
const DefaultLevelEnv = "HYBRID_ID_LOG_LEVEL"

// ParseLevel 解析 debug/info/warn(warning)/error，忽略大小写与首尾空白。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return DefaultLevel, fmt.Errorf("xlog: unknown level %q", s)
	}
}
