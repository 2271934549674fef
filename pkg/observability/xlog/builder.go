package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ReplaceAttrFunc 属性替换函数类型
//
// 用于字段重命名、脱敏、过滤。返回空 Key 的 Attr 时该属性会被移除。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// 轮转默认值与上限。
const (
	// DefaultMaxSizeMB 单个日志文件默认最大大小（MB）
	DefaultMaxSizeMB = 100
	// DefaultMaxBackups 默认保留的旧文件数
	DefaultMaxBackups = 7
	// DefaultMaxAgeDays 默认保留天数
	DefaultMaxAgeDays = 30

	maxSizeMB = 10 * 1024
)

// rotation 轮转配置，对应 lumberjack.Logger 的字段
type rotation struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// RotationOption 轮转配置选项
type RotationOption func(*rotation)

// WithMaxSize 设置单个日志文件最大大小（MB），取值 1~10240。
func WithMaxSize(mb int) RotationOption {
	return func(r *rotation) { r.maxSizeMB = mb }
}

// WithMaxBackups 设置保留的旧文件数，0 表示不限制。
func WithMaxBackups(n int) RotationOption {
	return func(r *rotation) { r.maxBackups = n }
}

// WithMaxAge 设置旧文件保留天数，0 表示不按时间清理。
func WithMaxAge(days int) RotationOption {
	return func(r *rotation) { r.maxAgeDays = days }
}

// WithCompress 设置是否 gzip 压缩旧文件。
func WithCompress(compress bool) RotationOption {
	return func(r *rotation) { r.compress = compress }
}

// WithLocalTime 设置备份文件名使用本地时间（默认 UTC）。
func WithLocalTime(local bool) RotationOption {
	return func(r *rotation) { r.localTime = local }
}

// Builder 日志配置构建器
//
// first-error-wins：第一个配置错误会保留到 Build 时返回。
type Builder struct {
	output       io.Writer
	levelVar     *slog.LevelVar
	format       string
	addSource    bool
	enableEnrich bool
	replaceAttr  ReplaceAttrFunc
	rotator      *lumberjack.Logger
	onError      func(error)
	err          error
}

// New 创建配置构建器
//
// 默认：stderr、Info 级别、text 格式、启用 enrich。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:       os.Stderr,
		levelVar:     levelVar,
		format:       "text",
		enableEnrich: true,
	}
}

func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w == nil {
		return b.setErr(fmt.Errorf("xlog: nil output"))
	}
	b.output = w
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		return b.setErr(err)
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json。空值视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		return b.setErr(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否启用 context 信息注入（trace_id、ContextWithAttrs 属性），默认启用。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enableEnrich = enable
	return b
}

// SetRotation 输出到按大小轮转的文件。
//
//	logger, cleanup, err := xlog.New().
//		SetRotation("/var/log/xhid/xhid.log", xlog.WithMaxSize(50), xlog.WithCompress(true)).
//		Build()
//	defer cleanup()
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if strings.TrimSpace(filename) == "" {
		return b.setErr(fmt.Errorf("xlog: empty rotation filename"))
	}
	cfg := rotation{
		maxSizeMB:  DefaultMaxSizeMB,
		maxBackups: DefaultMaxBackups,
		maxAgeDays: DefaultMaxAgeDays,
		compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch {
	case cfg.maxSizeMB <= 0 || cfg.maxSizeMB > maxSizeMB:
		return b.setErr(fmt.Errorf("xlog: max size %d MB, want 1~%d", cfg.maxSizeMB, maxSizeMB))
	case cfg.maxBackups < 0:
		return b.setErr(fmt.Errorf("xlog: negative max backups %d", cfg.maxBackups))
	case cfg.maxAgeDays < 0:
		return b.setErr(fmt.Errorf("xlog: negative max age %d", cfg.maxAgeDays))
	}
	b.rotator = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.maxSizeMB,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAgeDays,
		Compress:   cfg.compress,
		LocalTime:  cfg.localTime,
	}
	b.output = b.rotator
	return b
}

// SetOnError 设置内部错误回调
//
// Handler.Handle() 失败时（磁盘满、writer 异常）调用。回调在热路径同步执行，应保持轻量。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// Build 构建 Logger 实例
//
// 返回值：
//   - LoggerWithLevel: 日志实例，同时支持动态级别控制
//   - func() error: 清理函数，关闭轮转文件（可重复调用）
//   - error: 配置错误
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	if b.replaceAttr != nil {
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	switch b.format {
	case "json":
		handler = slog.NewJSONHandler(b.output, opts)
	default:
		handler = slog.NewTextHandler(b.output, opts)
	}

	if b.enableEnrich {
		eh, err := NewEnrichHandler(handler)
		if err != nil {
			return nil, nil, err
		}
		handler = eh
	}

	logger := &xlogger{
		handler:   handler,
		levelVar:  b.levelVar,
		onError:   b.onError,
		addSource: b.addSource,
		guard:     new(errorGuard),
	}
	return logger, b.createCleanup(), nil
}

// createCleanup 创建清理函数
func (b *Builder) createCleanup() func() error {
	var once sync.Once
	rotator := b.rotator
	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
