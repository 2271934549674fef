package xhid

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

// =============================================================================
// 配置
// =============================================================================

// Config 生成器配置记录，由边界代码（配置文件、环境变量）填充后传给 New。
type Config struct {
	// Profile profile 名称，为空时使用 "standard"。
	Profile string `koanf:"profile"`
	// Node 显式节点标识（2 个 base62 字符），为空时自动推导。
	Node string `koanf:"node"`
	// RequireExplicitNode 为 true 时 Node 必须显式配置。
	RequireExplicitNode bool `koanf:"require_explicit_node"`
	// Blind 启用盲化模式。
	Blind bool `koanf:"blind"`
	// BlindSecret base64 编码的盲化密钥（≥ 32 字节）。盲化模式下为空时使用进程内随机密钥。
	BlindSecret string `koanf:"blind_secret"`
	// BlindKeyID 当前密钥编号，写入 key tag 字段，为 0 时取 1。
	BlindKeyID uint8 `koanf:"blind_key_id"`
	// AuditSecrets 额外的 "id:base64" 历史密钥，仅用于审计轮换前生成的 ID。
	AuditSecrets []string `koanf:"audit_secrets"`
}

// options 内部配置结构
type options struct {
	registry       *Registry
	clock          Clock
	rand           io.Reader
	logger         xlog.Logger
	observer       xmetrics.Observer
	clockTolerance time.Duration
	maxWait        time.Duration
	retryInterval  time.Duration
}

func defaultOptions() *options {
	return &options{
		clock:          SystemClock(),
		rand:           rand.Reader,
		clockTolerance: DefaultClockTolerance,
		maxWait:        DefaultMaxWait,
		retryInterval:  DefaultRetryInterval,
	}
}

// Option 配置选项函数
type Option func(*options)

// WithRegistry 使用指定的 profile 注册表解析 Config.Profile。
// 默认使用只包含内置 profile 的新注册表。
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithClock 替换时间来源，主要用于测试。
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRandReader 替换随机源（默认 crypto/rand.Reader）。
// 随机位承担跨节点与同毫秒的碰撞规避，生产环境不应替换为非密码学随机源。
func WithRandReader(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithLogger 设置日志记录器。默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver 设置观测器，记录生成与时钟等待。默认不观测。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithClockTolerance 设置可容忍的最大时钟回拨幅度（默认 500ms）。
// 回拨在此范围内时等待时钟追上，超出则 Generate 立即返回 ErrClockRegression。
// 传入负值会在 New 中返回 ErrInvalidConfig。
func WithClockTolerance(d time.Duration) Option {
	return func(o *options) {
		o.clockTolerance = d
	}
}

// WithMaxWait 设置单次生成等待时钟推进的上限（默认 500ms）。
// 传入 0 表示不等待：需要等待时立即返回 ErrClockRegression。
// 传入负值会在 New 中返回 ErrInvalidConfig。
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		o.maxWait = d
	}
}

// WithRetryInterval 设置等待期间轮询时钟的间隔（默认 100µs），必须为正。
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		o.retryInterval = d
	}
}
