package xassign

import (
	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

const (
	// DefaultField 结构体没有 xhid/bson/gorm 标记时按此字段名查找主键。
	DefaultField = "ID"

	// DefaultMapKey map 与 bson.D 文档的主键名。
	DefaultMapKey = "_id"
)

// assignOptions 内部配置（与 mongo options 包区分）
type assignOptions struct {
	field    string
	mapKey   string
	prefix   string
	logger   xlog.Logger
	observer xmetrics.Observer
}

func defaultOptions() *assignOptions {
	return &assignOptions{
		field:  DefaultField,
		mapKey: DefaultMapKey,
	}
}

// Option 配置选项函数
type Option func(*assignOptions)

// WithField 设置按名称查找主键时使用的字段名，默认 "ID"。空字符串被忽略。
func WithField(name string) Option {
	return func(o *assignOptions) {
		if name != "" {
			o.field = name
		}
	}
}

// WithMapKey 设置 map 与 bson.D 文档的主键名，默认 "_id"。空字符串被忽略。
func WithMapKey(key string) Option {
	return func(o *assignOptions) {
		if key != "" {
			o.mapKey = key
		}
	}
}

// WithPrefix 设置默认 ID 前缀。模型实现 Prefixer 或字段标签带 prefix 时以模型为准。
func WithPrefix(prefix string) Option {
	return func(o *assignOptions) {
		o.prefix = prefix
	}
}

// WithLogger 设置日志记录器，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *assignOptions) {
		o.logger = l
	}
}

// WithObserver 设置观测器，默认不观测。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *assignOptions) {
		o.observer = obs
	}
}
