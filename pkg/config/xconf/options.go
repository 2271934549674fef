package xconf

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string

	// EnvPrefix 非空时，加载（与 Reload）后用该前缀的环境变量覆盖配置。
	EnvPrefix string

	// EnvPath 环境变量覆盖写入的配置路径，为空时写入根。
	EnvPath string

	// EnvAliases 去掉前缀后的变量名到配置键（相对 EnvPath）的特殊映射。
	EnvAliases map[string]string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置选项。
func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

// WithDelim 设置配置键分隔符。
// 默认为 "."，例如 "hybrid_id.profile"。
func WithDelim(delim string) Option {
	return func(o *Options) {
		o.Delim = delim
	}
}

// WithTag 设置结构体标签名。
// 默认为 "koanf"，用于 Unmarshal 时的字段映射。
func WithTag(tag string) Option {
	return func(o *Options) {
		o.Tag = tag
	}
}

// WithEnvOverlay 用环境变量覆盖文件配置。
//
// 变量名去掉 prefix 后转小写作为键，写入 path 下：
//
//	WithEnvOverlay("HYBRID_ID_", "hybrid_id")
//	HYBRID_ID_BLIND_SECRET=... → hybrid_id.blind_secret
//
// 值为空的变量视为未设置。
func WithEnvOverlay(prefix, path string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
		o.EnvPath = path
	}
}

// WithEnvAlias 为去掉前缀后的变量名指定配置键，覆盖默认的小写映射。
//
//	WithEnvAlias("REQUIRE_NODE", "require_explicit_node")
func WithEnvAlias(name, key string) Option {
	return func(o *Options) {
		if o.EnvAliases == nil {
			o.EnvAliases = make(map[string]string)
		}
		o.EnvAliases[name] = key
	}
}
