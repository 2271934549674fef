package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// koanfConfig 是 Config 接口的 koanf 实现。
type koanfConfig struct {
	k       *koanf.Koanf
	path    string
	format  Format
	opts    *Options
	mu      sync.RWMutex
	isBytes bool // 标记是否从字节数据创建
}

func buildOptions(opts []Option) *Options {
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

// New 从文件路径创建配置实例。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	options := buildOptions(opts)
	k, err := loadFile(path, format, options)
	if err != nil {
		return nil, err
	}

	return &koanfConfig{
		k:      k,
		path:   path,
		format: format,
		opts:   options,
	}, nil
}

// NewFromBytes 从字节数据创建配置实例。
// 需要显式指定格式，适用于 K8s ConfigMap 等场景。
//
// 空数据会创建空配置，Unmarshal 返回目标结构体的零值（环境变量覆盖仍然生效）。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	options := buildOptions(opts)
	k := koanf.New(options.Delim)

	if len(data) > 0 {
		if err := loadData(k, data, format); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(k, options); err != nil {
		return nil, err
	}

	return &koanfConfig{
		k:       k,
		format:  format,
		opts:    options,
		isBytes: true,
	}, nil
}

// NewFromEnv 只从环境变量创建配置实例，需要配合 WithEnvOverlay 使用。
func NewFromEnv(opts ...Option) (Config, error) {
	return NewFromBytes(nil, FormatYAML, opts...)
}

// Client 返回底层的 koanf 实例。
func (c *koanfConfig) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

// Unmarshal 将指定路径的配置反序列化到目标结构体。
func (c *koanfConfig) Unmarshal(path string, target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{
		Tag: c.opts.Tag,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Reload 重新加载配置文件并重新应用环境变量覆盖。
// 加载失败时保留旧配置。
func (c *koanfConfig) Reload() error {
	if c.isBytes {
		return ErrNotReloadable
	}

	newK, err := loadFile(c.path, c.format, c.opts)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.k = newK
	c.mu.Unlock()

	return nil
}

// Path 返回配置文件路径。
func (c *koanfConfig) Path() string {
	return c.path
}

// Format 返回配置格式。
func (c *koanfConfig) Format() Format {
	return c.format
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

func loadFile(path string, format Format, opts *Options) (*koanf.Koanf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k := koanf.New(opts.Delim)
	if err := loadData(k, data, format); err != nil {
		return nil, err
	}
	if err := applyEnv(k, opts); err != nil {
		return nil, err
	}
	return k, nil
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}

// environ 返回进程环境变量，测试中可替换。
var environ = os.Environ

// applyEnv 用 koanf env provider 把前缀匹配的环境变量合并进 k，覆盖文件中的同名键。
// 值为空或映射后键为空的变量被跳过。
func applyEnv(k *koanf.Koanf, opts *Options) error {
	if opts.EnvPrefix == "" {
		return nil
	}
	provider := env.Provider(opts.Delim, env.Opt{
		Prefix: opts.EnvPrefix,
		TransformFunc: func(name, value string) (string, any) {
			if value == "" {
				return "", nil
			}
			return envKey(strings.TrimPrefix(name, opts.EnvPrefix), opts), value
		},
		EnvironFunc: environ,
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("%w: env %s*: %w", ErrLoadFailed, opts.EnvPrefix, err)
	}
	return nil
}

// envKey 把变量名剩余部分转换为配置键，例如 BLIND_SECRET → hybrid_id.blind_secret。
func envKey(rest string, opts *Options) string {
	if alias, ok := opts.EnvAliases[rest]; ok {
		rest = alias
	}
	rest = strings.ToLower(rest)
	if rest == "" {
		return ""
	}
	if opts.EnvPath == "" {
		return rest
	}
	return opts.EnvPath + opts.Delim + rest
}
