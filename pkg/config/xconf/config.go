package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 已加载的配置：文件（或字节）内容叠加环境变量覆盖。
//
// 生成器配置通过 LoadHybridID 读取；其他段直接用 Unmarshal 或 Client。
type Config interface {
	// Client 返回底层 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置解到 target，path 为空时解整个配置。
	// 字符串形式的环境变量值会按目标字段类型转换。
	Unmarshal(path string, target any) error

	// Reload 重新读取文件并重新叠加环境变量，失败时保留旧配置。
	// 字节或纯环境变量创建的 Config 返回 ErrNotReloadable。
	Reload() error

	// Path 配置文件路径，非文件来源为空。
	Path() string

	Format() Format
}
