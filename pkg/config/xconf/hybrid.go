package xconf

import (
	"fmt"
	"strings"

	"github.com/omeyang/xhid/pkg/util/xhid"
)

// =============================================================================
// 混合 ID 生成器配置
// =============================================================================

const (
	// HybridIDPath 生成器配置在文件中的根路径。
	HybridIDPath = "hybrid_id"

	// HybridIDEnvPrefix 生成器配置的环境变量前缀。
	HybridIDEnvPrefix = "HYBRID_ID_"
)

// DefaultHybridIDYAML 默认配置文件内容，xhidctl config 输出的就是它。
const DefaultHybridIDYAML = `# 混合 ID 生成器配置
hybrid_id:
  # compact(16) | standard(20) | extended(24)
  profile: standard
  # 2 个 base62 字符；留空时由主机标识推导，集群部署应显式配置
  node: ""
  # 为 true 时 node 必须显式配置
  require_explicit_node: false
  # 盲化模式：隐藏 ID 中的时间与节点
  blind: false
  # base64 编码，至少 32 字节；盲化模式下留空时使用进程内随机密钥
  blind_secret: ""
  # 当前密钥编号，写入 ID 的 key tag 字段
  blind_key_id: 1
  # 轮换前的历史密钥，格式 "id:base64"，仅用于审计
  audit_secrets: []
`

// WithHybridIDEnv 启用 HYBRID_ID_* 环境变量覆盖：
//
//	HYBRID_ID_PROFILE        → hybrid_id.profile
//	HYBRID_ID_NODE           → hybrid_id.node
//	HYBRID_ID_REQUIRE_NODE   → hybrid_id.require_explicit_node
//	HYBRID_ID_BLIND          → hybrid_id.blind
//	HYBRID_ID_BLIND_SECRET   → hybrid_id.blind_secret
//	HYBRID_ID_BLIND_KEY_ID   → hybrid_id.blind_key_id
//	HYBRID_ID_AUDIT_SECRETS  → hybrid_id.audit_secrets（逗号分隔）
func WithHybridIDEnv() Option {
	return func(o *Options) {
		WithEnvOverlay(HybridIDEnvPrefix, HybridIDPath)(o)
		WithEnvAlias("REQUIRE_NODE", "require_explicit_node")(o)
	}
}

// LoadHybridID 从配置中读取生成器配置并补全默认值。
//
// 只做类型转换与默认值，取值校验（profile、节点、密钥）由 xhid.New 负责。
func LoadHybridID(c Config) (xhid.Config, error) {
	var cfg xhid.Config
	if c == nil {
		return cfg, fmt.Errorf("%w: nil config", ErrLoadFailed)
	}
	if err := c.Unmarshal(HybridIDPath, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Profile == "" {
		cfg.Profile = xhid.DefaultProfile
	}
	if cfg.BlindKeyID == 0 {
		cfg.BlindKeyID = 1
	}
	cfg.AuditSecrets = splitList(cfg.AuditSecrets)
	return cfg, nil
}

// splitList 展开逗号分隔的元素并去掉空白，环境变量只能以单个字符串提供列表。
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
