package xhid

import "errors"

// =============================================================================
// 错误定义
// =============================================================================

// 配置类错误只会从 New / Registry.Register 返回；
// Generate 只会返回时钟、前缀和随机源相关的错误。
var (
	// ErrUnknownProfile 请求的 profile 名称未注册。
	ErrUnknownProfile = errors.New("xhid: unknown profile")

	// ErrInvalidProfile 自定义布局不合法（位宽之和与熵预算不一致、名称重复等）。
	ErrInvalidProfile = errors.New("xhid: invalid profile")

	// ErrInvalidNode 显式指定的节点标识不是 2 个 base62 字符。
	ErrInvalidNode = errors.New("xhid: invalid node")

	// ErrNodeResolution 要求显式节点但未提供，或自动推导失败。
	ErrNodeResolution = errors.New("xhid: node resolution failed")

	// ErrInvalidSecret 盲化密钥格式错误或长度不足 32 字节。
	ErrInvalidSecret = errors.New("xhid: invalid blind secret")

	// ErrClockRegression 时钟回拨超过容忍范围，或等待时钟追上超过上限。
	ErrClockRegression = errors.New("xhid: clock regression")

	// ErrTimeOverflow 当前时间超出时间戳字段的表示范围（或早于 Unix 纪元）。
	ErrTimeOverflow = errors.New("xhid: timestamp overflow")

	// ErrDecode 候选字符串不是合法的编码 ID（长度、字符集、取值范围、校验和）。
	ErrDecode = errors.New("xhid: decode failed")

	// ErrInvalidPrefix 前缀不满足 ^[a-z][a-z0-9]{0,7}$。
	ErrInvalidPrefix = errors.New("xhid: invalid prefix")

	// ErrUnknownKey 审计时找不到 ID 中 key tag 对应的密钥。
	ErrUnknownKey = errors.New("xhid: unknown blind key")

	// ErrNotBlinded 审计的 ID 不是盲化 ID（key tag 为 0）。
	ErrNotBlinded = errors.New("xhid: id is not blinded")

	// ErrInvalidConfig 生成器选项无效（负的等待时长、零重试间隔等）。
	ErrInvalidConfig = errors.New("xhid: invalid config")

	// ErrNilGenerator 生成器为 nil 或未通过 New 创建。
	ErrNilGenerator = errors.New("xhid: nil generator (use New to create)")
)
