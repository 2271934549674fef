package xhid

import (
	"fmt"
	"time"
)

// Components 是一个 ID 拆解后的各字段。
//
// 盲化 ID 直接拆解时 Timestamp/Node 为置换后的值，没有意义；
// 需要真实值时使用 Audit。
type Components struct {
	ID        string    `json:"id"`
	Prefix    string    `json:"prefix,omitempty"`
	Profile   string    `json:"profile"`
	Timestamp uint64    `json:"timestamp"`
	Time      time.Time `json:"time"`
	Node      string    `json:"node"`
	NodeValue uint16    `json:"node_value"`
	KeyTag    uint8     `json:"key_tag"`
	Sequence  uint64    `json:"sequence"`
	Random    string    `json:"random"`
	Checksum  uint64    `json:"checksum"`
	Blind     bool      `json:"blind"`
}

func components(id, prefix string, raw RawID) Components {
	c := Components{
		ID:        id,
		Prefix:    prefix,
		Profile:   raw.profile.Name(),
		Timestamp: raw.Timestamp(),
		NodeValue: raw.NodeValue(),
		KeyTag:    raw.KeyTag(),
		Sequence:  raw.Sequence(),
		Random:    fmt.Sprintf("%x", raw.Random()),
		Checksum:  raw.Checksum(),
		Blind:     raw.KeyTag() != 0,
	}
	c.Time = time.UnixMilli(int64(c.Timestamp)).UTC()
	// 盲化后的节点数值可能超出 3843，此时不渲染字符形式
	if n, err := NodeFromValue(c.NodeValue); err == nil {
		c.Node = string(n)
	}
	return c
}

// Decompose 校验并拆解 ID，不需要密钥。profiles 为空时使用内置 profile。
func Decompose(id string, profiles ...Profile) (Components, error) {
	raw, prefix, err := decodeCandidate(id, profiles)
	if err != nil {
		return Components{}, err
	}
	return components(id, prefix, raw), nil
}

// Audit 使用 keyring 还原盲化 ID 的真实时间戳与节点（授权审计）。
// maxPlausible 之后的时间戳视为不可信，仅用于无 key tag 字段的 profile；零值表示不检查。
func Audit(id string, keyring *Keyring, maxPlausible time.Time, profiles ...Profile) (Components, error) {
	raw, prefix, err := decodeCandidate(id, profiles)
	if err != nil {
		return Components{}, err
	}
	var limit uint64
	if !maxPlausible.IsZero() && maxPlausible.UnixMilli() > 0 {
		limit = uint64(maxPlausible.UnixMilli())
	}
	plain, keyID, err := Unblind(raw, keyring, limit)
	if err != nil {
		return Components{}, err
	}
	c := components(id, prefix, plain)
	c.KeyTag = keyID
	c.Blind = true
	return c, nil
}

// auditHorizon 审计时允许的时钟超前量。
const auditHorizon = 24 * time.Hour

// Inspect 按生成器的 profile 拆解 ID。
func (g *Generator) Inspect(id string) (Components, error) {
	if err := g.validate(); err != nil {
		return Components{}, err
	}
	return Decompose(id, g.profile)
}

// Audit 使用生成器的 keyring（当前密钥与 AuditSecrets）还原盲化 ID。
// 非盲化 ID 返回 ErrNotBlinded；生成器未配置任何密钥时返回 ErrUnknownKey。
func (g *Generator) Audit(id string) (Components, error) {
	if err := g.validate(); err != nil {
		return Components{}, err
	}
	return Audit(id, g.keyring, g.seq.clock.Now().Add(auditHorizon), g.profile)
}
