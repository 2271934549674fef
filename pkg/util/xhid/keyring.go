package xhid

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Keyring 是按轮换顺序排列的盲化密钥集合，第一把为当前主密钥。
// 审计时按 ID 中的 key tag 选择密钥，旧密钥保留在 keyring 中即可继续审计历史 ID。
type Keyring struct {
	keys []BlindKey
}

// NewKeyring 创建 keyring，密钥编号不可重复。
func NewKeyring(keys ...BlindKey) (*Keyring, error) {
	seen := make(map[uint8]struct{}, len(keys))
	for _, k := range keys {
		if k.IsZero() {
			return nil, fmt.Errorf("%w: zero key in keyring", ErrInvalidSecret)
		}
		if _, dup := seen[k.id]; dup {
			return nil, fmt.Errorf("%w: duplicate key id %d", ErrInvalidSecret, k.id)
		}
		seen[k.id] = struct{}{}
	}
	return &Keyring{keys: slices.Clone(keys)}, nil
}

// ParseKeyring 解析 "id:base64secret" 形式的密钥列表。
func ParseKeyring(specs []string) (*Keyring, error) {
	keys := make([]BlindKey, 0, len(specs))
	for _, spec := range specs {
		k, err := ParseKeySpec(spec)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return NewKeyring(keys...)
}

// ParseKeySpec 解析单个 "id:base64secret"，id 取值 1-255。
func ParseKeySpec(spec string) (BlindKey, error) {
	idStr, secretStr, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return BlindKey{}, fmt.Errorf("%w: key spec must be id:base64, got %q", ErrInvalidSecret, redact(spec))
	}
	id, err := strconv.ParseUint(idStr, 10, 8)
	if err != nil {
		return BlindKey{}, fmt.Errorf("%w: bad key id %q", ErrInvalidSecret, idStr)
	}
	secret, err := ParseBlindSecret(secretStr)
	if err != nil {
		return BlindKey{}, err
	}
	return NewBlindKey(uint8(id), secret)
}

// redact 只保留密钥规格的编号部分，避免密钥出现在错误信息中。
func redact(spec string) string {
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		return spec[:i] + ":***"
	}
	return "***"
}

// Primary 返回主密钥。
func (k *Keyring) Primary() (BlindKey, bool) {
	if k == nil || len(k.keys) == 0 {
		return BlindKey{}, false
	}
	return k.keys[0], true
}

// Lookup 按编号查找密钥。
func (k *Keyring) Lookup(id uint8) (BlindKey, bool) {
	if k == nil {
		return BlindKey{}, false
	}
	for _, key := range k.keys {
		if key.id == id {
			return key, true
		}
	}
	return BlindKey{}, false
}

// Len 返回密钥数量。
func (k *Keyring) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// IDs 按轮换顺序返回密钥编号。
func (k *Keyring) IDs() []uint8 {
	if k == nil {
		return nil
	}
	out := make([]uint8, len(k.keys))
	for i, key := range k.keys {
		out[i] = key.id
	}
	return out
}

// Unblind 还原盲化 ID（授权审计）。
//
//   - profile 带 key tag 字段：tag 为 0 返回 ErrNotBlinded；tag 对应的密钥不在 keyring 中返回 ErrUnknownKey
//   - profile 无 key tag 字段：按轮换顺序逐把尝试，接受第一个还原出合法节点（≤ 3843）
//     且时间戳不晚于 maxPlausibleMs 的结果；maxPlausibleMs 为 0 时不检查时间戳
//
// 返回的 keyID 为实际使用的密钥编号。
func Unblind(raw RawID, keyring *Keyring, maxPlausibleMs uint64) (RawID, uint8, error) {
	if keyring.Len() == 0 {
		return RawID{}, 0, fmt.Errorf("%w: empty keyring", ErrUnknownKey)
	}
	p := raw.profile
	if p.layout.KeyTagBits > 0 {
		tag := raw.KeyTag()
		if tag == 0 {
			return RawID{}, 0, ErrNotBlinded
		}
		key, ok := keyring.Lookup(tag)
		if !ok {
			return RawID{}, 0, fmt.Errorf("%w: key id %d", ErrUnknownKey, tag)
		}
		b, err := newBlinder(p, key)
		if err != nil {
			return RawID{}, 0, err
		}
		return b.unblind(raw), tag, nil
	}

	for _, key := range keyring.keys {
		b, err := newBlinder(p, key)
		if err != nil {
			return RawID{}, 0, err
		}
		out := b.unblind(raw)
		if out.NodeValue() > MaxNodeValue {
			continue
		}
		if maxPlausibleMs > 0 && out.Timestamp() > maxPlausibleMs {
			continue
		}
		return out, key.id, nil
	}
	return RawID{}, 0, fmt.Errorf("%w: no key in keyring yields a plausible id", ErrUnknownKey)
}
