package xhid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// =============================================================================
// 盲化密钥
// =============================================================================

// MinSecretLength 盲化密钥的最小字节数。
const MinSecretLength = 32

// BlindKey 是带编号的盲化密钥。ID 写入 ID 的 key tag 字段，审计时据此选择密钥。
// 密钥内容不可导出，只能通过 NewBlindKey 构造。
type BlindKey struct {
	id     uint8
	secret []byte
}

// NewBlindKey 创建盲化密钥。id 必须 ≥ 1（0 保留表示"未盲化"），secret 至少 32 字节。
func NewBlindKey(id uint8, secret []byte) (BlindKey, error) {
	if id == 0 {
		return BlindKey{}, fmt.Errorf("%w: key id must be >= 1", ErrInvalidSecret)
	}
	if len(secret) < MinSecretLength {
		return BlindKey{}, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidSecret, MinSecretLength, len(secret))
	}
	return BlindKey{id: id, secret: append([]byte(nil), secret...)}, nil
}

// ID 返回密钥编号。
func (k BlindKey) ID() uint8 { return k.id }

// IsZero 报告 k 是否为零值。
func (k BlindKey) IsZero() bool { return k.id == 0 }

// ParseBlindSecret 解析 base64 编码的密钥（标准或 URL 字母表，补齐可选），
// 解码失败或长度不足 32 字节时返回 ErrInvalidSecret。
func ParseBlindSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	encodings := []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if len(b) < MinSecretLength {
			return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidSecret, MinSecretLength, len(b))
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: not valid base64", ErrInvalidSecret)
}

// GenerateBlindSecret 从 r 读取 32 字节随机密钥。
func GenerateBlindSecret(r io.Reader) ([]byte, error) {
	b := make([]byte, MinSecretLength)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("xhid: read random secret: %w", err)
	}
	return b, nil
}

// EncodeBlindSecret 以标准 base64 编码密钥，与 ParseBlindSecret 互逆。
func EncodeBlindSecret(secret []byte) string {
	return base64.StdEncoding.EncodeToString(secret)
}

// =============================================================================
// Feistel 置换
// =============================================================================

const (
	feistelRounds = 8
	hkdfSalt      = "xhid/blind/v1"
)

// blinder 对 timestamp|node 块做带密钥的确定性置换。
//
// 块宽 w = TimestampBits + 12，拆成高 ⌊w/2⌋ 位与低 ⌈w/2⌉ 位两半，
// 进行 8 轮交替 Feistel：偶数轮 L ^= F(R)，奇数轮 R ^= F(L)。
// 轮函数 F = HMAC-SHA256(roundKey, round || half) 截断到目标半块宽度。
// 置换只依赖密钥与输入，相同 (时间戳, 节点) 在同一密钥下结果相同；
// 序列号与随机位不参与，保持原值。
type blinder struct {
	key      BlindKey
	roundKey []byte
	hiBits   int
	loBits   int
}

// newBlinder 为指定 profile 派生轮密钥：HKDF-SHA256(secret, salt, "profile/keyID")。
func newBlinder(p Profile, key BlindKey) (*blinder, error) {
	info := fmt.Sprintf("%s/%d", p.Name(), key.id)
	rk := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key.secret, []byte(hkdfSalt), []byte(info)), rk); err != nil {
		return nil, fmt.Errorf("xhid: derive round key: %w", err)
	}
	w := p.layout.TimestampBits + NodeBits
	return &blinder{key: key, roundKey: rk, hiBits: w / 2, loBits: w - w/2}, nil
}

func (b *blinder) round(i int, half uint64, outBits int) uint64 {
	var msg [9]byte
	msg[0] = byte(i)
	binary.BigEndian.PutUint64(msg[1:], half)
	m := hmac.New(sha256.New, b.roundKey)
	_, _ = m.Write(msg[:]) // hash.Hash.Write never returns error
	return binary.BigEndian.Uint64(m.Sum(nil)[:8]) & mask(outBits)
}

func (b *blinder) permute(v uint64) uint64 {
	hi, lo := v>>b.loBits, v&mask(b.loBits)
	for i := range feistelRounds {
		if i%2 == 0 {
			hi ^= b.round(i, lo, b.hiBits)
		} else {
			lo ^= b.round(i, hi, b.loBits)
		}
	}
	return hi<<b.loBits | lo
}

func (b *blinder) invert(v uint64) uint64 {
	hi, lo := v>>b.loBits, v&mask(b.loBits)
	for i := feistelRounds - 1; i >= 0; i-- {
		if i%2 == 0 {
			hi ^= b.round(i, lo, b.hiBits)
		} else {
			lo ^= b.round(i, hi, b.loBits)
		}
	}
	return hi<<b.loBits | lo
}

// blind 返回盲化后的副本：置换可排序块、写入 key tag、重新计算校验和。
func (b *blinder) blind(raw RawID) RawID {
	out := raw.clone()
	v, _ := out.sortable()
	out.setSortable(b.permute(v))
	out.setKeyTag(b.key.id)
	out.seal()
	return out
}

// unblind 返回还原后的副本：逆置换可排序块、清零 key tag、重新计算校验和。
func (b *blinder) unblind(raw RawID) RawID {
	out := raw.clone()
	v, _ := out.sortable()
	out.setSortable(b.invert(v))
	out.setKeyTag(0)
	out.seal()
	return out
}

// Blind 使用 key 盲化原始 ID。相同 key 与输入得到相同结果。
func Blind(raw RawID, key BlindKey) (RawID, error) {
	if key.IsZero() {
		return RawID{}, fmt.Errorf("%w: zero key", ErrInvalidSecret)
	}
	if err := checkTagFits(raw.profile, key.id); err != nil {
		return RawID{}, err
	}
	b, err := newBlinder(raw.profile, key)
	if err != nil {
		return RawID{}, err
	}
	return b.blind(raw), nil
}

// checkTagFits 校验密钥编号能写入 profile 的 key tag 字段。
func checkTagFits(p Profile, id uint8) error {
	if n := p.layout.KeyTagBits; n > 0 && uint64(id) > mask(n) {
		return fmt.Errorf("%w: key id %d does not fit in %d tag bits of profile %s", ErrInvalidSecret, id, n, p.Name())
	}
	return nil
}
