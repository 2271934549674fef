package xhid

import (
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"sync"
)

// =============================================================================
// 位布局
// =============================================================================

// NodeBits 节点字段固定宽度。2 个 base62 字符共 3844 种取值，需 12 位。
const NodeBits = 12

// 布局约束。
const (
	MinLength        = 8
	MaxLength        = 64
	MinTimestampBits = 32
	// MaxTimestampBits 保证 timestamp|node 组成的可排序块不超过 64 位，盲化置换在 uint64 上完成。
	MaxTimestampBits = 64 - NodeBits
	MaxKeyTagBits    = 8
	MaxSequenceBits  = 32
	MaxChecksumBits  = 32
)

// Layout 描述一个 profile 的字段位宽（高位到低位）：
//
//	timestamp | node(12) | keytag | sequence | random | checksum
//
// 各字段宽度与 NodeBits 之和必须等于 Length 个 base62 字符可承载的位数。
type Layout struct {
	// Length 编码后的字符数。
	Length int
	// TimestampBits Unix 毫秒时间戳宽度。
	TimestampBits int
	// KeyTagBits 盲化密钥标签宽度，0 表示不记录密钥标签。
	KeyTagBits int
	// SequenceBits 同毫秒序列号宽度，0 表示同毫秒内完全依赖随机位。
	SequenceBits int
	// RandomBits 每次生成重新采样的随机位宽度。
	RandomBits int
	// ChecksumBits 校验和宽度，0 表示不校验。
	ChecksumBits int
}

// Budget 返回 length 个 base62 字符可完整承载的位数，即满足 2^b ≤ 62^length 的最大 b。
//
// 设计决策: 预算按位而非按字节取整，16/20/24 字符分别得到 95/119/142 位，
// 编码结果不会出现恒为 '0' 的前导字符。
func Budget(length int) int {
	if length <= 0 {
		return 0
	}
	n := new(big.Int).Exp(big.NewInt(base), big.NewInt(int64(length)), nil)
	return n.BitLen() - 1
}

func (l Layout) total() int {
	return l.TimestampBits + NodeBits + l.KeyTagBits + l.SequenceBits + l.RandomBits + l.ChecksumBits
}

// validate 校验布局，错误统一包裹 ErrInvalidProfile。
func (l Layout) validate() error {
	switch {
	case l.Length < MinLength || l.Length > MaxLength:
		return fmt.Errorf("%w: length %d out of range [%d, %d]", ErrInvalidProfile, l.Length, MinLength, MaxLength)
	case l.TimestampBits < MinTimestampBits || l.TimestampBits > MaxTimestampBits:
		return fmt.Errorf("%w: timestamp bits %d out of range [%d, %d]", ErrInvalidProfile, l.TimestampBits, MinTimestampBits, MaxTimestampBits)
	case l.KeyTagBits < 0 || l.KeyTagBits > MaxKeyTagBits:
		return fmt.Errorf("%w: key tag bits %d out of range [0, %d]", ErrInvalidProfile, l.KeyTagBits, MaxKeyTagBits)
	case l.SequenceBits < 0 || l.SequenceBits > MaxSequenceBits:
		return fmt.Errorf("%w: sequence bits %d out of range [0, %d]", ErrInvalidProfile, l.SequenceBits, MaxSequenceBits)
	case l.ChecksumBits < 0 || l.ChecksumBits > MaxChecksumBits:
		return fmt.Errorf("%w: checksum bits %d out of range [0, %d]", ErrInvalidProfile, l.ChecksumBits, MaxChecksumBits)
	case l.RandomBits < 0:
		return fmt.Errorf("%w: negative random bits %d", ErrInvalidProfile, l.RandomBits)
	}
	if budget := Budget(l.Length); l.total() != budget {
		return fmt.Errorf("%w: fields sum to %d bits, length %d carries %d", ErrInvalidProfile, l.total(), l.Length, budget)
	}
	return nil
}

// =============================================================================
// Profile
// =============================================================================

// Profile 是已校验、不可变的命名布局。只能通过 Registry 获得。
type Profile struct {
	name   string
	layout Layout
	bits   int
	bytes  int
	// 字段起始位（相对于缓冲区最高位，已计入填充位）
	tsPos, nodePos, tagPos, seqPos, randPos, sumPos int
}

func newProfile(name string, l Layout) Profile {
	bits := l.total()
	nbytes := (bits + 7) / 8
	p := Profile{name: name, layout: l, bits: bits, bytes: nbytes}
	p.tsPos = nbytes*8 - bits
	p.nodePos = p.tsPos + l.TimestampBits
	p.tagPos = p.nodePos + NodeBits
	p.seqPos = p.tagPos + l.KeyTagBits
	p.randPos = p.seqPos + l.SequenceBits
	p.sumPos = p.randPos + l.RandomBits
	return p
}

// Name 返回 profile 名称。
func (p Profile) Name() string { return p.name }

// Length 返回编码长度（字符数）。
func (p Profile) Length() int { return p.layout.Length }

// Layout 返回字段位宽。
func (p Profile) Layout() Layout { return p.layout }

// Bits 返回熵预算（所有字段位宽之和）。
func (p Profile) Bits() int { return p.bits }

// IsZero 报告 p 是否为零值。
func (p Profile) IsZero() bool { return p.name == "" }

// 内置 profile 名称。
const (
	ProfileCompact  = "compact"
	ProfileStandard = "standard"
	ProfileExtended = "extended"

	// DefaultProfile 未指定 profile 时使用。
	DefaultProfile = ProfileStandard
)

// 设计决策: 内置布局的拆分（时间戳 42/44/48 位可用到 2109/2527/10889 年，
// 4 位 key tag 支持 15 把轮换密钥，序列号 10/12/16 位），
// 剩余位全部分配给随机字段，校验和 8/8/12 位。
var builtinLayouts = []struct {
	name   string
	layout Layout
}{
	{ProfileCompact, Layout{Length: 16, TimestampBits: 42, KeyTagBits: 4, SequenceBits: 10, RandomBits: 19, ChecksumBits: 8}},
	{ProfileStandard, Layout{Length: 20, TimestampBits: 44, KeyTagBits: 4, SequenceBits: 12, RandomBits: 39, ChecksumBits: 8}},
	{ProfileExtended, Layout{Length: 24, TimestampBits: 48, KeyTagBits: 4, SequenceBits: 16, RandomBits: 50, ChecksumBits: 12}},
}

// builtinProfiles 不可变的内置 profile，包级 IsValid 使用。
var builtinProfiles = func() []Profile {
	out := make([]Profile, 0, len(builtinLayouts))
	for _, b := range builtinLayouts {
		if err := b.layout.validate(); err != nil {
			panic(err)
		}
		out = append(out, newProfile(b.name, b.layout))
	}
	return out
}()

// BuiltinProfiles 返回内置 profile 的副本（compact、standard、extended）。
func BuiltinProfiles() []Profile {
	return slices.Clone(builtinProfiles)
}

// =============================================================================
// Registry
// =============================================================================

var profileNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Registry 保存命名 profile。新建时包含三个内置 profile。
//
// 设计决策: Registry 是显式值，由生成器持有（WithRegistry 注入），
// 不存在可变的包级全局表，不同生成器的自定义布局互不影响。
// Registry 的方法是并发安全的；已注册的 profile 不可修改或删除。
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	order    []string
}

// NewRegistry 创建包含内置 profile 的注册表。
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(builtinProfiles))}
	for _, p := range builtinProfiles {
		r.profiles[p.name] = p
		r.order = append(r.order, p.name)
	}
	return r
}

// Resolve 按名称查找 profile。
func (r *Registry) Resolve(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Register 校验并注册自定义布局。名称已存在（包括内置名称）时返回 ErrInvalidProfile。
func (r *Registry) Register(name string, l Layout) (Profile, error) {
	if !profileNamePattern.MatchString(name) {
		return Profile{}, fmt.Errorf("%w: bad name %q", ErrInvalidProfile, name)
	}
	if err := l.validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[name]; exists {
		return Profile{}, fmt.Errorf("%w: %q already registered", ErrInvalidProfile, name)
	}
	p := newProfile(name, l)
	r.profiles[name] = p
	r.order = append(r.order, name)
	return p, nil
}

// Names 按注册顺序返回全部 profile 名称。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Profiles 按注册顺序返回全部 profile。
func (r *Registry) Profiles() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.profiles[name])
	}
	return out
}

// MaxIDLength 返回注册表中任意 profile 加最长前缀后的最大字符数，用于数据库主键列宽。
// 内置 profile 为 8 + 1 + 24 = 33。
func (r *Registry) MaxIDLength() int {
	longest := 0
	for _, p := range r.Profiles() {
		longest = max(longest, p.Length())
	}
	return MaxPrefixLength + 1 + longest
}
