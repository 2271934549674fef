package xhid

import (
	"math/big"

	"github.com/cespare/xxhash/v2"
)

// RawID 是编码前的位缓冲区，按大端序存放 Profile.Bits() 位有效数据。
// RawID 为单次调用私有，不跨 goroutine 共享。
type RawID struct {
	profile Profile
	buf     []byte
}

func newRawID(p Profile) RawID {
	return RawID{profile: p, buf: make([]byte, p.bytes)}
}

// Profile 返回所属 profile。
func (r RawID) Profile() Profile { return r.profile }

// Bytes 返回缓冲区副本。
func (r RawID) Bytes() []byte {
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	return out
}

// clone 深拷贝，盲化与校验前使用，避免修改调用方持有的缓冲区。
func (r RawID) clone() RawID {
	return RawID{profile: r.profile, buf: r.Bytes()}
}

// Timestamp 返回时间戳字段（Unix 毫秒；盲化 ID 为置换后的值）。
func (r RawID) Timestamp() uint64 {
	return getBits(r.buf, r.profile.tsPos, r.profile.layout.TimestampBits)
}

// NodeValue 返回节点字段的数值。
func (r RawID) NodeValue() uint16 {
	return uint16(getBits(r.buf, r.profile.nodePos, NodeBits))
}

// KeyTag 返回密钥标签，0 表示未盲化。
func (r RawID) KeyTag() uint8 {
	return uint8(getBits(r.buf, r.profile.tagPos, r.profile.layout.KeyTagBits))
}

// Sequence 返回序列号字段。
func (r RawID) Sequence() uint64 {
	return getBits(r.buf, r.profile.seqPos, r.profile.layout.SequenceBits)
}

// Random 返回随机字段。
func (r RawID) Random() *big.Int {
	return bigBits(r.buf, r.profile.randPos, r.profile.layout.RandomBits)
}

// Checksum 返回校验和字段。
func (r RawID) Checksum() uint64 {
	return getBits(r.buf, r.profile.sumPos, r.profile.layout.ChecksumBits)
}

func (r RawID) setTimestamp(ms uint64) {
	setBits(r.buf, r.profile.tsPos, r.profile.layout.TimestampBits, ms)
}

func (r RawID) setNode(v uint16) {
	setBits(r.buf, r.profile.nodePos, NodeBits, uint64(v))
}

func (r RawID) setKeyTag(tag uint8) {
	setBits(r.buf, r.profile.tagPos, r.profile.layout.KeyTagBits, uint64(tag))
}

func (r RawID) setSequence(seq uint64) {
	setBits(r.buf, r.profile.seqPos, r.profile.layout.SequenceBits, seq)
}

// setRandom 写入随机位，src 至少需要 randomBytes(profile) 字节。
func (r RawID) setRandom(src []byte) {
	copyBits(r.buf, r.profile.randPos, r.profile.layout.RandomBits, src)
}

// sortable 返回 timestamp|node 组成的可排序块及其宽度。
func (r RawID) sortable() (uint64, int) {
	w := r.profile.layout.TimestampBits + NodeBits
	return getBits(r.buf, r.profile.tsPos, w), w
}

func (r RawID) setSortable(v uint64) {
	setBits(r.buf, r.profile.tsPos, r.profile.layout.TimestampBits+NodeBits, v)
}

// randomBytes 返回填充随机字段所需的字节数。
func randomBytes(p Profile) int {
	return (p.layout.RandomBits + 7) / 8
}

// computeChecksum 对校验和字段清零后的缓冲区做 xxhash64，截取低 ChecksumBits 位。
func computeChecksum(r RawID) uint64 {
	n := r.profile.layout.ChecksumBits
	if n == 0 {
		return 0
	}
	tmp := r.Bytes()
	clearBits(tmp, r.profile.sumPos, n)
	return xxhash.Sum64(tmp) & mask(n)
}

// seal 写入校验和。所有字段写完后调用。
func (r RawID) seal() {
	if n := r.profile.layout.ChecksumBits; n > 0 {
		setBits(r.buf, r.profile.sumPos, n, computeChecksum(r))
	}
}

// checksumOK 校验和是否匹配。
func (r RawID) checksumOK() bool {
	return computeChecksum(r) == r.Checksum()
}
