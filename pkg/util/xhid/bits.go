package xhid

import "math/big"

// 位操作以"从缓冲区最高位起的偏移"寻址。缓冲区按大端序存放整数，
// 预算之外的高位填充位始终为 0。

// setBits 将 v 的低 width 位（width ≤ 64）写入 buf 中从第 pos 位开始的区间。
func setBits(buf []byte, pos, width int, v uint64) {
	for i := range width {
		p := pos + i
		mask := byte(1) << (7 - p%8)
		if (v>>(width-1-i))&1 == 1 {
			buf[p/8] |= mask
		} else {
			buf[p/8] &^= mask
		}
	}
}

// getBits 读取 buf 中从第 pos 位开始的 width 位（width ≤ 64）。
func getBits(buf []byte, pos, width int) uint64 {
	var v uint64
	for i := range width {
		p := pos + i
		v = v<<1 | uint64(buf[p/8]>>(7-p%8)&1)
	}
	return v
}

// copyBits 将 src 的前 width 位复制到 buf 从第 pos 位开始的区间，
// 按 8 位一组写入，用于任意宽度的随机字段。
func copyBits(buf []byte, pos, width int, src []byte) {
	for i := 0; i < width; i += 8 {
		n := min(8, width-i)
		setBits(buf, pos+i, n, uint64(src[i/8]>>(8-n)))
	}
}

// clearBits 将区间内的位清零。
func clearBits(buf []byte, pos, width int) {
	for i := 0; i < width; i += 64 {
		setBits(buf, pos+i, min(64, width-i), 0)
	}
}

// bigBits 读取任意宽度的位区间，返回大整数。
func bigBits(buf []byte, pos, width int) *big.Int {
	v := new(big.Int)
	for i := 0; i < width; i += 64 {
		n := min(64, width-i)
		v.Lsh(v, uint(n))
		v.Or(v, new(big.Int).SetUint64(getBits(buf, pos+i, n)))
	}
	return v
}

// mask 返回低 n 位全 1 的掩码（n ≤ 64）。
func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}
