package xhid

import (
	"fmt"
	"math/big"
	"strings"
)

// Alphabet base62 字母表，按 ASCII 升序排列，编码后的字典序与数值序一致。
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = 62

// alphabetIndex 字符到数值的反查表，非字母表字符为 -1。
var alphabetIndex = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := range len(Alphabet) {
		t[Alphabet[i]] = int8(i)
	}
	return t
}()

// swapCase 在本包字母表与 big.Int 的 base62 字母表（0-9a-zA-Z）之间转换，两者仅大小写相反。
func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}

// Encode 将原始 ID 编码为定长 base62 字符串，左侧以 '0' 补齐。
func Encode(raw RawID) string {
	v := new(big.Int).SetBytes(raw.buf)
	digits := swapCase(v.Text(base))
	if pad := raw.profile.Length() - len(digits); pad > 0 {
		return strings.Repeat("0", pad) + digits
	}
	return digits
}

// Decode 将编码字符串解码为指定 profile 的原始 ID。
// 长度不符、含字母表外字符或数值超出熵预算时返回 ErrDecode。
func Decode(s string, p Profile) (RawID, error) {
	if p.IsZero() {
		return RawID{}, fmt.Errorf("%w: zero profile", ErrDecode)
	}
	if len(s) != p.Length() {
		return RawID{}, fmt.Errorf("%w: length %d, profile %s expects %d", ErrDecode, len(s), p.Name(), p.Length())
	}
	for i := range len(s) {
		if alphabetIndex[s[i]] < 0 {
			return RawID{}, fmt.Errorf("%w: invalid character %q at %d", ErrDecode, s[i], i)
		}
	}
	v, ok := new(big.Int).SetString(swapCase(s), base)
	if !ok {
		return RawID{}, fmt.Errorf("%w: not a base62 number", ErrDecode)
	}
	if v.BitLen() > p.Bits() {
		return RawID{}, fmt.Errorf("%w: value exceeds %d bits", ErrDecode, p.Bits())
	}
	raw := newRawID(p)
	v.FillBytes(raw.buf)
	return raw, nil
}
