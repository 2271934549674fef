package xhid

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPrefixLength 前缀最大长度。
//
// 设计决策: 前缀限制为 8 个字符，前缀、分隔符与最长内置 profile 合计 33 个字符，
// 20 字符 standard ID 加前缀可放入 29 字符的主键列。
const MaxPrefixLength = 8

// PrefixSeparator 前缀与编码部分之间的分隔符，不在 base62 字母表中。
const PrefixSeparator = '_'

// ValidPrefix 报告 p 是否满足 ^[a-z][a-z0-9]{0,7}$。
func ValidPrefix(p string) bool {
	if len(p) == 0 || len(p) > MaxPrefixLength {
		return false
	}
	if p[0] < 'a' || p[0] > 'z' {
		return false
	}
	for i := 1; i < len(p); i++ {
		c := p[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// SplitPrefix 在第一个 '_' 处拆分前缀与编码部分。没有分隔符时 prefix 为空。
func SplitPrefix(s string) (prefix, body string, err error) {
	i := strings.IndexByte(s, PrefixSeparator)
	if i < 0 {
		return "", s, nil
	}
	prefix, body = s[:i], s[i+1:]
	if !ValidPrefix(prefix) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return prefix, body, nil
}

// Validate 对候选字符串做结构校验，不需要密钥：
//
//  1. 可选前缀（第一个 '_' 之前）满足前缀规则
//  2. 编码部分长度与某个候选 profile 一致
//  3. 字符集为 [0-9A-Za-z]，数值不超过熵预算
//  4. key tag 为 0（未盲化）时节点数值 ≤ 3843
//  5. 校验和匹配
//
// profiles 为空时使用内置 profile。通过返回 nil，否则返回包裹 ErrDecode 或 ErrInvalidPrefix 的错误。
func Validate(candidate string, profiles ...Profile) error {
	_, _, err := decodeCandidate(candidate, profiles)
	return err
}

// IsValid 使用内置 profile 校验候选字符串，从不 panic。
func IsValid(candidate string) bool {
	return Validate(candidate) == nil
}

// decodeCandidate 拆分前缀并按长度匹配的 profile 逐个尝试，返回第一个通过全部校验的结果。
func decodeCandidate(candidate string, profiles []Profile) (RawID, string, error) {
	if len(profiles) == 0 {
		profiles = builtinProfiles
	}
	prefix, body, err := SplitPrefix(candidate)
	if err != nil {
		return RawID{}, "", err
	}
	var errs []error
	for _, p := range profiles {
		if p.Length() != len(body) {
			continue
		}
		raw, err := Decode(body, p)
		if err == nil {
			err = checkStructure(raw)
		}
		if err == nil {
			return raw, prefix, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return RawID{}, "", fmt.Errorf("%w: no profile has length %d", ErrDecode, len(body))
	}
	return RawID{}, "", errors.Join(errs...)
}

// checkStructure 校验节点范围与校验和。
//
// 设计决策: profile 无 key tag 字段时无法区分盲化与非盲化 ID，此时跳过节点范围检查，
// 仅依赖校验和。
func checkStructure(raw RawID) error {
	if raw.profile.layout.KeyTagBits > 0 && raw.KeyTag() == 0 && raw.NodeValue() > MaxNodeValue {
		return fmt.Errorf("%w: node value %d out of range", ErrDecode, raw.NodeValue())
	}
	if !raw.checksumOK() {
		return fmt.Errorf("%w: checksum mismatch", ErrDecode)
	}
	return nil
}
