package xhid

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/omeyang/xhid/pkg/util/xproc"
)

// NodeSpace 节点取值空间：2 个 base62 字符共 62*62 = 3844 种。
const NodeSpace = base * base

// MaxNodeValue 最大合法节点数值。
const MaxNodeValue = NodeSpace - 1

// Node 是 2 个 base62 字符的节点标识，标识生成 ID 的进程。
type Node string

// ParseNode 校验并返回节点标识。
func ParseNode(s string) (Node, error) {
	if len(s) != 2 || alphabetIndex[s[0]] < 0 || alphabetIndex[s[1]] < 0 {
		return "", fmt.Errorf("%w: %q must be 2 characters from [0-9A-Za-z]", ErrInvalidNode, s)
	}
	return Node(s), nil
}

// NodeFromValue 将 [0, 3843] 内的数值转换为节点标识。
func NodeFromValue(v uint16) (Node, error) {
	if v > MaxNodeValue {
		return "", fmt.Errorf("%w: value %d exceeds %d", ErrInvalidNode, v, MaxNodeValue)
	}
	return Node([]byte{Alphabet[v/base], Alphabet[v%base]}), nil
}

// Value 返回节点数值 idx0*62 + idx1。对非法节点返回 0，调用方应先经 ParseNode 校验。
func (n Node) Value() uint16 {
	if len(n) != 2 || alphabetIndex[n[0]] < 0 || alphabetIndex[n[1]] < 0 {
		return 0
	}
	return uint16(alphabetIndex[n[0]])*base + uint16(alphabetIndex[n[1]])
}

// String 实现 fmt.Stringer。
func (n Node) String() string { return string(n) }

// 测试注入点：替换主机标识和进程号来源。
var (
	hostIdentity = xproc.HostIdentity
	processID    = xproc.ProcessID
)

// ResolveNode 解析节点标识：
//
//   - explicit 非空：必须是 2 个 base62 字符，否则返回 ErrInvalidNode
//   - explicit 为空且 requireExplicit：返回 ErrNodeResolution
//   - 否则由 DeriveNode 从主机标识与进程号推导
//
// derived 报告结果是否为自动推导，生成器据此输出告警日志。
func ResolveNode(explicit string, requireExplicit bool) (node Node, derived bool, err error) {
	if explicit != "" {
		n, err := ParseNode(explicit)
		return n, false, err
	}
	if requireExplicit {
		return "", false, fmt.Errorf("%w: explicit node required but not configured", ErrNodeResolution)
	}
	n, err := DeriveNode()
	return n, true, err
}

// DeriveNode 由主机标识与进程号推导节点：xxhash64("host/pid") mod 3844。
//
// 主机标识按 POD_NAME → HOSTNAME → os.Hostname() → 私有 IPv4 的顺序获取，
// 详见 xproc.HostIdentity。推导结果在多节点部署中存在碰撞可能（3844 个槽位，
// 约 20 个进程时碰撞概率接近 5%），此时同毫秒内的唯一性依赖随机位。
// 集群部署应显式配置节点。
func DeriveNode() (Node, error) {
	host, err := hostIdentity()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNodeResolution, err)
	}
	h := xxhash.Sum64String(host + "/" + strconv.Itoa(processID()))
	return NodeFromValue(uint16(h % NodeSpace))
}
