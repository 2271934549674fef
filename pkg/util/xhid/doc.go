// Package xhid 提供混合结构的唯一 ID 生成能力：时间有序、带节点标识、
// 带随机熵、可选盲化，编码为定长 base62 字符串。
//
// # ID 结构
//
// 每个 profile 规定编码长度和各字段位宽，从高位到低位依次为：
//
//	timestamp | node(12) | keytag | sequence | random | checksum
//
// 内置 profile：
//
//	compact   16 字符  95 位  ts 42 | node 12 | tag 4 | seq 10 | rand 19 | sum 8
//	standard  20 字符 119 位  ts 44 | node 12 | tag 4 | seq 12 | rand 39 | sum 8
//	extended  24 字符 142 位  ts 48 | node 12 | tag 4 | seq 16 | rand 50 | sum 12
//
// 字母表为 0-9A-Za-z（ASCII 升序），非盲化 ID 的字典序与生成时间一致。
//
// # 快速开始
//
//	gen, err := xhid.New(xhid.Config{Node: "A1"})
//	if err != nil {
//	    return err
//	}
//	id, err := gen.Generate("usr") // 例如: "usr_0GvW3tZ8hQm1xkP9aBcD"
//
// 校验不需要密钥：
//
//	xhid.IsValid(id)          // 任一内置 profile
//	gen.IsValid(id)           // 仅生成器的 profile
//
// # 节点
//
// 节点是 2 个 base62 字符（3844 种取值）。未配置时由主机标识与进程号推导，
// 推导结果在集群中可能碰撞，此时同毫秒唯一性依赖随机位；
// 生产集群应显式配置，或设置 RequireExplicitNode 使缺失配置在启动时失败。
//
// # 盲化
//
// Blind 模式下 timestamp|node 块经 HMAC-SHA256 轮函数的 8 轮 Feistel 置换，
// key tag 写入密钥编号，外部无法读出生成时间与节点。
// 盲化 ID 长度不变、仍可通过结构校验，但不再按时间排序。
// 持有密钥的一方可以用 Audit 还原：
//
//	kr, _ := xhid.ParseKeyring([]string{"1:" + secretB64})
//	c, err := xhid.Audit(id, kr, time.Time{})
//
// 密钥轮换时递增 BlindKeyID，旧密钥放入 AuditSecrets 继续审计历史 ID。
//
// # 时钟
//
// 同毫秒内序列号递增，耗尽后等待下一毫秒。时钟回拨不超过容忍值（默认 500ms）
// 时等待追上，否则返回 ErrClockRegression。等待上限由 WithMaxWait 控制。
//
// # 自定义 profile
//
//	reg := xhid.NewRegistry()
//	_, err := reg.Register("tiny", xhid.Layout{
//	    Length: 12, TimestampBits: 41, SequenceBits: 6, RandomBits: 0, ChecksumBits: 12,
//	})
//	gen, err := xhid.New(xhid.Config{Profile: "tiny"}, xhid.WithRegistry(reg))
//
// 位宽之和必须等于 Budget(Length)。
package xhid
