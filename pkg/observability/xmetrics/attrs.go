package xmetrics

import (
	"fmt"
	"time"
)

// Attr 观测属性。Value 支持 string、bool、int、time.Duration，其他类型按 fmt.Sprint 转为字符串。
type Attr struct {
	Key   string
	Value any
}

// 属性键
const (
	KeyProfile  = "profile"
	KeyBlind    = "blind"
	KeyReason   = "reason"
	KeyWaited   = "waited_ns"
	KeyTarget   = "target"
	KeyAssigned = "assigned"
)

// Profile 生成使用的 profile 名称。
func Profile(name string) Attr { return Attr{Key: KeyProfile, Value: name} }

// Blind 是否为盲化生成。
func Blind(blind bool) Attr { return Attr{Key: KeyBlind, Value: blind} }

// Reason 时钟等待原因（regression / exhausted）。
func Reason(reason string) Attr { return Attr{Key: KeyReason, Value: reason} }

// Waited 时钟等待耗时，以纳秒记录。
func Waited(d time.Duration) Attr { return Attr{Key: KeyWaited, Value: d} }

// Target 被分配主键的文档类型，例如 "*model.User"。
func Target(doc any) Attr { return Attr{Key: KeyTarget, Value: fmt.Sprintf("%T", doc)} }

// Assigned 本次是否实际写入了新主键（已有主键时为 false）。
func Assigned(assigned bool) Attr { return Attr{Key: KeyAssigned, Value: assigned} }
