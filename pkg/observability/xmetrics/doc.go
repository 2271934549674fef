// Package xmetrics 是 xhid 的观测层：xhid 与 xassign 只依赖 Observer/Span 接口，
// 不配置观测器时零开销。
//
// 两种实现：
//
//   - NewOTelObserver：写入 otel 全局（或指定）Provider，接入外部采集链路
//   - NewLocal：进程内 MeterProvider + ManualReader，Snapshot 直接读出汇总，
//     xhidctl bench --metrics 使用
//
// 每次操作产生一个 span（名称 "component/operation"）并记录：
//
//   - xhid.operation.total      计数
//   - xhid.operation.duration   耗时（秒），桶边界见 DefaultDurationBuckets
//
// 指标属性固定为 component / operation / status。当前的操作：
// xhid/generate、xhid/clock_wait（属性 reason、waited_ns）、xassign/assign。
//
//	gen, err := xhid.New(cfg, xhid.WithObserver(obs))
package xmetrics
