// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转）
//   - 从 context 注入 trace_id/span_id 与 ContextWithAttrs 附加属性（EnrichHandler，默认启用）
//   - 动态级别调整
//   - 进程级默认 Logger
//
// # 创建 Logger
//
// Builder 为 first-error-wins：第一个配置错误在 Build 时返回。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xhid/xhid.log", xlog.WithMaxSize(50)).
//		Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// 轮转基于 lumberjack，默认单文件 100MB、保留 7 个备份、30 天、gzip 压缩。
//
// # 默认 Logger
//
// xhid.New、xassign.New 未注入 Logger 时使用 [Default]：stderr、text 格式，
// 级别为 [DefaultLevel]（WARN），可由环境变量 HYBRID_ID_LOG_LEVEL 覆盖。
// 测试与静默场景使用 [Discard]。
//
// # 便捷属性
//
// 通用：[Err]、[Duration]、[Component]、[Operation]、[Count]。
// ID 生成：[Profile]、[Node]、[KeyID]、[Prefix]、[Blind]、[Reason]。
// 盲化密钥只以 [KeyID] 编号形式出现在日志中。
package xlog
