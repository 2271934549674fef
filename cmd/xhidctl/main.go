// xhidctl 是混合 ID 的命令行工具：生成、校验、拆解、审计与密钥管理。
//
// 用法:
//
//	xhidctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config       配置文件路径（yaml/json），也可用 HYBRID_ID_CONFIG 指定
//	-p, --profile      profile 名称（compact/standard/extended）
//	    --node         节点标识（2 个 base62 字符）
//	    --require-node 节点必须显式配置
//	    --blind        启用盲化
//	    --secret       盲化密钥（base64）
//	    --key-id       盲化密钥编号
//	    --log-level    日志级别 (默认: warn)
//	    --log-format   日志格式 text/json (默认: text)
//	    --log-file     日志写入轮转文件
//
// 配置优先级：命令行选项 > HYBRID_ID_* 环境变量 > 配置文件 > 默认值。
//
// 命令:
//
//	generate    生成 ID
//	validate    校验 ID（不需要密钥）
//	inspect     拆解 ID 各字段
//	audit       用密钥还原盲化 ID 的时间与节点
//	keygen      生成盲化密钥
//	bench       并发生成压测并检查唯一性，--metrics 打印 xhid.operation.* 指标
//	profiles    列出内置 profile
//	config      输出默认配置或当前生效配置
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（包括 validate 发现非法 ID、bench 发现重复）
//	2: 参数错误
//
// 示例:
//
//	xhidctl --node A1 generate --prefix usr -n 3
//	xhidctl validate usr_0GvW3tZ8hQm1xkP9aBcD
//	xhidctl keygen --id 2
//	HYBRID_ID_BLIND_SECRET=... xhidctl audit <id>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run 执行命令并把错误映射为退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		// flag 解析器已向 stderr 输出错误详情，此处仅设置退出码
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// setupSignalHandler 设置信号处理。
// 设计决策: 第一次信号取消 context（bench 等长任务提前结束），第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
