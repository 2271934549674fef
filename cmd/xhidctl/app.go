package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xhid/pkg/config/xconf"
	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/util/xhid"
)

// 全局选项名
const (
	flagConfig      = "config"
	flagProfile     = "profile"
	flagNode        = "node"
	flagRequireNode = "require-node"
	flagBlind       = "blind"
	flagSecret      = "secret"
	flagKeyID       = "key-id"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagLogFile     = "log-file"
)

// app 保存一次运行的输出与日志。
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	logger  xlog.Logger
	cleanup func() error
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: xlog.Discard()}
	return &cli.Command{
		Name:      "xhidctl",
		Usage:     "混合 ID 生成、校验与审计工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Before:    a.before,
		After:     a.after,
		Commands:  a.commands(),
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "配置文件路径（yaml/json）",
			Sources: cli.EnvVars("HYBRID_ID_CONFIG"),
		},
		&cli.StringFlag{
			Name:    flagProfile,
			Aliases: []string{"p"},
			Usage:   "profile 名称（compact/standard/extended）",
		},
		&cli.StringFlag{
			Name:  flagNode,
			Usage: "节点标识（2 个 base62 字符），留空时自动推导",
		},
		&cli.BoolFlag{
			Name:  flagRequireNode,
			Usage: "节点必须显式配置",
		},
		&cli.BoolFlag{
			Name:  flagBlind,
			Usage: "启用盲化",
		},
		&cli.StringFlag{
			Name:  flagSecret,
			Usage: "盲化密钥（base64，至少 32 字节）",
		},
		&cli.IntFlag{
			Name:  flagKeyID,
			Usage: "盲化密钥编号（1-255）",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "日志级别 (debug/info/warn/error)",
			Value: "warn",
		},
		&cli.StringFlag{
			Name:  flagLogFormat,
			Usage: "日志格式 (text/json)",
			Value: "text",
		},
		&cli.StringFlag{
			Name:  flagLogFile,
			Usage: "日志写入轮转文件而非 stderr",
		},
	}
}

// before 构建日志记录器。默认写 stderr，避免混入命令输出；指定 --log-file 时写轮转文件。
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	b := xlog.New().
		SetOutput(a.stderr).
		SetLevelString(cmd.String(flagLogLevel)).
		SetFormat(cmd.String(flagLogFormat))
	if path := cmd.String(flagLogFile); path != "" {
		b = b.SetRotation(path, xlog.WithMaxSize(10), xlog.WithMaxBackups(3))
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return ctx, newUsageError("%v", err)
	}
	a.logger = logger
	a.cleanup = cleanup
	return ctx, nil
}

func (a *app) after(_ context.Context, _ *cli.Command) error {
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}

// loadConfig 按 文件 → 环境变量 → 命令行 的顺序合成生成器配置，
// 同时返回已加载的配置源。
func loadConfig(cmd *cli.Command) (xhid.Config, xconf.Config, error) {
	var (
		c   xconf.Config
		err error
	)
	if path := cmd.String(flagConfig); path != "" {
		c, err = xconf.New(path, xconf.WithHybridIDEnv())
	} else {
		c, err = xconf.NewFromEnv(xconf.WithHybridIDEnv())
	}
	if err != nil {
		return xhid.Config{}, nil, err
	}
	cfg, err := xconf.LoadHybridID(c)
	if err != nil {
		return xhid.Config{}, nil, err
	}

	if cmd.IsSet(flagProfile) {
		cfg.Profile = cmd.String(flagProfile)
	}
	if cmd.IsSet(flagNode) {
		cfg.Node = cmd.String(flagNode)
	}
	if cmd.IsSet(flagRequireNode) {
		cfg.RequireExplicitNode = cmd.Bool(flagRequireNode)
	}
	if cmd.IsSet(flagBlind) {
		cfg.Blind = cmd.Bool(flagBlind)
	}
	if cmd.IsSet(flagSecret) {
		cfg.BlindSecret = cmd.String(flagSecret)
	}
	if cmd.IsSet(flagKeyID) {
		id, err := parseKeyID(cmd.Int(flagKeyID))
		if err != nil {
			return xhid.Config{}, nil, err
		}
		cfg.BlindKeyID = id
	}
	return cfg, c, nil
}

func parseKeyID(v int) (uint8, error) {
	if v < 1 || v > 255 {
		return 0, newUsageError("key id must be in [1, 255], got %d", v)
	}
	return uint8(v), nil
}

// newGenerator 按合成后的配置创建生成器，opts 追加在日志选项之后。
func (a *app) newGenerator(cmd *cli.Command, opts ...xhid.Option) (*xhid.Generator, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return xhid.New(cfg, append([]xhid.Option{xhid.WithLogger(a.logger)}, opts...)...)
}

// profilesFor 返回校验使用的 profile：指定 --profile 时只用它，否则用全部内置 profile。
func profilesFor(cmd *cli.Command) ([]xhid.Profile, error) {
	if !cmd.IsSet(flagProfile) {
		return nil, nil
	}
	p, err := xhid.NewRegistry().Resolve(cmd.String(flagProfile))
	if err != nil {
		return nil, newUsageError("%v", err)
	}
	return []xhid.Profile{p}, nil
}
