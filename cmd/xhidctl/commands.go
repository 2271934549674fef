package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xhid/pkg/config/xconf"
	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
	"github.com/omeyang/xhid/pkg/util/xhid"
	"github.com/omeyang/xhid/pkg/util/xproc"
)

// auditHorizon 审计时允许的时钟超前量。
const auditHorizon = 24 * time.Hour

// 创建所有子命令。
func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		a.generateCommand(),
		a.validateCommand(),
		a.inspectCommand(),
		a.auditCommand(),
		a.keygenCommand(),
		a.benchCommand(),
		a.profilesCommand(),
		a.configCommand(),
	}
}

// =============================================================================
// generate
// =============================================================================

func (a *app) generateCommand() *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen", "g"},
		Usage:   "生成 ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"x"},
				Usage:   "ID 前缀（^[a-z][a-z0-9]{0,7}$）",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "生成数量",
				Value:   1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			count := cmd.Int("count")
			if count < 1 {
				return newUsageError("count must be positive, got %d", count)
			}
			prefix := cmd.String("prefix")
			if prefix != "" && !xhid.ValidPrefix(prefix) {
				return newUsageError("invalid prefix %q", prefix)
			}
			gen, err := a.newGenerator(cmd)
			if err != nil {
				return err
			}
			for range count {
				if err := ctx.Err(); err != nil {
					return err
				}
				id, err := gen.Generate(prefix)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, id)
			}
			return nil
		},
	}
}

// =============================================================================
// validate / inspect / audit
// =============================================================================

func (a *app) validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "校验 ID（不需要密钥）",
		ArgsUsage: "<id> [id...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return newUsageError("validate requires at least one id")
			}
			profiles, err := profilesFor(cmd)
			if err != nil {
				return err
			}
			invalid := 0
			for _, id := range ids {
				if err := xhid.Validate(id, profiles...); err != nil {
					invalid++
					fmt.Fprintf(a.stdout, "invalid\t%s\t%v\n", id, err)
					continue
				}
				fmt.Fprintf(a.stdout, "ok\t%s\n", id)
			}
			if invalid > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func (a *app) inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Aliases:   []string{"i"},
		Usage:     "拆解 ID 各字段（JSON 输出）",
		ArgsUsage: "<id> [id...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return newUsageError("inspect requires at least one id")
			}
			profiles, err := profilesFor(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			for _, id := range ids {
				c, err := xhid.Decompose(id, profiles...)
				if err != nil {
					return fmt.Errorf("inspect %s: %w", id, err)
				}
				if err := enc.Encode(c); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) auditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "用密钥还原盲化 ID 的时间与节点",
		ArgsUsage: "<id> [id...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   `审计密钥 "id:base64"，可重复；未指定时使用配置中的密钥`,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return newUsageError("audit requires at least one id")
			}
			audit, err := a.auditor(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			for _, id := range ids {
				c, err := audit(id)
				if err != nil {
					return fmt.Errorf("audit %s: %w", id, err)
				}
				if err := enc.Encode(c); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// auditor 返回审计函数：--key 优先，否则使用配置构建的生成器的 keyring。
func (a *app) auditor(cmd *cli.Command) (func(string) (xhid.Components, error), error) {
	if keys := cmd.StringSlice("key"); len(keys) > 0 {
		kr, err := xhid.ParseKeyring(keys)
		if err != nil {
			return nil, newUsageError("%v", err)
		}
		profiles, err := profilesFor(cmd)
		if err != nil {
			return nil, err
		}
		return func(id string) (xhid.Components, error) {
			return xhid.Audit(id, kr, time.Now().Add(auditHorizon), profiles...)
		}, nil
	}
	gen, err := a.newGenerator(cmd)
	if err != nil {
		return nil, err
	}
	return gen.Audit, nil
}

// =============================================================================
// keygen
// =============================================================================

func (a *app) keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "生成盲化密钥（base64）",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "id",
				Usage: `密钥编号；指定时输出 "id:base64"，可直接放入 audit_secrets`,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			var prefix string
			if cmd.IsSet("id") {
				id, err := parseKeyID(cmd.Int("id"))
				if err != nil {
					return err
				}
				prefix = strconv.Itoa(int(id)) + ":"
			}
			secret, err := xhid.GenerateBlindSecret(rand.Reader)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, prefix+xhid.EncodeBlindSecret(secret))
			return nil
		},
	}
}

// =============================================================================
// bench
// =============================================================================

// benchResult 压测结果
type benchResult struct {
	total      int
	duplicates int
	elapsed    time.Duration
}

func (a *app) benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "并发生成 ID 并检查唯一性",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "总生成数量",
				Value:   100000,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "并发数（默认 GOMAXPROCS）",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "结束后打印 xhid.operation.* 指标",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			count := cmd.Int("count")
			workers := cmd.Int("workers")
			if workers == 0 {
				workers = runtime.GOMAXPROCS(0)
			}
			if count < 1 || workers < 1 {
				return newUsageError("count and workers must be positive")
			}
			var opts []xhid.Option
			var local *xmetrics.Local
			if cmd.Bool("metrics") {
				l, err := xmetrics.NewLocal(xmetrics.WithInstrumentationName("xhidctl"))
				if err != nil {
					return err
				}
				defer func() { _ = l.Shutdown(context.WithoutCancel(ctx)) }()
				local = l
				opts = append(opts, xhid.WithObserver(l))
			}
			gen, err := a.newGenerator(cmd, opts...)
			if err != nil {
				return err
			}
			res, err := runBench(ctx, gen, count, workers)
			if err != nil {
				return err
			}
			rate := float64(res.total) / res.elapsed.Seconds()
			fmt.Fprintf(a.stdout, "profile=%s node=%s blind=%t\n", gen.Profile(), gen.Node(), gen.Blind())
			fmt.Fprintf(a.stdout, "generated %d ids with %d workers in %s (%.0f ids/s), duplicates: %d\n",
				res.total, workers, res.elapsed.Round(time.Microsecond), rate, res.duplicates)
			a.logger.Info(ctx, "bench finished", xlog.Count(int64(res.total)), xlog.Duration(res.elapsed))
			if local != nil {
				if err := printMetrics(ctx, a.stdout, local); err != nil {
					return err
				}
			}
			if res.duplicates > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

// runBench 将 count 个生成任务分给 workers 个 goroutine，汇总后检查重复。
// printMetrics 以 name{labels} value 的形式输出累计指标。
func printMetrics(ctx context.Context, w io.Writer, local *xmetrics.Local) error {
	stats, err := local.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, st := range stats {
		labels := fmt.Sprintf("{component=%q,operation=%q,status=%q}", st.Component, st.Operation, st.Status)
		fmt.Fprintf(w, "%s%s %d\n", xmetrics.MetricOperationTotal, labels, st.Count)
		fmt.Fprintf(w, "%s_sum%s %.6f\n", xmetrics.MetricOperationDuration, labels, st.Seconds)
	}
	return nil
}

func runBench(ctx context.Context, gen *xhid.Generator, count, workers int) (benchResult, error) {
	workers = min(workers, count)
	batches := make([][]string, workers)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := range workers {
		n := count / workers
		if w < count%workers {
			n++
		}
		g.Go(func() error {
			ids := make([]string, 0, n)
			for range n {
				if err := ctx.Err(); err != nil {
					return err
				}
				id, err := gen.Generate("")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			batches[w] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	elapsed := time.Since(start)

	seen := make(map[string]struct{}, count)
	res := benchResult{elapsed: elapsed}
	for _, ids := range batches {
		for _, id := range ids {
			res.total++
			if _, dup := seen[id]; dup {
				res.duplicates++
				continue
			}
			seen[id] = struct{}{}
		}
	}
	return res, nil
}

// =============================================================================
// profiles / config
// =============================================================================

func (a *app) profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "列出内置 profile 的字段布局",
		Action: func(_ context.Context, _ *cli.Command) error {
			reg := xhid.NewRegistry()
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLENGTH\tBITS\tTIMESTAMP\tNODE\tTAG\tSEQUENCE\tRANDOM\tCHECKSUM")
			for _, p := range reg.Profiles() {
				l := p.Layout()
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
					p.Name(), l.Length, p.Bits(), l.TimestampBits, xhid.NodeBits,
					l.KeyTagBits, l.SequenceBits, l.RandomBits, l.ChecksumBits)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "\nmax id length with prefix: %d\n", reg.MaxIDLength())
			return nil
		},
	}
}

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "输出默认配置文件；--resolved 输出当前生效的配置",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "resolved",
				Usage: "输出合成后的配置（密钥脱敏）与节点解析结果",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if !cmd.Bool("resolved") {
				fmt.Fprint(a.stdout, xconf.DefaultHybridIDYAML)
				return nil
			}
			cfg, src, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.printResolved(cfg, src)
		},
	}
}

func (a *app) printResolved(cfg xhid.Config, src xconf.Config) error {
	node, derived, nodeErr := xhid.ResolveNode(cfg.Node, cfg.RequireExplicitNode)

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if path := src.Path(); path != "" {
		fmt.Fprintf(tw, "source\t%s (%s)\n", path, src.Format())
	} else {
		fmt.Fprintf(tw, "source\tenvironment\n")
	}
	fmt.Fprintf(tw, "profile\t%s\n", cfg.Profile)
	fmt.Fprintf(tw, "node\t%s\n", cfg.Node)
	fmt.Fprintf(tw, "require_explicit_node\t%t\n", cfg.RequireExplicitNode)
	fmt.Fprintf(tw, "blind\t%t\n", cfg.Blind)
	fmt.Fprintf(tw, "blind_secret\t%s\n", redacted(cfg.BlindSecret))
	fmt.Fprintf(tw, "blind_key_id\t%d\n", cfg.BlindKeyID)
	fmt.Fprintf(tw, "audit_secrets\t%d configured\n", len(cfg.AuditSecrets))
	fmt.Fprintf(tw, "process\t%s (pid %d)\n", xproc.ProcessName(), xproc.ProcessID())
	if host, err := xproc.HostIdentity(); err == nil {
		fmt.Fprintf(tw, "host\t%s\n", host)
	}
	if nodeErr == nil {
		fmt.Fprintf(tw, "effective_node\t%s (derived: %t)\n", node, derived)
	} else {
		fmt.Fprintf(tw, "effective_node\terror: %v\n", nodeErr)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if nodeErr != nil {
		return &exitError{code: 1}
	}
	return nil
}

func redacted(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "(set)"
}
