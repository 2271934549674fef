package xhid

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

const (
	componentName = "xhid"
	opGenerate    = "generate"
	opClockWait   = "clock_wait"
)

// Generator 混合 ID 生成器。
//
// 构造后不可变（profile、节点、密钥），只有时钟序列状态受互斥锁保护，
// 所有方法并发安全，适合作为进程级长生命周期对象共享。
type Generator struct {
	profile     Profile
	node        Node
	nodeDerived bool
	registry    *Registry
	blinder     *blinder // nil 表示非盲化模式
	keyring     *Keyring
	seq         *sequencer
	rand        io.Reader
	logger      xlog.Logger
	observer    xmetrics.Observer
}

// New 创建生成器。所有配置错误只在这里返回：
//
//   - ErrUnknownProfile：profile 未注册
//   - ErrInvalidNode / ErrNodeResolution：节点非法或无法解析
//   - ErrInvalidSecret：盲化密钥或审计密钥非法
//   - ErrInvalidConfig：选项取值非法
//
// 设计决策: 返回 *Generator 而非接口，调用方（xassign 等）按需定义自己的窄接口。
func New(cfg Config, opts ...Option) (*Generator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}

	name := cfg.Profile
	if name == "" {
		name = DefaultProfile
	}
	profile, err := o.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	node, derived, err := ResolveNode(cfg.Node, cfg.RequireExplicitNode)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		profile:     profile,
		node:        node,
		nodeDerived: derived,
		registry:    o.registry,
		rand:        o.rand,
		logger:      o.logger.With(xlog.Component(componentName), xlog.Profile(profile.Name()), xlog.Node(string(node))),
		observer:    o.observer,
	}

	if err := g.setupKeys(cfg); err != nil {
		return nil, err
	}

	g.seq = newSequencer(profile, o)
	g.seq.onWait = g.recordWait

	ctx := context.Background()
	if derived {
		g.logger.Warn(ctx, "node derived from host identity; configure an explicit node for clustered deployments")
	}
	g.logger.Debug(ctx, "generator ready", xlog.Blind(g.Blind()))
	return g, nil
}

func (o *options) validate() error {
	switch {
	case o.clock == nil:
		return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
	case o.rand == nil:
		return fmt.Errorf("%w: nil random reader", ErrInvalidConfig)
	case o.clockTolerance < 0:
		return fmt.Errorf("%w: clock tolerance must be non-negative, got %s", ErrInvalidConfig, o.clockTolerance)
	case o.maxWait < 0:
		return fmt.Errorf("%w: max wait must be non-negative, got %s", ErrInvalidConfig, o.maxWait)
	case o.retryInterval <= 0:
		return fmt.Errorf("%w: retry interval must be positive, got %s", ErrInvalidConfig, o.retryInterval)
	}
	return nil
}

// setupKeys 构建 keyring：当前密钥在前，审计密钥在后。
//
// 设计决策: 配置了 BlindSecret 就校验，即使未启用盲化；非法密钥在启动时暴露，
// 而不是等到打开盲化开关时才失败。AuditSecrets 同样无论是否盲化都会校验。
func (g *Generator) setupKeys(cfg Config) error {
	var secret []byte
	if cfg.BlindSecret != "" {
		s, err := ParseBlindSecret(cfg.BlindSecret)
		if err != nil {
			return err
		}
		secret = s
	}

	var keys []BlindKey
	if cfg.Blind {
		key, err := g.activeKey(cfg.BlindKeyID, secret)
		if err != nil {
			return err
		}
		b, err := newBlinder(g.profile, key)
		if err != nil {
			return err
		}
		g.blinder = b
		keys = append(keys, key)
	}
	for _, spec := range cfg.AuditSecrets {
		key, err := ParseKeySpec(spec)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}
	kr, err := NewKeyring(keys...)
	if err != nil {
		return err
	}
	g.keyring = kr
	return nil
}

// activeKey 构建当前盲化密钥。secret 为空时使用进程内随机密钥。
func (g *Generator) activeKey(id uint8, secret []byte) (BlindKey, error) {
	if id == 0 {
		id = 1
	}
	if err := checkTagFits(g.profile, id); err != nil {
		return BlindKey{}, err
	}
	if secret == nil {
		// 盲化 ID 仍然合法且唯一，但重启后无法审计
		s, err := GenerateBlindSecret(g.rand)
		if err != nil {
			return BlindKey{}, err
		}
		secret = s
		g.logger.Info(context.Background(), "blind mode without configured secret, using ephemeral key", xlog.KeyID(id))
	}
	return NewBlindKey(id, secret)
}

// validate 校验生成器实例是否可用。
func (g *Generator) validate() error {
	if g == nil || g.seq == nil {
		return ErrNilGenerator
	}
	return nil
}

// Generate 生成新的 ID。prefix 为空时不带前缀；非空时必须满足 ^[a-z][a-z0-9]{0,7}$，
// 结果形如 "usr_0Fq3...".
//
// 可能的错误：
//   - ErrClockRegression：时钟回拨超出容忍值或等待超时
//   - ErrInvalidPrefix：prefix 参数不合法（前缀按调用传入，不属于配置，因此不在 New 中检查）
//   - ErrTimeOverflow：时间戳超出 profile 的时间戳位宽
//   - 随机源读取错误
func (g *Generator) Generate(prefix string) (id string, err error) {
	if err := g.validate(); err != nil {
		return "", err
	}
	if prefix != "" && !ValidPrefix(prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	_, span := xmetrics.Start(context.Background(), g.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opGenerate,
		Attrs: []xmetrics.Attr{
			xmetrics.Profile(g.profile.Name()),
			xmetrics.Blind(g.Blind()),
		},
	})
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	// 随机位在锁外读取
	rnd := make([]byte, randomBytes(g.profile))
	if _, err := io.ReadFull(g.rand, rnd); err != nil {
		return "", fmt.Errorf("xhid: read randomness: %w", err)
	}

	ms, seq, err := g.seq.next()
	if err != nil {
		return "", err
	}

	raw := newRawID(g.profile)
	raw.setTimestamp(ms)
	raw.setNode(g.node.Value())
	raw.setSequence(seq)
	raw.setRandom(rnd)
	raw.seal()
	if g.blinder != nil {
		raw = g.blinder.blind(raw)
	}

	encoded := Encode(raw)
	if prefix == "" {
		return encoded, nil
	}
	return prefix + string(PrefixSeparator) + encoded, nil
}

// MustGenerate 与 Generate 相同，失败时 panic。适用于明确接受 crash-fast 的场景。
func (g *Generator) MustGenerate(prefix string) string {
	id, err := g.Generate(prefix)
	if err != nil {
		panic(err)
	}
	return id
}

// IsValid 按生成器注册表中的全部 profile 做结构校验（含自定义 profile），
// 不需要密钥，从不 panic。
func (g *Generator) IsValid(id string) bool {
	if g == nil || g.profile.IsZero() {
		return false
	}
	profiles := []Profile{g.profile}
	if g.registry != nil {
		profiles = g.registry.Profiles()
	}
	return Validate(id, profiles...) == nil
}

// Profile 返回 profile 名称。
func (g *Generator) Profile() string { return g.profile.Name() }

// Node 返回节点标识。
func (g *Generator) Node() string { return string(g.node) }

// NodeDerived 报告节点是否为自动推导。
func (g *Generator) NodeDerived() bool { return g.nodeDerived }

// Blind 报告是否为盲化模式。
func (g *Generator) Blind() bool { return g.blinder != nil }

// KeyID 返回当前盲化密钥编号，非盲化模式返回 0。
func (g *Generator) KeyID() uint8 {
	if g.blinder == nil {
		return 0
	}
	return g.blinder.key.id
}

// Registry 返回生成器使用的 profile 注册表。
func (g *Generator) Registry() *Registry { return g.registry }

// recordWait 记录时钟等待的日志与观测。
func (g *Generator) recordWait(reason string, waited time.Duration, err error) {
	ctx := context.Background()
	if err != nil {
		g.logger.Warn(ctx, "clock wait exceeded limit", xlog.Reason(reason), xlog.Duration(waited), xlog.Err(err))
	} else if reason == waitRegression {
		g.logger.Warn(ctx, "clock moved backwards, waited for catch-up", xlog.Reason(reason), xlog.Duration(waited))
	}
	_, span := xmetrics.Start(ctx, g.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: opClockWait,
		Attrs:     []xmetrics.Attr{xmetrics.Reason(reason)},
	})
	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Waited(waited)}})
}
