package xhid

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

func TestGenerator_Lengths(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		g := newTestGenerator(t, Config{Profile: p.Name(), Node: "A1"})
		assert.Equal(t, p.Name(), g.Profile())
		for range 50 {
			id, err := g.Generate("")
			require.NoError(t, err)
			assert.Len(t, id, p.Length())
			assert.True(t, g.IsValid(id))
			assert.True(t, IsValid(id))
		}
	}
}

func TestGenerator_DefaultProfile(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1"})
	assert.Equal(t, ProfileStandard, g.Profile())
	assert.Equal(t, "A1", g.Node())
	assert.False(t, g.NodeDerived())
	assert.False(t, g.Blind())
	assert.EqualValues(t, 0, g.KeyID())
	assert.NotNil(t, g.Registry())
}

func TestGenerator_Unique(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1"})
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		id := g.MustGenerate("")
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}

func TestGenerator_Monotonic(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1"})
	ids := make([]string, 2000)
	for i := range ids {
		ids[i] = g.MustGenerate("")
	}
	assert.True(t, sort.StringsAreSorted(ids))
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i])
	}
}

func TestGenerator_Prefix(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1"})
	id, err := g.Generate("usr")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "usr_"))
	assert.Len(t, id, len("usr_")+20)
	assert.True(t, g.IsValid(id))

	c, err := g.Inspect(id)
	require.NoError(t, err)
	assert.Equal(t, "usr", c.Prefix)

	for _, bad := range []string{"Usr", "1x", "toolongpfx", "us_r"} {
		_, err := g.Generate(bad)
		assert.ErrorIs(t, err, ErrInvalidPrefix, bad)
	}
}

func TestGenerator_Inspect(t *testing.T) {
	clock := fixedClock{testEpoch}
	g := newTestGenerator(t, Config{Node: "Qz"}, WithClock(clock), WithRandReader(byteReader(0xFF)))

	id1 := g.MustGenerate("")
	id2 := g.MustGenerate("")

	c, err := g.Inspect(id2)
	require.NoError(t, err)
	assert.Equal(t, id2, c.ID)
	assert.Equal(t, ProfileStandard, c.Profile)
	assert.EqualValues(t, testEpoch.UnixMilli(), c.Timestamp)
	assert.True(t, c.Time.Equal(testEpoch))
	assert.Equal(t, "Qz", c.Node)
	assert.EqualValues(t, 1, c.Sequence)
	assert.EqualValues(t, 0, c.KeyTag)
	assert.False(t, c.Blind)
	assert.Equal(t, "7fffffffff", c.Random, "39 random bits all set")

	c1, err := Decompose(id1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, c1.Sequence)

	_, err = g.Inspect("garbage")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestGenerator_RandomSourceError(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1"}, WithRandReader(strings.NewReader("")))
	_, err := g.Generate("")
	assert.Error(t, err)
}

func TestGenerator_ClockErrors(t *testing.T) {
	c := &scriptedClock{times: []time.Time{ms(time.Second), ms(0)}}
	g := newTestGenerator(t, Config{Node: "A1"}, WithClock(c))
	_, err := g.Generate("")
	require.NoError(t, err)
	_, err = g.Generate("")
	assert.ErrorIs(t, err, ErrClockRegression)

	g = newTestGenerator(t, Config{Profile: ProfileCompact, Node: "A1"}, WithClock(fixedClock{time.UnixMilli(1 << 42)}))
	_, err = g.Generate("")
	assert.ErrorIs(t, err, ErrTimeOverflow)
}

// =============================================================================
// 构造错误
// =============================================================================

func TestNew_Errors(t *testing.T) {
	shortSecret := base64.StdEncoding.EncodeToString(make([]byte, 16))
	tests := []struct {
		name string
		cfg  Config
		opts []Option
		want error
	}{
		{"unknown profile", Config{Profile: "huge", Node: "A1"}, nil, ErrUnknownProfile},
		{"bad node", Config{Node: "A"}, nil, ErrInvalidNode},
		{"require explicit node", Config{RequireExplicitNode: true}, nil, ErrNodeResolution},
		{"short secret", Config{Node: "A1", Blind: true, BlindSecret: shortSecret}, nil, ErrInvalidSecret},
		{"bad secret", Config{Node: "A1", Blind: true, BlindSecret: "%%%"}, nil, ErrInvalidSecret},
		{"short secret without blind", Config{Node: "A1", BlindSecret: shortSecret}, nil, ErrInvalidSecret},
		{"bad secret without blind", Config{Node: "A1", BlindSecret: "%%%not-base64"}, nil, ErrInvalidSecret},
		{"key id too large", Config{Node: "A1", Blind: true, BlindSecret: testSecret, BlindKeyID: 16}, nil, ErrInvalidSecret},
		{"bad audit secret", Config{Node: "A1", AuditSecrets: []string{"1:" + shortSecret}}, nil, ErrInvalidSecret},
		{"audit id collides", Config{Node: "A1", Blind: true, BlindSecret: testSecret, AuditSecrets: []string{"1:" + testSecret2}}, nil, ErrInvalidSecret},
		{"negative tolerance", Config{Node: "A1"}, []Option{WithClockTolerance(-time.Millisecond)}, ErrInvalidConfig},
		{"negative wait", Config{Node: "A1"}, []Option{WithMaxWait(-time.Millisecond)}, ErrInvalidConfig},
		{"zero interval", Config{Node: "A1"}, []Option{WithRetryInterval(0)}, ErrInvalidConfig},
		{"nil clock", Config{Node: "A1"}, []Option{WithClock(nil)}, ErrInvalidConfig},
		{"nil rand", Config{Node: "A1"}, []Option{WithRandReader(nil)}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg, tt.opts...)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_ValidSecretWithoutBlind(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1", BlindSecret: testSecret})
	assert.False(t, g.Blind())
	assert.Zero(t, g.KeyID())
}

func TestNew_DerivedNode(t *testing.T) {
	stubHost(t, "pod-abc", nil, 99)
	g := newTestGenerator(t, Config{}, nil, WithRegistry(nil))
	assert.True(t, g.NodeDerived())
	want, err := DeriveNode()
	require.NoError(t, err)
	assert.Equal(t, string(want), g.Node())
}

func TestNilGenerator(t *testing.T) {
	var g *Generator
	_, err := g.Generate("")
	assert.ErrorIs(t, err, ErrNilGenerator)
	assert.False(t, g.IsValid("anything"))
	assert.Panics(t, func() { g.MustGenerate("") })
	_, err = g.Inspect("x")
	assert.ErrorIs(t, err, ErrNilGenerator)
	_, err = g.Audit("x")
	assert.ErrorIs(t, err, ErrNilGenerator)

	_, err = (&Generator{}).Generate("")
	assert.ErrorIs(t, err, ErrNilGenerator)
}

// =============================================================================
// 盲化
// =============================================================================

func TestGenerator_Blind(t *testing.T) {
	clock := fixedClock{testEpoch}
	plain := newTestGenerator(t, Config{Node: "A1"}, WithClock(clock), WithRandReader(byteReader(1)))
	blind := newTestGenerator(t, Config{Node: "A1", Blind: true, BlindSecret: testSecret, BlindKeyID: 3},
		WithClock(clock), WithRandReader(byteReader(1)))
	assert.True(t, blind.Blind())
	assert.EqualValues(t, 3, blind.KeyID())

	p := plain.MustGenerate("usr")
	b := blind.MustGenerate("usr")
	assert.NotEqual(t, p, b)
	assert.Len(t, b, len(p))
	assert.True(t, blind.IsValid(b))
	assert.True(t, IsValid(b))

	c, err := Decompose(b)
	require.NoError(t, err)
	assert.True(t, c.Blind)
	assert.EqualValues(t, 3, c.KeyTag)

	// 相同密钥、时钟与随机源得到相同结果
	again := newTestGenerator(t, Config{Node: "A1", Blind: true, BlindSecret: testSecret, BlindKeyID: 3},
		WithClock(clock), WithRandReader(byteReader(1)))
	assert.Equal(t, b, again.MustGenerate("usr"))
}

func TestGenerator_Audit(t *testing.T) {
	clock := fixedClock{testEpoch}
	g := newTestGenerator(t, Config{Node: "K9", Blind: true, BlindSecret: testSecret}, WithClock(clock))
	assert.EqualValues(t, 1, g.KeyID(), "default key id")

	id := g.MustGenerate("ord")
	c, err := g.Audit(id)
	require.NoError(t, err)
	assert.Equal(t, "K9", c.Node)
	assert.EqualValues(t, testEpoch.UnixMilli(), c.Timestamp)
	assert.EqualValues(t, 1, c.KeyTag)
	assert.Equal(t, "ord", c.Prefix)
	assert.True(t, c.Blind)

	// 非盲化 ID
	plain := newTestGenerator(t, Config{Node: "K9"}, WithClock(clock))
	_, err = g.Audit(plain.MustGenerate(""))
	assert.ErrorIs(t, err, ErrNotBlinded)

	// 未配置密钥
	_, err = plain.Audit(id)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestGenerator_KeyRotation(t *testing.T) {
	clock := fixedClock{testEpoch}
	old := newTestGenerator(t, Config{Node: "R1", Blind: true, BlindSecret: testSecret, BlindKeyID: 1}, WithClock(clock))
	oldID := old.MustGenerate("")

	rotated := newTestGenerator(t, Config{
		Node: "R1", Blind: true, BlindSecret: testSecret2, BlindKeyID: 2,
		AuditSecrets: []string{"1:" + testSecret},
	}, WithClock(clock))
	newID := rotated.MustGenerate("")
	assert.NotEqual(t, oldID, newID)

	for _, id := range []string{oldID, newID} {
		c, err := rotated.Audit(id)
		require.NoError(t, err)
		assert.Equal(t, "R1", c.Node)
		assert.EqualValues(t, testEpoch.UnixMilli(), c.Timestamp)
	}

	// 旧生成器不认识新密钥
	_, err := old.Audit(newID)
	assert.ErrorIs(t, err, ErrUnknownKey)

	// 只审计不盲化
	auditor := newTestGenerator(t, Config{Node: "R1", AuditSecrets: []string{"1:" + testSecret, "2:" + testSecret2}})
	assert.False(t, auditor.Blind())
	_, err = auditor.Audit(newID)
	assert.NoError(t, err)
}

func TestGenerator_EphemeralBlindKey(t *testing.T) {
	g := newTestGenerator(t, Config{Node: "A1", Blind: true})
	id := g.MustGenerate("")
	assert.True(t, g.IsValid(id))
	c, err := g.Audit(id)
	require.NoError(t, err)
	assert.Equal(t, "A1", c.Node)
}

func TestGenerator_IsValidAcrossRegistry(t *testing.T) {
	compact := newTestGenerator(t, Config{Profile: "compact", Node: "A1"})
	standard := newTestGenerator(t, Config{Profile: "standard", Node: "A1"})

	id := compact.MustGenerate("usr")
	assert.True(t, standard.IsValid(id))
	assert.True(t, IsValid(id))

	reg := NewRegistry()
	_, err := reg.Register("tiny", Layout{Length: 12, TimestampBits: 41, SequenceBits: 6, ChecksumBits: 12})
	require.NoError(t, err)
	tiny := newTestGenerator(t, Config{Profile: "tiny", Node: "A1"}, WithRegistry(reg))
	withCustom := newTestGenerator(t, Config{Profile: "standard", Node: "A1"}, WithRegistry(reg))

	tid := tiny.MustGenerate("")
	assert.Len(t, tid, 12)
	assert.True(t, withCustom.IsValid(tid))
	assert.False(t, standard.IsValid(tid))
	assert.False(t, IsValid(tid))
}

func TestGenerator_BlindCustomTaglessProfile(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register("untagged", Layout{Length: 20, TimestampBits: 44, SequenceBits: 12, RandomBits: 43, ChecksumBits: 8})
	require.NoError(t, err)

	g := newTestGenerator(t, Config{Profile: "untagged", Node: "T1", Blind: true, BlindSecret: testSecret},
		WithRegistry(reg), WithClock(fixedClock{testEpoch}))
	id := g.MustGenerate("")
	assert.True(t, g.IsValid(id))

	c, err := g.Audit(id)
	require.NoError(t, err)
	assert.Equal(t, "T1", c.Node)
}

// =============================================================================
// 并发与观测
// =============================================================================

func TestGenerator_Concurrent(t *testing.T) {
	g := newTestGenerator(t, Config{Profile: ProfileCompact, Node: "C0"})
	var seen sync.Map
	var eg errgroup.Group
	for range 8 {
		eg.Go(func() error {
			for range 2000 {
				id, err := g.Generate("")
				if err != nil {
					return err
				}
				if _, dup := seen.LoadOrStore(id, struct{}{}); dup {
					return errors.New("duplicate id " + id)
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
}

// recordingObserver 记录开始的操作
type recordingObserver struct {
	mu      sync.Mutex
	ops     []string
	results []xmetrics.Result
}

func (o *recordingObserver) Start(ctx context.Context, opts xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	o.mu.Lock()
	o.ops = append(o.ops, opts.Component+"/"+opts.Operation)
	o.mu.Unlock()
	return ctx, recordingSpan{o}
}

type recordingSpan struct{ o *recordingObserver }

func (s recordingSpan) End(r xmetrics.Result) {
	s.o.mu.Lock()
	s.o.results = append(s.o.results, r)
	s.o.mu.Unlock()
}

func TestGenerator_Observer(t *testing.T) {
	obs := &recordingObserver{}
	c := &scriptedClock{times: []time.Time{ms(2 * time.Millisecond), ms(time.Millisecond), ms(2 * time.Millisecond)}}
	g := newTestGenerator(t, Config{Node: "A1"}, WithObserver(obs), WithClock(c))

	g.MustGenerate("")
	g.MustGenerate("") // 回拨 1ms，等待后成功

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"xhid/generate", "xhid/generate", "xhid/clock_wait"}, obs.ops)
	require.Len(t, obs.results, 3)
	for _, r := range obs.results {
		assert.NoError(t, r.Err)
	}
}

func TestGenerator_OTelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	obs, err := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
	require.NoError(t, err)

	c := &scriptedClock{times: []time.Time{ms(2 * time.Millisecond), ms(time.Millisecond), ms(2 * time.Millisecond)}}
	g := newTestGenerator(t, Config{Node: "A1"}, WithObserver(obs), WithClock(c))
	g.MustGenerate("")
	g.MustGenerate("")
	_, err = g.Generate("Bad")
	require.ErrorIs(t, err, ErrInvalidPrefix)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	var histograms int
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case xmetrics.MetricOperationTotal:
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					op, _ := dp.Attributes.Value(attribute.Key("operation"))
					status, _ := dp.Attributes.Value(attribute.Key("status"))
					counts[op.AsString()+"/"+status.AsString()] += dp.Value
				}
			case xmetrics.MetricOperationDuration:
				histograms += len(m.Data.(metricdata.Histogram[float64]).DataPoints)
			}
		}
	}
	assert.Equal(t, map[string]int64{"generate/ok": 2, "clock_wait/ok": 1}, counts)
	assert.Equal(t, 2, histograms)
}
