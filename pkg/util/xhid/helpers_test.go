package xhid

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xhid/pkg/observability/xlog"
)

// testEpoch 测试使用的固定时间点（2024-01-01T00:00:00Z）
var testEpoch = time.UnixMilli(1704067200000)

// testSecret 32 字节测试密钥的 base64
const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

// testSecret2 另一把 32 字节测试密钥
const testSecret2 = "ZmVkY2JhOTg3NjU0MzIxMGZlZGNiYTk4NzY1NDMyMTA="

// fixedClock 始终返回同一时间
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// scriptedClock 依次返回预设时间，用完后停在最后一个
type scriptedClock struct {
	mu    sync.Mutex
	times []time.Time
	calls int
}

func (c *scriptedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := min(c.calls, len(c.times)-1)
	c.calls++
	return c.times[i]
}

// byteReader 无限输出同一字节，用于确定性随机源
type byteReader byte

func (b byteReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}

// newTestGenerator 创建丢弃日志的生成器
func newTestGenerator(t *testing.T, cfg Config, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{WithLogger(xlog.Discard())}, opts...)
	g, err := New(cfg, opts...)
	require.NoError(t, err)
	return g
}

func ms(d time.Duration) time.Time { return testEpoch.Add(d) }
