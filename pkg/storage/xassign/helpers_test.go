package xassign

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xhid/pkg/observability/xlog"
	"github.com/omeyang/xhid/pkg/observability/xmetrics"
)

var errBoom = errors.New("boom")

// counterGen 按调用顺序生成 "prefix_N" 形式的 ID，并记录收到的前缀。
type counterGen struct {
	mu       sync.Mutex
	n        int
	prefixes []string
	err      error
}

func (g *counterGen) Generate(prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.n++
	g.prefixes = append(g.prefixes, prefix)
	id := "id" + strconv.Itoa(g.n)
	if prefix != "" {
		id = prefix + "_" + id
	}
	return id, nil
}

func (g *counterGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func newTestAssigner(t *testing.T, gen IDGenerator, opts ...Option) *Assigner {
	t.Helper()
	a, err := New(gen, append([]Option{WithLogger(xlog.Discard())}, opts...)...)
	require.NoError(t, err)
	return a
}

// recordingObserver 记录跨度结果
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

func attrValue(attrs []xmetrics.Attr, key string) any {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return nil
}
