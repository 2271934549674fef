package xhid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
)

//go:generate mockgen -source=clock.go -destination=mock_clock_test.go -package=xhid

// Clock 时间来源，测试中可替换。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回基于 time.Now 的时钟。
func SystemClock() Clock { return systemClock{} }

// 时钟回拨与等待的默认值。
const (
	// DefaultClockTolerance 可容忍的最大回拨幅度，超过则立即返回 ErrClockRegression。
	DefaultClockTolerance = 500 * time.Millisecond

	// DefaultMaxWait 单次生成等待时钟推进的最长时间。
	DefaultMaxWait = 500 * time.Millisecond

	// DefaultRetryInterval 等待期间轮询时钟的间隔。
	DefaultRetryInterval = 100 * time.Microsecond
)

// 等待原因，用于日志与指标。
const (
	waitRegression = "regression"
	waitExhausted  = "sequence_exhausted"
)

// errClockBehind 等待循环内部使用，表示时钟尚未到达目标毫秒。
var errClockBehind = errors.New("xhid: clock behind target")

// sequencer 产生单调的 (毫秒, 序列号) 对。
//
// 规则：
//   - 同一毫秒内序列号递增；超过 2^SequenceBits-1 时等待下一毫秒并归零
//   - SequenceBits 为 0 时序列号恒为 0，同毫秒唯一性完全依赖随机位
//   - 时钟回拨不超过 tolerance 时等待追上；超过则返回 ErrClockRegression
//   - 等待总时长受 maxWait 约束，超时返回 ErrClockRegression
type sequencer struct {
	mu sync.Mutex

	clock     Clock
	seqMax    uint64
	tsMax     uint64
	tolerance time.Duration
	maxWait   time.Duration
	interval  time.Duration
	// onWait 在发生等待后回调（持锁调用，需保持轻量）
	onWait func(reason string, waited time.Duration, err error)

	lastMs  int64
	seq     uint64
	started bool
}

func newSequencer(p Profile, o *options) *sequencer {
	return &sequencer{
		clock:     o.clock,
		seqMax:    mask(p.layout.SequenceBits),
		tsMax:     mask(p.layout.TimestampBits),
		tolerance: o.clockTolerance,
		maxWait:   o.maxWait,
		interval:  o.retryInterval,
	}
}

// next 返回下一个 (毫秒时间戳, 序列号)。
func (s *sequencer) next() (uint64, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UnixMilli()

	if s.started && now < s.lastMs {
		back := time.Duration(s.lastMs-now) * time.Millisecond
		if back > s.tolerance {
			return 0, 0, fmt.Errorf("%w: clock moved back %s, tolerance %s", ErrClockRegression, back, s.tolerance)
		}
		var err error
		if now, err = s.waitUntil(s.lastMs, waitRegression); err != nil {
			return 0, 0, err
		}
	}

	switch {
	case !s.started || now > s.lastMs:
		s.seq = 0
	case s.seqMax == 0:
		// 无序列号字段，同毫秒内不计数
	case s.seq < s.seqMax:
		s.seq++
	default:
		var err error
		if now, err = s.waitUntil(s.lastMs+1, waitExhausted); err != nil {
			return 0, 0, err
		}
		s.seq = 0
	}

	if now < 0 || uint64(now) > s.tsMax {
		return 0, 0, fmt.Errorf("%w: %d ms does not fit in timestamp field", ErrTimeOverflow, now)
	}

	s.lastMs = now
	s.started = true
	return uint64(now), s.seq, nil
}

// waitUntil 轮询时钟直到不早于 target 毫秒。
//
// 设计决策: 等待在持锁状态下进行，期间其他调用方阻塞；
// 这保证了序列的单调性，代价是回拨期间吞吐暂停（上限 maxWait）。
func (s *sequencer) waitUntil(target int64, reason string) (int64, error) {
	start := time.Now()
	attempts := uint(s.maxWait/s.interval) + 1

	var now int64
	err := retry.New(
		retry.Attempts(attempts),
		retry.Delay(s.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		now = s.clock.Now().UnixMilli()
		if now < target {
			return errClockBehind
		}
		return nil
	})

	if err != nil {
		err = fmt.Errorf("%w: clock did not reach %d ms within %s (%s)", ErrClockRegression, target, s.maxWait, reason)
	}
	if s.onWait != nil {
		s.onWait(reason, time.Since(start), err)
	}
	if err != nil {
		return 0, err
	}
	return now, nil
}
