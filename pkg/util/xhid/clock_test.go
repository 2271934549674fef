package xhid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestSequencer 使用 standard profile 与给定时钟创建 sequencer
func newTestSequencer(c Clock, mutate ...func(*options)) *sequencer {
	return newTestSequencerFor(builtinProfiles[1], c, mutate...)
}

func newTestSequencerFor(p Profile, c Clock, mutate ...func(*options)) *sequencer {
	o := defaultOptions()
	o.clock = c
	o.retryInterval = 10 * time.Microsecond
	for _, m := range mutate {
		m(o)
	}
	return newSequencer(p, o)
}

func tinySeqProfile(t *testing.T, seqBits int) Profile {
	t.Helper()
	// 12 字符预算 71 位
	p, err := NewRegistry().Register("tiny", Layout{
		Length: 12, TimestampBits: 41, SequenceBits: seqBits, RandomBits: 6 - seqBits, ChecksumBits: 12,
	})
	require.NoError(t, err)
	return p
}

func TestSequencer_SameMillisecondIncrements(t *testing.T) {
	s := newTestSequencer(fixedClock{testEpoch})
	for i := range 100 {
		ts, seq, err := s.next()
		require.NoError(t, err)
		assert.EqualValues(t, testEpoch.UnixMilli(), ts)
		assert.EqualValues(t, i, seq)
	}
}

func TestSequencer_NewMillisecondResets(t *testing.T) {
	c := &scriptedClock{times: []time.Time{ms(0), ms(0), ms(time.Millisecond)}}
	s := newTestSequencer(c)

	_, seq, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, 0, seq)
	_, seq, err = s.next()
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq)
	ts, seq, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, 0, seq)
	assert.EqualValues(t, ms(time.Millisecond).UnixMilli(), ts)
}

func TestSequencer_ExhaustionWaitsForNextMillisecond(t *testing.T) {
	p := tinySeqProfile(t, 2) // 每毫秒 4 个
	c := &scriptedClock{times: []time.Time{ms(0), ms(0), ms(0), ms(0), ms(0), ms(0), ms(time.Millisecond)}}

	var reasons []string
	s := newTestSequencerFor(p, c)
	s.onWait = func(reason string, _ time.Duration, err error) {
		assert.NoError(t, err)
		reasons = append(reasons, reason)
	}

	for i := range 4 {
		_, seq, err := s.next()
		require.NoError(t, err)
		assert.EqualValues(t, i, seq)
	}
	ts, seq, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, 0, seq)
	assert.EqualValues(t, ms(time.Millisecond).UnixMilli(), ts)
	assert.Equal(t, []string{waitExhausted}, reasons)
}

func TestSequencer_ExhaustionTimesOut(t *testing.T) {
	p := tinySeqProfile(t, 1)
	s := newTestSequencerFor(p, fixedClock{testEpoch}, func(o *options) { o.maxWait = 0 })

	for range 2 {
		_, _, err := s.next()
		require.NoError(t, err)
	}
	_, _, err := s.next()
	assert.ErrorIs(t, err, ErrClockRegression)
}

func TestSequencer_NoSequenceBits(t *testing.T) {
	p := tinySeqProfile(t, 0)
	s := newTestSequencerFor(p, fixedClock{testEpoch}, func(o *options) { o.maxWait = 0 })
	for range 10 {
		_, seq, err := s.next()
		require.NoError(t, err)
		assert.EqualValues(t, 0, seq)
	}
}

func TestSequencer_RegressionWithinTolerance(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockClock(ctrl)
	gomock.InOrder(
		c.EXPECT().Now().Return(ms(10*time.Millisecond)),
		c.EXPECT().Now().Return(ms(8*time.Millisecond)),  // 回拨 2ms
		c.EXPECT().Now().Return(ms(9*time.Millisecond)),  // 等待中
		c.EXPECT().Now().Return(ms(10*time.Millisecond)), // 追上
	)

	var waits []string
	s := newTestSequencer(c)
	s.onWait = func(reason string, _ time.Duration, err error) {
		assert.NoError(t, err)
		waits = append(waits, reason)
	}

	_, seq, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, 0, seq)

	ts, seq, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, ms(10*time.Millisecond).UnixMilli(), ts)
	assert.EqualValues(t, 1, seq, "still in the same millisecond")
	assert.Equal(t, []string{waitRegression}, waits)
}

func TestSequencer_RegressionBeyondTolerance(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := NewMockClock(ctrl)
	gomock.InOrder(
		c.EXPECT().Now().Return(ms(time.Second)),
		c.EXPECT().Now().Return(ms(0)),
	)
	s := newTestSequencer(c)

	_, _, err := s.next()
	require.NoError(t, err)
	_, _, err = s.next()
	assert.ErrorIs(t, err, ErrClockRegression)
}

func TestSequencer_RegressionWaitExceeded(t *testing.T) {
	c := &scriptedClock{times: []time.Time{ms(100 * time.Millisecond), ms(50 * time.Millisecond)}}
	var gotErr error
	s := newTestSequencer(c, func(o *options) { o.maxWait = 200 * time.Microsecond })
	s.onWait = func(_ string, _ time.Duration, err error) { gotErr = err }

	_, _, err := s.next()
	require.NoError(t, err)
	_, _, err = s.next()
	assert.ErrorIs(t, err, ErrClockRegression)
	assert.ErrorIs(t, gotErr, ErrClockRegression)

	// 时钟恢复后继续工作
	c.mu.Lock()
	c.times = append(c.times, ms(101*time.Millisecond))
	c.mu.Unlock()
	ts, _, err := s.next()
	require.NoError(t, err)
	assert.EqualValues(t, ms(101*time.Millisecond).UnixMilli(), ts)
}

func TestSequencer_TimeOverflow(t *testing.T) {
	p := builtinProfiles[0] // compact: 42 位时间戳
	s := newTestSequencerFor(p, fixedClock{time.UnixMilli(1 << 42)})
	_, _, err := s.next()
	assert.ErrorIs(t, err, ErrTimeOverflow)

	s = newTestSequencerFor(p, fixedClock{time.UnixMilli(-1)})
	_, _, err = s.next()
	assert.ErrorIs(t, err, ErrTimeOverflow)

	s = newTestSequencerFor(p, fixedClock{time.UnixMilli(1<<42 - 1)})
	_, _, err = s.next()
	assert.NoError(t, err)
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := SystemClock().Now()
	assert.False(t, now.Before(before))
}
