package sampler

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blinkwatch/internal/alert"
	"github.com/roach88/blinkwatch/internal/store"
	"github.com/roach88/blinkwatch/internal/testutil"
)

// sliceSource replays frames whose Data[0] is the eye count.
type sliceSource struct {
	frames  []Frame
	pos     int
	openErr error
	failAt  int // 1-based Next call that fails; 0 never
	useEOF  bool
	closed  bool
	onNext  func(n int)
}

func newSliceSource(start time.Time, interval time.Duration, eyes ...int) *sliceSource {
	frames := make([]Frame, len(eyes))
	for i, e := range eyes {
		frames[i] = Frame{
			Seq:        int64(i + 1),
			Data:       []byte{byte(e)},
			CapturedAt: start.Add(time.Duration(i) * interval),
		}
	}
	return &sliceSource{frames: frames, useEOF: true}
}

func (s *sliceSource) Open(context.Context) error { return s.openErr }

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.onNext != nil {
		s.onNext(s.pos + 1)
	}
	if s.failAt > 0 && s.pos+1 == s.failAt {
		return Frame{}, errors.New("camera unplugged")
	}
	if s.pos >= len(s.frames) {
		if s.useEOF {
			return Frame{}, io.EOF
		}
		return Frame{}, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// byteDetector reports Data[0] eyes and fails on the configured frame.
type byteDetector struct {
	failSeq int64
}

func (d byteDetector) DetectEyes(_ context.Context, f Frame) ([]Rect, error) {
	if d.failSeq > 0 && f.Seq == d.failSeq {
		return nil, errors.New("model crashed")
	}
	return make([]Rect, int(f.Data[0])), nil
}

func repeatPattern(n int, pattern ...int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func newTestLoop(src FrameSource, det Detector, sink IntervalSink, opts ...LoopOption) *Loop {
	opts = append([]LoopOption{WithIDGenerator(testutil.NewFixedIDGenerator("session-1"))}, opts...)
	return NewLoop(src, det, sink, opts...)
}

func TestLoop_RunsToExhaustion(t *testing.T) {
	src := newSliceSource(t0, 150*time.Millisecond, repeatPattern(150, 2, 0)...)
	sink := testutil.NewRecordingSink()

	cfg := DefaultConfig()
	cfg.Window = 900 * time.Millisecond
	loop := newTestLoop(src, byteDetector{}, sink, WithConfig(cfg))

	require.NoError(t, loop.Run(context.Background()))
	assert.True(t, src.closed)

	st := loop.Status()
	assert.Equal(t, "session-1", st.SessionID)
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, int64(150), st.Frames)
	assert.Equal(t, 75, st.SessionBlinks)

	// 74 present frames after the first at 150ms each; six close a window.
	entries := sink.Entries()
	require.Len(t, entries, 12)
	assert.Equal(t, 12, st.WindowsEmitted)

	total := st.WindowBlinks
	for i, e := range entries {
		total += e.BlinkCount
		if i > 0 {
			assert.Equal(t, entries[i-1].EndTime, e.StartTime)
		}
	}
	assert.Equal(t, 75, total)
}

func TestLoop_EmptyFrameEndsStream(t *testing.T) {
	src := newSliceSource(t0, 100*time.Millisecond, 2, 2, 2)
	src.useEOF = false

	loop := newTestLoop(src, byteDetector{}, testutil.NewRecordingSink())

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, int64(3), loop.Status().Frames)
}

func TestLoop_EndToEndWithStore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithBatchSize(5))
	require.NoError(t, err)
	defer s.Close()

	src := newSliceSource(t0, 150*time.Millisecond, repeatPattern(150, 2, 2, 0, 0)...)
	cfg := DefaultConfig()
	cfg.Window = 900 * time.Millisecond
	loop := newTestLoop(src, byteDetector{}, s, WithConfig(cfg))

	require.NoError(t, loop.Run(context.Background()))

	ctx := context.Background()
	require.NoError(t, s.Flush(ctx))

	// Present frames: every frame whose index mod 4 is 0 or 1, except the
	// first. 75 of them at 150ms; six close a 900ms window.
	st := loop.Status()
	assert.Equal(t, 37, st.SessionBlinks)
	assert.Equal(t, 12, st.WindowsEmitted)

	averages, err := s.CalculateAvg(ctx)
	require.NoError(t, err)
	remaining, err := s.CountIntervals(ctx)
	require.NoError(t, err)

	assert.Len(t, averages, 2)
	assert.Equal(t, 2, remaining)
	for _, avg := range averages {
		assert.Equal(t, 5, avg.SampleCount)
	}
}

func TestLoop_OpenFailure(t *testing.T) {
	src := newSliceSource(t0, time.Millisecond, 2)
	src.openErr = errors.New("no camera")

	loop := newTestLoop(src, byteDetector{}, testutil.NewRecordingSink())
	err := loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, IsAcquisitionError(err))
	assert.False(t, IsDetectorError(err))
	assert.Contains(t, err.Error(), "no camera")
	assert.Equal(t, StateStopped, loop.Status().State)
	assert.Zero(t, loop.Status().Frames)
}

func TestLoop_MidStreamAcquisitionFailure(t *testing.T) {
	src := newSliceSource(t0, 100*time.Millisecond, 2, 2, 2, 2)
	src.failAt = 3

	loop := newTestLoop(src, byteDetector{}, testutil.NewRecordingSink())
	err := loop.Run(context.Background())

	var se *SessionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeAcquisitionFailed, se.Code)
	assert.Equal(t, int64(3), se.Seq)
	assert.True(t, src.closed)
}

func TestLoop_DetectorFailureIsFatal(t *testing.T) {
	src := newSliceSource(t0, 100*time.Millisecond, 2, 0, 2, 0, 2)

	loop := newTestLoop(src, byteDetector{failSeq: 4}, testutil.NewRecordingSink())
	err := loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, IsDetectorError(err))
	assert.Equal(t, int64(3), loop.Status().Frames)
	assert.Equal(t, StateStopped, loop.Status().State)
}

func TestLoop_InsertFailureContinues(t *testing.T) {
	src := newSliceSource(t0, 100*time.Millisecond, repeatPattern(31, 2)...)
	sink := testutil.NewRecordingSink()
	sink.FailWith(store.ErrUnavailable)

	cfg := DefaultConfig()
	cfg.Window = time.Second
	loop := newTestLoop(src, byteDetector{}, sink, WithConfig(cfg))

	require.NoError(t, loop.Run(context.Background()))

	st := loop.Status()
	assert.Equal(t, int64(31), st.Frames)
	assert.Equal(t, 3, st.WindowsFailed)
	assert.Zero(t, st.WindowsEmitted)
	assert.Equal(t, 3, sink.Calls())
}

func TestLoop_CancellationStopsBeforeNextFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newSliceSource(t0, 100*time.Millisecond, repeatPattern(100, 2)...)
	src.onNext = func(n int) {
		if n == 10 {
			cancel()
		}
	}

	loop := newTestLoop(src, byteDetector{}, testutil.NewRecordingSink())
	err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsAcquisitionError(err))
	// Frame 10 was already read when cancel fired; it still completes.
	assert.Equal(t, int64(10), loop.Status().Frames)
	assert.Equal(t, StateStopped, loop.Status().State)
}

func TestLoop_UsesClockForUnstampedFrames(t *testing.T) {
	clock := testutil.NewFakeClock(t0)
	src := newSliceSource(t0, 0, 2, 2, 2)
	for i := range src.frames {
		src.frames[i].CapturedAt = time.Time{}
	}
	src.onNext = func(n int) {
		if n > 1 {
			clock.Advance(400 * time.Millisecond)
		}
	}
	sink := testutil.NewRecordingSink()

	cfg := DefaultConfig()
	cfg.Window = 800 * time.Millisecond
	loop := newTestLoop(src, byteDetector{}, sink, WithConfig(cfg), WithClock(clock))

	require.NoError(t, loop.Run(context.Background()))

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, t0, entries[0].StartTime)
	assert.Equal(t, t0.Add(800*time.Millisecond), entries[0].EndTime)
}

func TestLoop_RaisesRateAlerts(t *testing.T) {
	// No blinks for 40 seconds: critical from 31s, alerts 5s apart.
	src := newSliceSource(t0, time.Second, repeatPattern(40, 2)...)

	var (
		mu     sync.Mutex
		alerts []alert.Alert
	)
	notifier := alert.NotifierFunc(func(_ context.Context, a alert.Alert) error {
		mu.Lock()
		defer mu.Unlock()
		alerts = append(alerts, a)
		return nil
	})

	loop := newTestLoop(src, byteDetector{}, testutil.NewRecordingSink(), WithNotifier(notifier))
	require.NoError(t, loop.Run(context.Background()))

	require.Len(t, alerts, 2)
	assert.Equal(t, t0.Add(31*time.Second), alerts[0].At)
	assert.Equal(t, t0.Add(36*time.Second), alerts[1].At)
	assert.Equal(t, alert.StatusCritical, alerts[0].Status)

	st := loop.Status()
	assert.Equal(t, alert.StatusCritical, st.RateStatus)
	require.NotNil(t, st.LastAlert)
	assert.Equal(t, alerts[1].At, st.LastAlert.At)
}

func TestLoop_StatusBeforeRun(t *testing.T) {
	loop := newTestLoop(newSliceSource(t0, time.Millisecond), byteDetector{}, testutil.NewRecordingSink())

	st := loop.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, alert.StatusWarmup, st.RateStatus)
}

func TestSessionError_Format(t *testing.T) {
	err := detectorError(7, errors.New("boom"))
	assert.Equal(t, "DETECTOR_FAILED: eye detection failed (frame=7): boom", err.Error())

	wrapped := errors.Join(errors.New("outer"), err)
	assert.True(t, IsDetectorError(wrapped))
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
