package sampler

import (
	"context"
	"time"

	"github.com/roach88/blinkwatch/internal/record"
)

// Frame is one captured image.
type Frame struct {
	Seq        int64
	Data       []byte
	CapturedAt time.Time // Zero means "use the loop clock"
}

// Empty reports whether the frame carries no data. An empty frame ends the
// stream.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Rect is a detected eye bounding box. Only the number of rects matters to
// the sampler.
type Rect struct {
	X, Y, W, H int
}

// FrameSource produces frames. Next blocks until a frame is available and
// signals end of stream with io.EOF or an empty Frame.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Detector finds eyes in a frame.
type Detector interface {
	DetectEyes(ctx context.Context, f Frame) ([]Rect, error)
}

// IntervalSink accepts closed windows. *store.Store satisfies it.
type IntervalSink interface {
	InsertInterval(ctx context.Context, entry record.IntervalEntry) error
}

// Clock supplies the wall time for frames that carry no capture time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
