package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/gobsr/pkg/bsr"
	"go.uber.org/zap"
)

// Recorder drains a device into a BSR writer.
type Recorder struct {
	dev    Device
	w      *bsr.Writer
	logger *zap.Logger

	// Progress, when set, is called every ProgressEvery frames with the
	// number of frames written so far.
	Progress      func(frames int64)
	ProgressEvery int64
}

// NewRecorder returns a recorder writing frames of dev to w.
func NewRecorder(dev Device, w *bsr.Writer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.L()
	}
	return &Recorder{dev: dev, w: w, logger: logger, ProgressEvery: 100000}
}

// Record writes frames until limit frames are written (limit <= 0 means no
// limit), the device stops or ctx is done. The writer is flushed but not
// closed. A cancelled context is a normal stop and returns no error.
func (r *Recorder) Record(ctx context.Context, limit int64) (int64, error) {
	if r.w.Channels() != r.dev.Channels() {
		return 0, fmt.Errorf("%w: device has %d channels, writer expects %d", bsr.ErrRange, r.dev.Channels(), r.w.Channels())
	}

	start := time.Now()
	var n int64
	frames := r.dev.Frames()

	defer func() {
		r.logger.Info("[capture] recording stopped",
			zap.Int64("frames", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

loop:
	for limit <= 0 || n < limit {
		select {
		case <-ctx.Done():
			break loop
		case frame, ok := <-frames:
			if !ok {
				break loop
			}
			if err := r.w.WriteFrame(frame); err != nil {
				return n, err
			}
			n++
			if r.Progress != nil && r.ProgressEvery > 0 && n%r.ProgressEvery == 0 {
				r.Progress(n)
			}
		}
	}

	if err := r.w.Flush(); err != nil {
		return n, err
	}
	return n, nil
}
