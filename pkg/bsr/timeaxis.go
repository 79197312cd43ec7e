package bsr

import (
	"fmt"
	"math"
)

// TimeAxis is the time in seconds of each frame, index/sampleRate. It is
// never materialized; values are computed per index or per slice.
type TimeAxis struct {
	rec *Recording
}

// Len returns the number of frames.
func (t *TimeAxis) Len() int {
	return t.rec.frames
}

// At returns the time of frame i in seconds.
func (t *TimeAxis) At(i int) (float64, error) {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()

	if t.rec.closed {
		return 0, ErrClosed
	}
	if i < 0 || i >= t.rec.frames {
		return 0, fmt.Errorf("%w: frame %d not in [0, %d)", ErrRange, i, t.rec.frames)
	}
	return float64(i) / float64(t.rec.sampleRate), nil
}

// Slice computes the times of frames [lo, hi) into dst, reusing its capacity.
func (t *TimeAxis) Slice(dst []float64, lo, hi int) ([]float64, error) {
	t.rec.mu.RLock()
	defer t.rec.mu.RUnlock()

	if t.rec.closed {
		return dst[:0], ErrClosed
	}
	if err := checkSpan(lo, hi, t.rec.frames); err != nil {
		return dst[:0], err
	}

	n := hi - lo
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	rate := float64(t.rec.sampleRate)
	for i := range dst {
		dst[i] = float64(lo+i) / rate
	}
	return dst, nil
}

// Index converts a time in seconds to the nearest frame index, clamped to
// [0, Len()].
func (t *TimeAxis) Index(sec float64) int {
	rate := float64(t.rec.SampleRate())
	idx := math.Round(sec * rate)
	switch {
	case math.IsNaN(idx) || idx < 0:
		return 0
	case idx > float64(t.rec.frames):
		return t.rec.frames
	}
	return int(idx)
}
