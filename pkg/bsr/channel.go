package bsr

import "fmt"

// Channel is a read-only strided projection of one channel of a recording.
// Index i holds the sample taken at time i/sampleRate.
type Channel struct {
	rec *Recording
	idx int
}

// Index returns the channel number within the frame.
func (c *Channel) Index() int {
	return c.idx
}

// Len returns the number of samples, equal to the recording's frame count.
func (c *Channel) Len() int {
	return c.rec.frames
}

// At returns the sample at frame i.
func (c *Channel) At(i int) (int32, error) {
	c.rec.mu.RLock()
	defer c.rec.mu.RUnlock()

	if c.rec.closed {
		return 0, ErrClosed
	}
	if i < 0 || i >= c.rec.frames {
		return 0, fmt.Errorf("%w: frame %d not in [0, %d)", ErrRange, i, c.rec.frames)
	}
	return c.rec.sample(i, c.idx), nil
}

// Slice decodes frames [lo, hi) into dst and returns it. dst is reused if it
// has sufficient capacity, otherwise a new slice is allocated.
func (c *Channel) Slice(dst []int32, lo, hi int) ([]int32, error) {
	c.rec.mu.RLock()
	defer c.rec.mu.RUnlock()

	if c.rec.closed {
		return dst[:0], ErrClosed
	}
	if err := checkSpan(lo, hi, c.rec.frames); err != nil {
		return dst[:0], err
	}

	n := hi - lo
	if cap(dst) < n {
		dst = make([]int32, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = c.rec.sample(lo+i, c.idx)
	}
	return dst, nil
}

func checkSpan(lo, hi, n int) error {
	if lo < 0 || hi > n || lo > hi {
		return fmt.Errorf("%w: span [%d, %d) not within [0, %d)", ErrRange, lo, hi, n)
	}
	return nil
}
