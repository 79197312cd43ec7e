package bsr

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

const statsChunk = 1 << 16

// ChannelStats summarizes one channel over the whole recording.
type ChannelStats struct {
	Channel int
	Min     float64
	Max     float64
	Mean    float64
	RMS     float64
}

// Stats scans channel ch in chunks and returns its summary. The context is
// checked between chunks.
func (r *Recording) Stats(ctx context.Context, ch int) (ChannelStats, error) {
	c, err := r.Channel(ch)
	if err != nil {
		return ChannelStats{}, err
	}

	st := ChannelStats{
		Channel: ch,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
	}
	var (
		raw        []int32
		buf        = make([]float64, 0, statsChunk)
		sum, sumSq float64
	)
	n := c.Len()
	for lo := 0; lo < n; lo += statsChunk {
		if err := ctx.Err(); err != nil {
			return ChannelStats{}, err
		}
		hi := min(lo+statsChunk, n)
		raw, err = c.Slice(raw, lo, hi)
		if err != nil {
			return ChannelStats{}, err
		}
		buf = buf[:len(raw)]
		for i, v := range raw {
			buf[i] = float64(v)
		}
		st.Min = math.Min(st.Min, floats.Min(buf))
		st.Max = math.Max(st.Max, floats.Max(buf))
		sum += floats.Sum(buf)
		sumSq += floats.Dot(buf, buf)
	}
	st.Mean = sum / float64(n)
	st.RMS = math.Sqrt(sumSq / float64(n))
	return st, nil
}
