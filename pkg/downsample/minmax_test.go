package downsample

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timesFor(n int, rate float64) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) / rate
	}
	return t
}

func TestBuckets(t *testing.T) {
	tests := []struct {
		name      string
		n, target int
		count     int
		size      int
		ok        bool
	}{
		{name: "fits", n: 10, target: 10},
		{name: "fits with room", n: 3, target: 100},
		{name: "zero target", n: 100, target: 0},
		{name: "negative target", n: 100, target: -1},
		{name: "even split", n: 8, target: 4, count: 2, size: 4, ok: true},
		{name: "remainder", n: 103, target: 10, count: 5, size: 20, ok: true},
		{name: "odd target", n: 100, target: 7, count: 3, size: 33, ok: true},
		{name: "single point target", n: 10, target: 1, count: 1, size: 10, ok: true},
		{name: "large", n: 1_000_000, target: 1000, count: 500, size: 2000, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, size, ok := Buckets(tt.n, tt.target)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestMinMax_Identity(t *testing.T) {
	values := []int32{5, -3, 8, 1}
	times := timesFor(len(values), 10)

	for _, target := range []int{4, 5, 1000, 0, -1} {
		gotT, gotV := MinMax(times, values, target)
		require.Len(t, gotV, len(values), "target %d", target)
		// Same backing arrays, no copy
		assert.Same(t, &values[0], &gotV[0], "target %d", target)
		assert.Same(t, &times[0], &gotT[0], "target %d", target)
	}
}

func TestMinMax_Empty(t *testing.T) {
	gotT, gotV := MinMax([]float64{}, []int32{}, 10)
	assert.Empty(t, gotT)
	assert.Empty(t, gotV)
}

func TestMinMax_Example(t *testing.T) {
	values := []int32{0, 10, 5, 0, 20, 15, 10, 5}
	times := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}

	gotT, gotV := MinMax(times, values, 4)
	require.Len(t, gotV, 4)

	// Bucket 1: min 0 at 0.0, max 10 at 0.1
	assert.Equal(t, []int32{0, 10}, gotV[:2])
	assert.Equal(t, []float64{0, 0.1}, gotT[:2])
	// Bucket 2: max 20 at 0.4 comes before min 5 at 0.7
	assert.Equal(t, []int32{20, 5}, gotV[2:])
	assert.Equal(t, []float64{0.4, 0.7}, gotT[2:])
}

func TestMinMax_TieBreakFirstOccurrence(t *testing.T) {
	t.Run("constant bucket", func(t *testing.T) {
		values := []int32{7, 7, 7, 7, 7, 7, 7, 7}
		times := timesFor(len(values), 1)

		gotT, gotV := MinMax(times, values, 4)
		assert.Equal(t, []int32{7, 7, 7, 7}, gotV)
		// Both points of each bucket are its first sample
		assert.Equal(t, []float64{0, 0, 4, 4}, gotT)
	})

	t.Run("repeated extremes", func(t *testing.T) {
		values := []int32{1, 9, 1, 9, 9, 1, 9, 1}
		times := timesFor(len(values), 1)

		gotT, gotV := MinMax(times, values, 4)
		assert.Equal(t, []int32{1, 9, 9, 1}, gotV)
		assert.Equal(t, []float64{0, 1, 4, 5}, gotT)
	})

	t.Run("max before min", func(t *testing.T) {
		values := []int32{3, 8, -2, 8, -2}
		times := timesFor(len(values), 1)

		gotT, gotV := MinMax(times, values, 2)
		assert.Equal(t, []int32{8, -2}, gotV)
		assert.Equal(t, []float64{1, 2}, gotT)
	})
}

func TestMinMax_DropsRemainder(t *testing.T) {
	// 2 buckets of 4, trailing spike at index 8 falls outside
	values := []int32{1, 2, 3, 4, 5, 6, 7, 8, 1000}
	times := timesFor(len(values), 1)

	gotT, gotV := MinMax(times, values, 4)
	assert.Equal(t, []int32{1, 4, 5, 8}, gotV)
	assert.Equal(t, []float64{0, 3, 4, 7}, gotT)
}

func TestMinMax_SingleBucket(t *testing.T) {
	values := []int32{4, -1, 9, 2, 0}
	gotT, gotV := MinMax(timesFor(5, 1), values, 1)

	assert.Equal(t, []int32{-1, 9}, gotV)
	assert.Equal(t, []float64{1, 2}, gotT)
}

func TestMinMax_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		n := 2 + rng.IntN(5000)
		target := 2 + rng.IntN(n+10)
		values := make([]int32, n)
		for i := range values {
			values[i] = rng.Int32N(100) - 50
		}
		times := timesFor(n, 1000)

		gotT, gotV := MinMax(times, values, target)
		require.Equal(t, len(gotT), len(gotV))

		count, size, ok := Buckets(n, target)
		if !ok {
			assert.Equal(t, values, gotV)
			continue
		}

		// Bounded output
		require.Len(t, gotV, 2*max(1, target/2))
		assert.LessOrEqual(t, len(gotV), target)

		// Order preservation
		assert.True(t, slices.IsSorted(gotT), "n=%d target=%d", n, target)

		// Extrema preservation
		for b := range count {
			bucket := values[b*size : (b+1)*size]
			pair := gotV[2*b : 2*b+2]
			assert.Equal(t, slices.Min(bucket), min(pair[0], pair[1]), "bucket %d", b)
			assert.Equal(t, slices.Max(bucket), max(pair[0], pair[1]), "bucket %d", b)
		}

		// Every output point is an original sample
		for i, tm := range gotT {
			idx := int(tm*1000 + 0.5)
			assert.Equal(t, values[idx], gotV[i])
		}
	}
}

func TestMinMax_SpikesSurvive(t *testing.T) {
	values := make([]int32, 100_000)
	values[12_345] = 1 << 30
	values[67_890] = -(1 << 30)
	times := timesFor(len(values), 200_000)

	_, gotV := MinMax(times, values, 100)
	assert.Contains(t, gotV, int32(1<<30))
	assert.Contains(t, gotV, int32(-(1 << 30)))
}

func TestMinMax_EndToEnd(t *testing.T) {
	const (
		frames = 1_000_000
		rate   = 200_000.0
	)
	values := make([]int32, frames)
	for i := range values {
		values[i] = int32(i % 977)
	}
	times := timesFor(frames, rate)

	gotT, gotV := MinMax(times, values, 1000)
	require.Len(t, gotT, 1000)
	require.Len(t, gotV, 1000)
	assert.GreaterOrEqual(t, gotT[0], 0.0)
	assert.Less(t, gotT[len(gotT)-1], 5.0)
}

func TestMinMax_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		MinMax([]float64{0, 1, 2}, []int32{1, 2}, 2)
	})
	assert.Panics(t, func() {
		MinMax([]float64{0, 1}, []int32{1, 2, 3}, 100)
	})
}

func TestMinMaxInto_DestinationReuse(t *testing.T) {
	values := []int32{0, 10, 5, 0, 20, 15, 10, 5}
	times := timesFor(len(values), 10)

	dstT := make([]float64, 0, 16)
	dstV := make([]int32, 0, 16)
	gotT, gotV := MinMaxInto(dstT, dstV, times, values, 4)
	require.Len(t, gotV, 4)
	assert.Equal(t, cap(dstT), cap(gotT))
	assert.Equal(t, cap(dstV), cap(gotV))

	// No reduction copies into dst
	gotT, gotV = MinMaxInto(gotT, gotV, times[:3], values[:3], 10)
	assert.Equal(t, values[:3], gotV)
	assert.Equal(t, times[:3], gotT)
	assert.NotSame(t, &values[0], &gotV[0])
	assert.Equal(t, cap(dstV), cap(gotV))

	// Too small dst is replaced
	gotT, gotV = MinMaxInto(make([]float64, 0, 1), nil, times, values, 4)
	assert.Len(t, gotT, 4)
	assert.Len(t, gotV, 4)
}

func TestMinMax_FloatTypes(t *testing.T) {
	values := []float32{0.5, -1.5, 2.5, 0, 0, 3.5}
	times := []float32{0, 1, 2, 3, 4, 5}

	gotT, gotV := MinMax(times, values, 2)
	assert.Equal(t, []float32{-1.5, 3.5}, gotV)
	assert.Equal(t, []float32{1, 5}, gotT)
}
