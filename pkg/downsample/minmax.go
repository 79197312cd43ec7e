// Package downsample reduces long sampled series to a bounded number of
// points for display without hiding spikes or dropouts.
package downsample

import (
	"cmp"
	"fmt"
)

// Float is the constraint for time values.
type Float interface {
	~float32 | ~float64
}

// Buckets returns how a series of n points is partitioned to fit target
// points: count buckets of size points each. ok is false when no reduction
// is needed (n <= target) or requested (target <= 0).
func Buckets(n, target int) (count, size int, ok bool) {
	if n <= target || target <= 0 {
		return 0, 0, false
	}
	count = max(1, target/2)
	size = n / count
	if size <= 0 {
		return 0, 0, false
	}
	return count, size, true
}

// MinMax reduces (times, values) to two points per bucket: the bucket's
// minimum and maximum, in their original order. Ties resolve to the first
// occurrence. Trailing points that do not fill a whole bucket are dropped.
//
// When no reduction applies, the inputs are returned as is. MinMax panics if
// times and values differ in length.
func MinMax[T Float, V cmp.Ordered](times []T, values []V, target int) ([]T, []V) {
	checkLengths(len(times), len(values))
	if _, _, ok := Buckets(len(values), target); !ok {
		return times, values
	}
	return MinMaxInto(nil, nil, times, values, target)
}

// MinMaxInto is MinMax writing into dstTimes and dstValues, which are reused
// if they have sufficient capacity. When no reduction applies the inputs
// are copied.
func MinMaxInto[T Float, V cmp.Ordered](dstTimes []T, dstValues []V, times []T, values []V, target int) ([]T, []V) {
	checkLengths(len(times), len(values))

	count, size, ok := Buckets(len(values), target)
	if !ok {
		dstTimes = resize(dstTimes, len(times))
		dstValues = resize(dstValues, len(values))
		copy(dstTimes, times)
		copy(dstValues, values)
		return dstTimes, dstValues
	}

	dstTimes = resize(dstTimes, 2*count)
	dstValues = resize(dstValues, 2*count)
	for b := range count {
		lo := b * size
		iMin, iMax := extrema(values[lo : lo+size])

		first, second := iMin, iMax
		if iMax < iMin {
			first, second = iMax, iMin
		}
		dstTimes[2*b], dstValues[2*b] = times[lo+first], values[lo+first]
		dstTimes[2*b+1], dstValues[2*b+1] = times[lo+second], values[lo+second]
	}
	return dstTimes, dstValues
}

// extrema returns the indices of the first minimum and first maximum of s.
func extrema[V cmp.Ordered](s []V) (iMin, iMax int) {
	lo, hi := s[0], s[0]
	for i := 1; i < len(s); i++ {
		v := s[i]
		if v < lo {
			lo, iMin = v, i
		}
		if v > hi {
			hi, iMax = v, i
		}
	}
	return iMin, iMax
}

func resize[E any](s []E, n int) []E {
	if cap(s) < n {
		return make([]E, n)
	}
	return s[:n]
}

func checkLengths(times, values int) {
	if times != values {
		panic(fmt.Sprintf("downsample: %d times for %d values", times, values))
	}
}
