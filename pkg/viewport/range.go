package viewport

import (
	"fmt"
	"math"
)

// Range is a visible time interval [Start, End) in seconds.
type Range struct {
	Start float64
	End   float64
}

// Width returns End - Start.
func (r Range) Width() float64 {
	return r.End - r.Start
}

// Expand widens the range by margin on each side.
func (r Range) Expand(margin float64) Range {
	return Range{Start: r.Start - margin, End: r.End + margin}
}

// Clamp limits the range to [lo, hi].
func (r Range) Clamp(lo, hi float64) Range {
	return Range{
		Start: math.Min(math.Max(r.Start, lo), hi),
		End:   math.Min(math.Max(r.End, lo), hi),
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g)", r.Start, r.End)
}

// Change classifies a range change.
type Change int

const (
	// Initial is the first range, or one following a degenerate range.
	Initial Change = iota
	// Pan shifts the range keeping its width.
	Pan
	// Zoom changes the width.
	Zoom
)

func (c Change) String() string {
	switch c {
	case Initial:
		return "initial"
	case Pan:
		return "pan"
	case Zoom:
		return "zoom"
	}
	return fmt.Sprintf("Change(%d)", int(c))
}

// Classify compares next to prev. The change is a pan when the relative
// width difference is below tolerance. A prev without positive width has no
// scale to compare against and yields Initial.
func Classify(prev, next Range, tolerance float64) Change {
	pw := prev.Width()
	if pw <= 0 || math.IsNaN(pw) {
		return Initial
	}
	if math.Abs(next.Width()-pw)/pw < tolerance {
		return Pan
	}
	return Zoom
}
