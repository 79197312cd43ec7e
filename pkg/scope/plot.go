package scope

import (
	"image"
	"image/color"
	"math"

	"github.com/chewxy/math32"
	"github.com/itohio/gobsr/pkg/viewport"
	"gonum.org/v1/gonum/floats"
)

const (
	// yMarginRatio is the headroom added above and below the data.
	yMarginRatio = 0.1
	// zoomStep is the X range scale applied per scroll unit.
	zoomStep = 1.1
	// minWidth is the narrowest X range the plot zooms into (seconds).
	minWidth = 1e-6
)

// zoomRange scales r by factor around the point at fraction anchor of its
// width. factor < 1 zooms in.
func zoomRange(r viewport.Range, anchor, factor float32) viewport.Range {
	anchor = math32.Max(0, math32.Min(1, anchor))
	if factor <= 0 || math32.IsNaN(factor) || math32.IsInf(factor, 0) {
		return r
	}
	w := r.Width()
	pivot := r.Start + float64(anchor)*w
	nw := math.Max(w*float64(factor), minWidth)
	return viewport.Range{
		Start: pivot - float64(anchor)*nw,
		End:   pivot + float64(1-anchor)*nw,
	}
}

// scrollFactor converts a scroll delta into a zoom factor. Scrolling up
// (positive DY) zooms in.
func scrollFactor(dy float32) float32 {
	return math32.Pow(zoomStep, -dy/10)
}

// panRange shifts r by frac of its width. Positive frac moves the view to
// later times.
func panRange(r viewport.Range, frac float32) viewport.Range {
	d := r.Width() * float64(frac)
	return viewport.Range{Start: r.Start + d, End: r.End + d}
}

// limitRange keeps r inside [lo, hi] preserving its width where possible.
func limitRange(r viewport.Range, lo, hi float64) viewport.Range {
	if hi <= lo {
		return r
	}
	w := r.Width()
	if w >= hi-lo {
		return viewport.Range{Start: lo, End: hi}
	}
	if r.Start < lo {
		return viewport.Range{Start: lo, End: lo + w}
	}
	if r.End > hi {
		return viewport.Range{Start: hi - w, End: hi}
	}
	return r
}

// fitY returns a Y range covering every trace value with a 10% margin.
func fitY(traces []Trace) (lo, hi float64) {
	var mins, maxs []float64
	for _, tr := range traces {
		l, h, ok := tr.bounds()
		if !ok {
			continue
		}
		mins = append(mins, l)
		maxs = append(maxs, h)
	}
	if len(mins) == 0 {
		return 0, 1
	}
	return withMargin(floats.Min(mins), floats.Max(maxs))
}

func withMargin(lo, hi float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(lo), 1)
	}
	m := span * yMarginRatio
	return lo - m, hi + m
}

// toPixel maps a data point into rect.
func toPixel(t, v float64, xr viewport.Range, yLo, yHi float64, rect image.Rectangle) (x, y int) {
	fx := float32((t - xr.Start) / xr.Width())
	fy := float32((v - yLo) / (yHi - yLo))
	x = rect.Min.X + int(math32.Round(fx*float32(rect.Dx()-1)))
	y = rect.Max.Y - 1 - int(math32.Round(fy*float32(rect.Dy()-1)))
	return x, y
}

// drawTrace rasterizes tr into img inside rect as connected segments.
func drawTrace(img *image.RGBA, rect image.Rectangle, tr Trace, xr viewport.Range, yLo, yHi float64, c color.RGBA) {
	if len(tr.Times) == 0 || xr.Width() <= 0 || yHi <= yLo || rect.Empty() {
		return
	}
	px, py := toPixel(tr.Times[0], float64(tr.Values[0]), xr, yLo, yHi, rect)
	if len(tr.Times) == 1 {
		setClipped(img, rect, px, py, c)
		return
	}
	for i := 1; i < len(tr.Times); i++ {
		x, y := toPixel(tr.Times[i], float64(tr.Values[i]), xr, yLo, yHi, rect)
		drawLine(img, rect, px, py, x, y, c)
		px, py = x, y
	}
}

// drawLine draws a Bresenham line clipped to rect.
func drawLine(img *image.RGBA, rect image.Rectangle, x0, y0, x1, y1 int, c color.RGBA) {
	// Skip segments entirely left or right of the plot
	if (x0 < rect.Min.X && x1 < rect.Min.X) || (x0 >= rect.Max.X && x1 >= rect.Max.X) {
		return
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setClipped(img, rect, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func setClipped(img *image.RGBA, rect image.Rectangle, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(rect) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// lanes splits the plot height into n equal lanes, or one lane for all
// traces when combined.
func lanes(rect image.Rectangle, n int, exploded bool) []image.Rectangle {
	if !exploded || n <= 1 {
		return []image.Rectangle{rect}
	}
	out := make([]image.Rectangle, n)
	h := float32(rect.Dy()) / float32(n)
	for i := range out {
		top := rect.Min.Y + int(math32.Floor(float32(i)*h))
		bottom := rect.Min.Y + int(math32.Floor(float32(i+1)*h))
		out[i] = image.Rect(rect.Min.X, top, rect.Max.X, bottom)
	}
	return out
}

// gridStep returns a 1, 2 or 5 times power of ten step giving about n
// divisions of span.
func gridStep(span float64, n int) float64 {
	if span <= 0 || n <= 0 {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r < 1.5:
		return mag
	case r < 3.5:
		return 2 * mag
	case r < 7.5:
		return 5 * mag
	}
	return 10 * mag
}
