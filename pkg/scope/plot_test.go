package scope

import (
	"image"
	"image/color"
	"testing"

	"github.com/itohio/gobsr/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoomRange(t *testing.T) {
	r := viewport.Range{Start: 0, End: 10}

	tests := []struct {
		name   string
		anchor float32
		factor float32
		want   viewport.Range
	}{
		{name: "zoom in at center", anchor: 0.5, factor: 0.5, want: viewport.Range{Start: 2.5, End: 7.5}},
		{name: "zoom in at left edge", anchor: 0, factor: 0.5, want: viewport.Range{Start: 0, End: 5}},
		{name: "zoom out at right edge", anchor: 1, factor: 2, want: viewport.Range{Start: -10, End: 10}},
		{name: "anchor clamped", anchor: 3, factor: 0.5, want: viewport.Range{Start: 5, End: 10}},
		{name: "invalid factor", anchor: 0.5, factor: 0, want: r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := zoomRange(r, tt.anchor, tt.factor)
			assert.InDelta(t, tt.want.Start, got.Start, 1e-9)
			assert.InDelta(t, tt.want.End, got.End, 1e-9)
		})
	}

	// Never narrower than minWidth
	got := zoomRange(viewport.Range{Start: 1, End: 1 + minWidth}, 0.5, 0.001)
	assert.InDelta(t, minWidth, got.Width(), 1e-15)
}

func TestScrollFactor(t *testing.T) {
	assert.Less(t, scrollFactor(10), float32(1))
	assert.Greater(t, scrollFactor(-10), float32(1))
	assert.Equal(t, float32(1), scrollFactor(0))
	assert.InDelta(t, 1/zoomStep, scrollFactor(10), 1e-6)
}

func TestPanRange(t *testing.T) {
	got := panRange(viewport.Range{Start: 2, End: 4}, 0.5)
	assert.Equal(t, viewport.Range{Start: 3, End: 5}, got)

	got = panRange(viewport.Range{Start: 2, End: 4}, -1)
	assert.Equal(t, viewport.Range{Start: 0, End: 2}, got)

	// Panning keeps the width, so the resampler sees a pan
	r := viewport.Range{Start: 1.25, End: 3.75}
	assert.Equal(t, viewport.Pan, viewport.Classify(r, panRange(r, 0.3), viewport.DefaultPanTolerance))
}

func TestLimitRange(t *testing.T) {
	tests := []struct {
		name string
		r    viewport.Range
		want viewport.Range
	}{
		{name: "inside", r: viewport.Range{Start: 2, End: 4}, want: viewport.Range{Start: 2, End: 4}},
		{name: "before start", r: viewport.Range{Start: -1, End: 1}, want: viewport.Range{Start: 0, End: 2}},
		{name: "after end", r: viewport.Range{Start: 9, End: 11}, want: viewport.Range{Start: 8, End: 10}},
		{name: "wider than limits", r: viewport.Range{Start: -5, End: 20}, want: viewport.Range{Start: 0, End: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, limitRange(tt.r, 0, 10))
		})
	}

	// Degenerate limits leave the range alone
	r := viewport.Range{Start: 3, End: 4}
	assert.Equal(t, r, limitRange(r, 5, 5))
}

func TestFitY(t *testing.T) {
	lo, hi := fitY(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = fitY([]Trace{
		{Values: []int32{0, 50}},
		{},
		{Values: []int32{-50, 100}},
	})
	assert.InDelta(t, -65.0, lo, 1e-9)
	assert.InDelta(t, 115.0, hi, 1e-9)

	// Flat trace still gets a visible span
	lo, hi = fitY([]Trace{{Values: []int32{200, 200}}})
	assert.InDelta(t, 180.0, lo, 1e-9)
	assert.InDelta(t, 220.0, hi, 1e-9)
}

func TestToPixel(t *testing.T) {
	rect := image.Rect(10, 20, 111, 71) // 101 x 51
	xr := viewport.Range{Start: 0, End: 1}

	x, y := toPixel(0, 0, xr, 0, 1, rect)
	assert.Equal(t, 10, x)
	assert.Equal(t, 70, y)

	x, y = toPixel(1, 1, xr, 0, 1, rect)
	assert.Equal(t, 110, x)
	assert.Equal(t, 20, y)

	x, y = toPixel(0.5, 0.5, xr, 0, 1, rect)
	assert.Equal(t, 60, x)
	assert.Equal(t, 45, y)
}

func TestDrawTrace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	rect := image.Rect(0, 0, 100, 50)
	c := color.RGBA{R: 255, A: 255}

	// Spike in the middle
	tr := Trace{
		Times:  []float64{0, 0.5, 1},
		Values: []int32{0, 100, 0},
	}
	drawTrace(img, rect, tr, viewport.Range{Start: 0, End: 1}, 0, 100, c)

	assert.Equal(t, c, img.RGBAAt(0, 49))
	assert.Equal(t, c, img.RGBAAt(50, 0), "spike peak drawn")
	assert.Equal(t, c, img.RGBAAt(99, 49))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
}

func TestDrawTrace_Clipped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	rect := image.Rect(20, 10, 80, 40)
	c := color.RGBA{G: 255, A: 255}

	// Data far outside the visible X and Y range
	tr := Trace{
		Times:  []float64{-10, -5, 5, 10},
		Values: []int32{1000, -1000, 1000, -1000},
	}
	drawTrace(img, rect, tr, viewport.Range{Start: 0, End: 1}, 0, 1, c)

	for y := range 50 {
		for x := range 100 {
			if !image.Pt(x, y).In(rect) {
				require.Equal(t, color.RGBA{}, img.RGBAAt(x, y), "pixel %d,%d outside plot", x, y)
			}
		}
	}
}

func TestLanes(t *testing.T) {
	rect := image.Rect(0, 0, 100, 90)

	assert.Equal(t, []image.Rectangle{rect}, lanes(rect, 3, false))
	assert.Equal(t, []image.Rectangle{rect}, lanes(rect, 1, true))

	got := lanes(rect, 3, true)
	require.Len(t, got, 3)
	assert.Equal(t, image.Rect(0, 0, 100, 30), got[0])
	assert.Equal(t, image.Rect(0, 30, 100, 60), got[1])
	assert.Equal(t, image.Rect(0, 60, 100, 90), got[2])
}

func TestGridStep(t *testing.T) {
	tests := []struct {
		span float64
		n    int
		want float64
	}{
		{span: 10, n: 10, want: 1},
		{span: 5, n: 10, want: 0.5},
		{span: 0.003, n: 10, want: 0.0002},
		{span: 100, n: 4, want: 20},
		{span: 0, n: 10, want: 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, gridStep(tt.span, tt.n), tt.want*1e-9, "span %v", tt.span)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12", formatValue(12.4))
	assert.Equal(t, "-1.50k", formatValue(-1500))
	assert.Equal(t, "2.15G", formatValue(2147483647))
	assert.Equal(t, "1.05M", formatValue(1048576))

	assert.Equal(t, "2s", formatTime(2, 1))
	assert.Equal(t, "0.5s", formatTime(0.5, 0.5))
	assert.Equal(t, "0.0004s", formatTime(0.0004, 0.0002))
}
