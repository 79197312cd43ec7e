package scope

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/gobsr/pkg/viewport"
)

// Plot margins in widget units.
const (
	marginLeft   = float32(70)
	marginRight  = float32(20)
	marginTop    = float32(10)
	marginBottom = float32(30)

	gridX = 10 // vertical grid divisions
	gridY = 4  // horizontal grid divisions per lane
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// snapshot is the widget state one frame is drawn from.
type snapshot struct {
	traces   []Trace
	xRange   viewport.Range
	exploded bool
}

func (s *ScopeWidget) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{traces: s.traces, xRange: s.xRange, exploded: s.exploded}
}

// scopeRenderer draws grid and labels as canvas objects and the traces into
// a raster, since a line object per segment does not scale to 10^5 points.
type scopeRenderer struct {
	scope *ScopeWidget

	bg     *canvas.Rectangle
	raster *canvas.Raster

	// Objects list for Fyne
	objects []fyne.CanvasObject
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.raster.Resize(size)
	r.rebuild(size)
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.rebuild(r.scope.Size())
	r.bg.Refresh()
	r.raster.Refresh()
}

// rebuild recreates grid lines and axis labels for size.
func (r *scopeRenderer) rebuild(size fyne.Size) {
	r.objects = []fyne.CanvasObject{r.bg, r.raster}
	if size.Width <= marginLeft+marginRight || size.Height <= marginTop+marginBottom {
		return
	}

	snap := r.scope.snapshot()
	plot := image.Rect(int(marginLeft), int(marginTop), int(size.Width-marginRight), int(size.Height-marginBottom))
	laneRects := lanes(plot, len(snap.traces), snap.exploded)

	for i, lane := range laneRects {
		yLo, yHi := laneY(snap, i)
		r.drawHGrid(lane, yLo, yHi)
		if snap.exploded && i < len(snap.traces) {
			r.addLabel(snap.traces[i].Name, traceColor(snap.traces[i]), fyne.NewPos(float32(lane.Min.X)+5, float32(lane.Min.Y)+2), fyne.TextAlignLeading)
		}
	}
	if !snap.exploded {
		x := float32(plot.Min.X) + 5
		for _, tr := range snap.traces {
			r.addLabel(tr.Name, traceColor(tr), fyne.NewPos(x, float32(plot.Min.Y)+2), fyne.TextAlignLeading)
			x += float32(len(tr.Name)*8 + 12)
		}
	}
	r.drawVGrid(plot, snap.xRange)
}

// laneY returns the Y range of lane i: per trace when exploded, shared otherwise.
func laneY(snap snapshot, i int) (float64, float64) {
	if snap.exploded && i < len(snap.traces) {
		return fitY(snap.traces[i : i+1])
	}
	return fitY(snap.traces)
}

func (r *scopeRenderer) drawHGrid(lane image.Rectangle, yLo, yHi float64) {
	for i := range gridY + 1 {
		y := float32(lane.Min.Y) + float32(i)*float32(lane.Dy())/gridY
		r.addLine(fyne.NewPos(float32(lane.Min.X), y), fyne.NewPos(float32(lane.Max.X), y))

		value := yHi - float64(i)*(yHi-yLo)/gridY
		r.addLabel(formatValue(value), labelColor, fyne.NewPos(float32(lane.Min.X)-5, y-6), fyne.TextAlignTrailing)
	}
}

func (r *scopeRenderer) drawVGrid(plot image.Rectangle, xr viewport.Range) {
	step := gridStep(xr.Width(), gridX)
	first := math.Ceil(xr.Start/step) * step
	for t := first; t <= xr.End; t += step {
		x := float32(plot.Min.X) + float32((t-xr.Start)/xr.Width())*float32(plot.Dx())
		r.addLine(fyne.NewPos(x, float32(plot.Min.Y)), fyne.NewPos(x, float32(plot.Max.Y)))
		r.addLabel(formatTime(t, step), labelColor, fyne.NewPos(x, float32(plot.Max.Y)+5), fyne.TextAlignCenter)
	}
}

func (r *scopeRenderer) addLine(p1, p2 fyne.Position) {
	line := canvas.NewLine(gridColor)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = 1
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) addLabel(s string, c color.Color, pos fyne.Position, align fyne.TextAlign) {
	text := canvas.NewText(s, c)
	text.TextSize = 10
	text.Alignment = align
	text.Move(pos)
	r.objects = append(r.objects, text)
}

// draw renders traces into a w x h pixel image. Pixel and widget units
// differ by the canvas scale.
func (r *scopeRenderer) draw(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	size := r.scope.Size()
	if size.Width <= marginLeft+marginRight || size.Height <= marginTop+marginBottom {
		return img
	}
	sx, sy := float32(w)/size.Width, float32(h)/size.Height

	snap := r.scope.snapshot()
	if snap.xRange.Width() <= 0 {
		return img
	}
	plot := image.Rect(
		int(marginLeft*sx), int(marginTop*sy),
		int((size.Width-marginRight)*sx), int((size.Height-marginBottom)*sy),
	)
	laneRects := lanes(plot, len(snap.traces), snap.exploded)

	for i, tr := range snap.traces {
		lane := laneRects[0]
		if snap.exploded {
			lane = laneRects[i]
		}
		yLo, yHi := laneY(snap, i)
		drawTrace(img, lane, tr, snap.xRange, yLo, yHi, traceColor(tr))
	}
	return img
}

func traceColor(tr Trace) color.RGBA {
	return Palette[abs(tr.Channel)%len(Palette)]
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

// formatValue prints a sample value compactly: 1234567 as 1.23M.
func formatValue(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "G"
	case a >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	case a >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 2, 64) + "k"
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// formatTime prints t with as many decimals as the grid step needs.
func formatTime(t, step float64) string {
	decimals := 0
	if step > 0 && step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	return strconv.FormatFloat(t, 'f', decimals, 64) + "s"
}
