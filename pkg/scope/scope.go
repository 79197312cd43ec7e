package scope

import (
	"image/color"
	"slices"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gobsr/pkg/viewport"
)

// Trace is one channel series to draw.
type Trace struct {
	Channel int // selects the palette color
	Name    string
	Times   []float64
	Values  []int32
}

func (t Trace) bounds() (lo, hi float64, ok bool) {
	if len(t.Values) == 0 {
		return 0, 0, false
	}
	return float64(slices.Min(t.Values)), float64(slices.Max(t.Values)), true
}

// Palette holds trace colors, indexed by channel.
var Palette = []color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // orange
	{R: 100, G: 200, B: 255, A: 255}, // light blue
	{R: 120, G: 220, B: 120, A: 255}, // green
	{R: 240, G: 100, B: 200, A: 255}, // magenta
	{R: 240, G: 240, B: 100, A: 255}, // yellow
	{R: 200, G: 200, B: 200, A: 255}, // gray
}

// ScopeWidget is a waveform plot with mouse pan (drag) and zoom (scroll)
// along the time axis. Double tap shows the whole recording.
type ScopeWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu       sync.RWMutex
	traces   []Trace
	xRange   viewport.Range
	limits   viewport.Range
	exploded bool

	onRangeChanged func(viewport.Range)
}

var (
	_ fyne.Scrollable     = (*ScopeWidget)(nil)
	_ fyne.Draggable      = (*ScopeWidget)(nil)
	_ fyne.DoubleTappable = (*ScopeWidget)(nil)
)

// New creates a new ScopeWidget instance.
func New() *ScopeWidget {
	s := &ScopeWidget{
		xRange: viewport.Range{Start: 0, End: 1},
		limits: viewport.Range{Start: 0, End: 1},
	}
	s.ExtendBaseWidget(s)
	return s
}

// OnRangeChanged registers the callback invoked with the new X range after
// every user pan or zoom. It runs on the UI goroutine and should return quickly.
func (s *ScopeWidget) OnRangeChanged(fn func(viewport.Range)) {
	s.mu.Lock()
	s.onRangeChanged = fn
	s.mu.Unlock()
}

// SetTraces replaces the drawn data.
func (s *ScopeWidget) SetTraces(traces []Trace) {
	s.mu.Lock()
	s.traces = traces
	s.mu.Unlock()
	s.Refresh()
}

// Traces returns the drawn data.
func (s *ScopeWidget) Traces() []Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traces
}

// SetLimits sets the time span the view may cover, normally [0, duration],
// and shows all of it.
func (s *ScopeWidget) SetLimits(r viewport.Range) {
	s.mu.Lock()
	s.limits = r
	s.xRange = r
	s.mu.Unlock()
	s.Refresh()
}

// XRange returns the visible time range.
func (s *ScopeWidget) XRange() viewport.Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xRange
}

// SetXRange sets the visible time range without notifying OnRangeChanged.
func (s *ScopeWidget) SetXRange(r viewport.Range) {
	s.mu.Lock()
	s.xRange = limitRange(r, s.limits.Start, s.limits.End)
	s.mu.Unlock()
	s.Refresh()
}

// SetExploded switches between one plot per trace and all traces combined.
func (s *ScopeWidget) SetExploded(exploded bool) {
	s.mu.Lock()
	s.exploded = exploded
	s.mu.Unlock()
	s.Refresh()
}

// Exploded reports whether each trace has its own lane.
func (s *ScopeWidget) Exploded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exploded
}

// Scrolled zooms the X axis around the pointer.
func (s *ScopeWidget) Scrolled(ev *fyne.ScrollEvent) {
	anchor := s.plotFraction(ev.Position.X)
	s.changeRange(func(r viewport.Range) viewport.Range {
		return zoomRange(r, anchor, scrollFactor(ev.Scrolled.DY))
	})
}

// Dragged pans the X axis with the pointer.
func (s *ScopeWidget) Dragged(ev *fyne.DragEvent) {
	w := s.plotWidth()
	if w <= 0 {
		return
	}
	frac := -ev.Dragged.DX / w
	s.changeRange(func(r viewport.Range) viewport.Range {
		return panRange(r, frac)
	})
}

// DragEnd implements fyne.Draggable.
func (s *ScopeWidget) DragEnd() {}

// DoubleTapped resets the view to the whole recording.
func (s *ScopeWidget) DoubleTapped(*fyne.PointEvent) {
	s.changeRange(func(viewport.Range) viewport.Range {
		return s.limits
	})
}

// changeRange applies fn to the visible range and notifies the listener.
// fn runs with s.mu held.
func (s *ScopeWidget) changeRange(fn func(viewport.Range) viewport.Range) {
	s.mu.Lock()
	prev := s.xRange
	next := limitRange(fn(prev), s.limits.Start, s.limits.End)
	s.xRange = next
	cb := s.onRangeChanged
	s.mu.Unlock()
	if next == prev {
		return
	}

	s.Refresh()
	if cb != nil {
		cb(next)
	}
}

// plotFraction maps a widget x coordinate to a fraction of the plot width.
func (s *ScopeWidget) plotFraction(x float32) float32 {
	w := s.plotWidth()
	if w <= 0 {
		return 0.5
	}
	return (x - marginLeft) / w
}

func (s *ScopeWidget) plotWidth() float32 {
	return s.Size().Width - marginLeft - marginRight
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	r := &scopeRenderer{
		scope: s,
		bg:    bg,
	}
	r.raster = canvas.NewRaster(r.draw)
	r.objects = []fyne.CanvasObject{bg, r.raster}
	return r
}
