// Package viewport maps pan/zoom events on a plot to freshly reduced series
// for the newly visible time range.
package viewport

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/downsample"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxDisplaySamples is the point budget per channel.
	DefaultMaxDisplaySamples = 100000
	// DefaultPanTolerance is the relative width change below which a range
	// change counts as a pan.
	DefaultPanTolerance = 0.001
	// DefaultWorkers bounds how many channels are reduced concurrently.
	DefaultWorkers = 4
)

// Source provides channel data and the time axis. *bsr.Recording implements it.
type Source interface {
	Channels() int
	FrameCount() int
	Duration() float64
	Channel(idx int) (*bsr.Channel, error)
	TimeAxis() *bsr.TimeAxis
}

var _ Source = (*bsr.Recording)(nil)

// State of a Resampler.
type State int

const (
	// Idle means no viewport change is pending.
	Idle State = iota
	// Evaluating means a range change is being processed.
	Evaluating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Series is the data of one channel for the rendering surface.
type Series struct {
	Channel int
	Times   []float64
	Values  []int32
	Reduced bool // true if the slice went through the downsampling engine
}

// Bounds returns the smallest and largest value of the series.
func (s Series) Bounds() (lo, hi int32, ok bool) {
	if len(s.Values) == 0 {
		return 0, 0, false
	}
	return slices.Min(s.Values), slices.Max(s.Values), true
}

// Update is the result of a recomputation.
type Update struct {
	Range  Range // range that triggered the update
	Window Range // expanded and clamped window the data covers
	Start  int   // first frame of the window
	End    int   // frame after the last one of the window
	Series []Series
}

// Option configures a Resampler.
type Option func(*Resampler)

// WithMaxDisplaySamples sets the point budget per channel.
func WithMaxDisplaySamples(n int) Option {
	return func(r *Resampler) { r.maxDisplay = n }
}

// WithPanTolerance sets the relative width tolerance for pan detection.
func WithPanTolerance(tol float64) Option {
	return func(r *Resampler) { r.tolerance = tol }
}

// WithWorkers bounds concurrent per-channel reductions.
func WithWorkers(n int) Option {
	return func(r *Resampler) { r.workers = n }
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(r *Resampler) { r.logger = l }
}

// Resampler tracks the previous visible range of one plot binding and
// recomputes channel data when the range is zoomed rather than panned.
// Range change events are expected serially from one owner.
type Resampler struct {
	src        Source
	maxDisplay int
	tolerance  float64
	workers    int
	logger     *zap.Logger

	mu      sync.Mutex
	state   State
	prev    Range
	hasPrev bool
	visible []bool

	callbacks []func(Update)
	cbMu      sync.RWMutex
}

// New creates a Resampler over src with all channels visible.
func New(src Source, opts ...Option) *Resampler {
	r := &Resampler{
		src:        src,
		maxDisplay: DefaultMaxDisplaySamples,
		tolerance:  DefaultPanTolerance,
		workers:    DefaultWorkers,
		visible:    make([]bool, src.Channels()),
	}
	for i := range r.visible {
		r.visible[i] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.L()
	}
	if r.maxDisplay <= 0 {
		r.maxDisplay = DefaultMaxDisplaySamples
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	return r
}

// State returns the current state.
func (r *Resampler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Previous returns the last recorded visible range.
func (r *Resampler) Previous() (Range, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prev, r.hasPrev
}

// Reset forgets the previous range, so the next RangeChanged recomputes
// whatever its width. Use it when the time axis of the source changed.
func (r *Resampler) Reset() {
	r.mu.Lock()
	r.prev, r.hasPrev = Range{}, false
	r.mu.Unlock()
}

// MaxDisplaySamples returns the point budget per channel.
func (r *Resampler) MaxDisplaySamples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxDisplay
}

// SetMaxDisplaySamples changes the point budget. Call Refresh to apply it.
func (r *Resampler) SetMaxDisplaySamples(n int) error {
	if n <= 0 {
		return fmt.Errorf("viewport: max display samples must be positive, got %d", n)
	}
	r.mu.Lock()
	r.maxDisplay = n
	r.mu.Unlock()
	return nil
}

// SetVisible shows or hides a channel. Hidden channels are not computed.
func (r *Resampler) SetVisible(ch int, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch < 0 || ch >= len(r.visible) {
		return fmt.Errorf("%w: channel %d not in [0, %d)", bsr.ErrRange, ch, len(r.visible))
	}
	r.visible[ch] = visible
	return nil
}

// Visible returns the visible channel indices in order.
func (r *Resampler) Visible() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visibleLocked()
}

func (r *Resampler) visibleLocked() []int {
	var chans []int
	for ch, v := range r.visible {
		if v {
			chans = append(chans, ch)
		}
	}
	return chans
}

// OnUpdate registers a callback invoked with every computed Update.
// The callback should return quickly.
func (r *Resampler) OnUpdate(callback func(Update)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// RangeChanged processes a new visible range. A pan (same width within
// tolerance) only records the range. A zoom or the first range recomputes
// every visible channel over the range widened by one width on each side.
// ok is false when nothing was recomputed, either for a pan or because the
// window holds no frames; the previously rendered data stays valid.
func (r *Resampler) RangeChanged(ctx context.Context, next Range) (u Update, ok bool, err error) {
	r.mu.Lock()
	r.state = Evaluating
	prev, hasPrev := r.prev, r.hasPrev
	r.prev, r.hasPrev = next, true
	budget := r.maxDisplay
	channels := r.visibleLocked()
	r.mu.Unlock()
	defer r.setState(Idle)

	if hasPrev && Classify(prev, next, r.tolerance) == Pan {
		r.logger.Debug("[viewport] pan, keeping data",
			zap.Float64("start", next.Start),
			zap.Float64("end", next.End),
		)
		return Update{}, false, nil
	}

	window := next.Expand(next.Width()).Clamp(0, r.src.Duration())
	axis := r.src.TimeAxis()
	start, end := axis.Index(window.Start), axis.Index(window.End)
	if end-start <= 0 {
		r.logger.Debug("[viewport] empty window, keeping data",
			zap.Float64("start", next.Start),
			zap.Float64("end", next.End),
		)
		return Update{}, false, nil
	}

	u, err = r.compute(ctx, next, window, start, end, budget, channels)
	if err != nil {
		return Update{}, false, err
	}
	r.notify(u)
	return u, true, nil
}

// Full computes every visible channel over the whole recording. The
// recorded previous range is left untouched.
func (r *Resampler) Full(ctx context.Context) (Update, error) {
	r.mu.Lock()
	r.state = Evaluating
	budget := r.maxDisplay
	channels := r.visibleLocked()
	r.mu.Unlock()
	defer r.setState(Idle)

	whole := Range{Start: 0, End: r.src.Duration()}
	u, err := r.compute(ctx, whole, whole, 0, r.src.FrameCount(), budget, channels)
	if err != nil {
		return Update{}, err
	}
	r.notify(u)
	return u, nil
}

// Refresh recomputes the last recorded range, or the whole recording if no
// range was seen yet. Use it after visibility or budget changes.
func (r *Resampler) Refresh(ctx context.Context) (Update, bool, error) {
	r.mu.Lock()
	prev, hasPrev := r.prev, r.hasPrev
	r.hasPrev = false
	r.mu.Unlock()

	if !hasPrev {
		u, err := r.Full(ctx)
		return u, err == nil, err
	}
	return r.RangeChanged(ctx, prev)
}

func (r *Resampler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// compute slices and reduces each channel concurrently, bounded by workers.
func (r *Resampler) compute(ctx context.Context, visible, window Range, start, end, budget int, channels []int) (Update, error) {
	series := make([]Series, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, ch := range channels {
		g.Go(func() error {
			s, err := r.series(gctx, ch, start, end, budget)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch, err)
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Update{}, err
	}

	r.logger.Debug("[viewport] recomputed",
		zap.Float64("start", visible.Start),
		zap.Float64("end", visible.End),
		zap.Int("frames", end-start),
		zap.Int("channels", len(channels)),
		zap.Int("budget", budget),
	)

	return Update{
		Range:  visible,
		Window: window,
		Start:  start,
		End:    end,
		Series: series,
	}, nil
}

func (r *Resampler) series(ctx context.Context, ch, start, end, budget int) (Series, error) {
	if err := ctx.Err(); err != nil {
		return Series{}, err
	}
	c, err := r.src.Channel(ch)
	if err != nil {
		return Series{}, err
	}
	values, err := c.Slice(nil, start, end)
	if err != nil {
		return Series{}, err
	}
	times, err := r.src.TimeAxis().Slice(nil, start, end)
	if err != nil {
		return Series{}, err
	}

	s := Series{Channel: ch, Times: times, Values: values}
	if end-start > budget {
		s.Times, s.Values = downsample.MinMax(times, values, budget)
		s.Reduced = true
	}
	return s, nil
}

// notify invokes callbacks without holding any locks.
func (r *Resampler) notify(u Update) {
	r.cbMu.RLock()
	callbacks := make([]func(Update), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(u)
		}
	}
}
