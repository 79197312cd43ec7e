package main

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/config"
	"github.com/itohio/gobsr/pkg/scope"
	"github.com/itohio/gobsr/pkg/viewport"
)

// document is one open recording shown in a tab. The worker goroutine is
// the only caller of the resampler once started; the UI talks to it through
// the ranges and refresh channels.
type document struct {
	rec       *bsr.Recording
	resampler *viewport.Resampler
	scope     *scope.ScopeWidget
	checks    []*widget.Check
	names     []string // UI goroutine only
	logger    *zap.Logger

	ranges  chan rangeRequest // latest wins
	refresh chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// newDocument binds rec to a scope widget. It must run on the UI goroutine.
func newDocument(rec *bsr.Recording, cfg *config.Config, logger *zap.Logger) *document {
	ctx, cancel := context.WithCancel(context.Background())
	d := &document{
		rec:     rec,
		names:   cfg.ChannelNames(),
		logger:  logger.With(zap.String("path", rec.Path())),
		ranges:  make(chan rangeRequest, 1),
		refresh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	d.resampler = viewport.New(rec,
		viewport.WithMaxDisplaySamples(cfg.MaxDisplaySamples),
		viewport.WithPanTolerance(cfg.View.PanTolerance),
		viewport.WithWorkers(cfg.View.Workers),
		viewport.WithLogger(d.logger),
	)
	d.resampler.OnUpdate(d.show)

	d.scope = scope.New()
	d.scope.SetExploded(cfg.View.Exploded)
	d.scope.SetLimits(viewport.Range{Start: 0, End: rec.Duration()})
	d.scope.OnRangeChanged(d.requestRange)

	for ch := range rec.Channels() {
		check := widget.NewCheck(d.channelName(ch), nil)
		check.SetChecked(true)
		check.OnChanged = func(on bool) { d.setVisible(ch, on) }
		d.checks = append(d.checks, check)
	}
	return d
}

// content returns the tab body: channel toggles above the plot.
func (d *document) content() fyne.CanvasObject {
	bar := container.NewHBox(widget.NewLabel("Channels:"))
	for _, c := range d.checks {
		bar.Add(c)
	}
	return container.NewBorder(bar, nil, nil, nil, d.scope)
}

// start launches the worker. Before start the caller may use the resampler
// directly, as the loader does for the initial full view.
func (d *document) start() {
	d.started = true
	go d.run()
}

func (d *document) run() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			return
		case req := <-d.ranges:
			if req.reset {
				d.resampler.Reset()
			}
			_, _, err := d.resampler.RangeChanged(d.ctx, req.r)
			d.report(err)
		case <-d.refresh:
			_, _, err := d.resampler.Refresh(d.ctx)
			d.report(err)
		}
	}
}

func (d *document) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	d.logger.Warn("[explorer] resample failed", zap.Error(err))
}

// rangeRequest is a visible range for the worker. reset makes it recompute
// even when the width did not change.
type rangeRequest struct {
	r     viewport.Range
	reset bool
}

// requestRange hands a new visible range to the worker, replacing one that
// was not picked up yet.
func (d *document) requestRange(r viewport.Range) {
	d.send(rangeRequest{r: r})
}

// requestReset is requestRange for a changed time axis or budget.
func (d *document) requestReset(r viewport.Range) {
	d.send(rangeRequest{r: r, reset: true})
}

func (d *document) send(req rangeRequest) {
	select {
	case old := <-d.ranges:
		req.reset = req.reset || old.reset
	default:
	}
	select {
	case d.ranges <- req:
	default:
	}
}

// requestRefresh asks the worker to recompute the current range.
func (d *document) requestRefresh() {
	select {
	case d.refresh <- struct{}{}:
	default:
	}
}

// show is the resampler callback. It runs on the worker goroutine.
func (d *document) show(u viewport.Update) {
	fyne.Do(func() {
		d.scope.SetTraces(toTraces(u, d.channelName))
	})
}

func (d *document) setVisible(ch int, on bool) {
	if err := d.resampler.SetVisible(ch, on); err != nil {
		d.logger.Warn("[explorer] toggle channel", zap.Int("channel", ch), zap.Error(err))
		return
	}
	d.requestRefresh()
}

// showAll zooms out to the whole recording.
func (d *document) showAll() {
	d.scope.SetLimits(viewport.Range{Start: 0, End: d.rec.Duration()})
	d.requestRange(d.scope.XRange())
}

// setNames relabels the channel toggles and the drawn traces.
func (d *document) setNames(names []string) {
	d.names = append(d.names[:0], names...)
	for ch, c := range d.checks {
		c.SetText(d.channelName(ch))
	}
	traces := d.scope.Traces()
	relabeled := make([]scope.Trace, len(traces))
	for i, tr := range traces {
		tr.Name = d.channelName(tr.Channel)
		relabeled[i] = tr
	}
	d.scope.SetTraces(relabeled)
}

// applySettings changes sample rate and point budget and recomputes.
func (d *document) applySettings(cfg *config.Config) {
	if err := d.rec.SetSampleRate(cfg.SampleRate); err != nil {
		d.logger.Warn("[explorer] sample rate", zap.Error(err))
	}
	if err := d.resampler.SetMaxDisplaySamples(cfg.MaxDisplaySamples); err != nil {
		d.logger.Warn("[explorer] max display samples", zap.Error(err))
	}
	d.setNames(cfg.ChannelNames())

	// The time axis changed, so the old range means nothing.
	d.scope.SetLimits(viewport.Range{Start: 0, End: d.rec.Duration()})
	d.requestReset(d.scope.XRange())
}

func (d *document) channelName(ch int) string {
	if ch >= 0 && ch < len(d.names) && d.names[ch] != "" {
		return d.names[ch]
	}
	return fmt.Sprintf("CH%d", ch+1)
}

// close stops the worker and releases the recording.
func (d *document) close() error {
	d.cancel()
	if d.started {
		<-d.done
	}
	return d.rec.Close()
}

// toTraces converts resampler output into drawable traces.
func toTraces(u viewport.Update, name func(int) string) []scope.Trace {
	traces := make([]scope.Trace, 0, len(u.Series))
	for _, s := range u.Series {
		traces = append(traces, scope.Trace{
			Channel: s.Channel,
			Name:    name(s.Channel),
			Times:   s.Times,
			Values:  s.Values,
		})
	}
	return traces
}
