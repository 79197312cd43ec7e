package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/viewport"
)

// recordingFlags are the layout flags shared by commands reading recordings.
type recordingFlags struct {
	channels *int
	rate     *int
}

func (t *tool) recordingFlags(fs *flag.FlagSet) recordingFlags {
	return recordingFlags{
		channels: fs.Int("channels", len(t.cfg.Channels), "Channels per frame"),
		rate:     fs.Int("rate", t.cfg.SampleRate, "Sample rate in Hz"),
	}
}

func (f recordingFlags) open(ctx context.Context, path string, logger *zap.Logger) (*bsr.Recording, error) {
	return bsr.OpenContext(ctx, path,
		bsr.WithChannels(*f.channels),
		bsr.WithSampleRate(*f.rate),
		bsr.WithLogger(logger),
	)
}

// info prints the summary line and per-channel statistics of each file.
func (t *tool) info(ctx context.Context, args []string) error {
	fs := t.flagSet("info", "file.bsr ...")
	rf := t.recordingFlags(fs)
	stats := fs.Bool("stats", true, "Scan channels for min, max, mean and RMS")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := positional(fs, 1, -1); err != nil {
		return err
	}

	for _, path := range fs.Args() {
		if err := t.infoFile(ctx, rf, path, *stats); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (t *tool) infoFile(ctx context.Context, rf recordingFlags, path string, stats bool) error {
	rec, err := rf.open(ctx, path, t.logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	fmt.Fprintln(t.out, rec.Summary())
	if !stats {
		return nil
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "channel\tname\tmin\tmax\tmean\trms\t")
	for ch := range rec.Channels() {
		st, err := rec.Stats(ctx, ch)
		if err != nil {
			return err
		}
		p.Fprintf(tw, "%d\t%s\t%.0f\t%.0f\t%.2f\t%.2f\t\n", ch, t.cfg.ChannelName(ch), st.Min, st.Max, st.Mean, st.RMS)
	}
	return tw.Flush()
}

// reduce runs the viewport resampler once and writes channel,time,value
// rows of the result.
func (t *tool) reduce(ctx context.Context, args []string) error {
	fs := t.flagSet("reduce", "file.bsr")
	rf := t.recordingFlags(fs)
	var (
		start   = fs.Float64("start", 0, "Visible range start in seconds")
		end     = fs.Float64("end", 0, "Visible range end in seconds (0 = whole recording)")
		channel = fs.Int("channel", -1, "Only this channel (-1 = all)")
		budget  = fs.Int("max", t.cfg.MaxDisplaySamples, "Max display samples per channel")
		workers = fs.Int("workers", t.cfg.View.Workers, "Channels reduced in parallel")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := positional(fs, 1, 1); err != nil {
		return err
	}

	rec, err := rf.open(ctx, fs.Arg(0), t.logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	r := viewport.New(rec,
		viewport.WithMaxDisplaySamples(*budget),
		viewport.WithWorkers(*workers),
		viewport.WithLogger(t.logger),
	)
	if *channel >= rec.Channels() {
		return fmt.Errorf("%w: channel %d not in [0, %d)", bsr.ErrRange, *channel, rec.Channels())
	}
	if *channel >= 0 {
		for ch := range rec.Channels() {
			if err := r.SetVisible(ch, ch == *channel); err != nil {
				return err
			}
		}
	}

	var u viewport.Update
	if *end <= *start {
		u, err = r.Full(ctx)
	} else {
		var ok bool
		u, ok, err = r.RangeChanged(ctx, viewport.Range{Start: *start, End: *end})
		if err == nil && !ok {
			err = errors.New("no samples in the requested range")
		}
	}
	if err != nil {
		return err
	}

	t.logger.Debug("[bsrtool] reduced",
		zap.Stringer("range", u.Range),
		zap.Stringer("window", u.Window),
		zap.Int("frames", u.End-u.Start),
	)
	return writeSeries(t, u)
}

func writeSeries(t *tool, u viewport.Update) error {
	w := csv.NewWriter(t.out)
	if err := w.Write([]string{"channel", "name", "time", "value"}); err != nil {
		return err
	}
	for _, s := range u.Series {
		name := t.cfg.ChannelName(s.Channel)
		ch := strconv.Itoa(s.Channel)
		for i, v := range s.Values {
			row := []string{ch, name, strconv.FormatFloat(s.Times[i], 'g', -1, 64), strconv.FormatInt(int64(v), 10)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
