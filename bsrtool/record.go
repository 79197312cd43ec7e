package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/capture"
)

// gen writes frames of the mock device to a file.
func (t *tool) gen(ctx context.Context, args []string) error {
	fs := t.flagSet("gen", "out.bsr")
	var (
		frames   = fs.Int64("frames", int64(t.cfg.SampleRate)*5, "Frames to write")
		channels = fs.Int("channels", len(t.cfg.Channels), "Channels per frame")
		rate     = fs.Int("rate", t.cfg.SampleRate, "Sample rate in Hz")
		realtime = fs.Bool("realtime", false, "Pace frames to the sample rate")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := positional(fs, 1, 1); err != nil {
		return err
	}
	if *frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", *frames)
	}

	tick := time.Duration(0)
	if *realtime {
		tick = capture.DefaultTick
	}
	dev := capture.NewMock(&t.cfg.Capture.Mock, *channels, *rate, tick, capture.WithLogger(t.logger))
	return t.record(ctx, dev, fs.Arg(0), *frames)
}

// capture records frames from the serial device until the frame limit, the
// duration or an interrupt.
func (t *tool) capture(ctx context.Context, args []string) error {
	fs := t.flagSet("capture", "out.bsr")
	var (
		port     = fs.String("p", t.cfg.Capture.Port, "Serial port (e.g., COM3 or /dev/ttyACM0)")
		baud     = fs.Int("baud", t.cfg.Capture.BaudRate, "Baud rate")
		channels = fs.Int("channels", len(t.cfg.Channels), "Values per line")
		frames   = fs.Int64("frames", 0, "Stop after this many frames (0 = no limit)")
		duration = fs.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
		list     = fs.Bool("list", false, "List serial ports and exit")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *list {
		return t.listPorts()
	}
	if err := positional(fs, 1, 1); err != nil {
		return err
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	dev := capture.NewSerial(*port, *baud, *channels, capture.WithLogger(t.logger))
	return t.record(ctx, dev, fs.Arg(0), *frames)
}

func (t *tool) listPorts() error {
	ports, err := capture.Ports()
	if err != nil {
		return err
	}
	for _, p := range ports {
		if p.Description != "" && p.Description != p.Name {
			fmt.Fprintf(t.out, "%s\t%s\n", p.Name, p.Description)
			continue
		}
		fmt.Fprintln(t.out, p.Name)
	}
	return nil
}

// record connects dev and writes up to limit frames into path.
func (t *tool) record(ctx context.Context, dev capture.Device, path string, limit int64) (err error) {
	if err := dev.Connect(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dev.Close())
	}()

	w, err := bsr.Create(path, dev.Channels())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	rec := capture.NewRecorder(dev, w, t.logger)
	rec.Progress = func(frames int64) {
		t.logger.Info("[bsrtool] progress", zap.String("path", path), zap.Int64("frames", frames))
	}
	n, err := rec.Record(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "wrote %d frames to %s\n", n, path)
	return nil
}
