package main

import (
	"context"
	"fmt"

	"github.com/itohio/gobsr/pkg/convert"
)

// wav2bsr converts a PCM WAV file. The recording keeps the WAV channel
// count; open it with the printed sample rate.
func (t *tool) wav2bsr(ctx context.Context, args []string) error {
	fs := t.flagSet("wav2bsr", "in.wav out.bsr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := positional(fs, 2, 2); err != nil {
		return err
	}

	info, err := convert.ImportFile(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "wrote %d frames, %d channels, %d bit, %d Hz to %s\n",
		info.Frames, info.Channels, info.BitDepth, info.SampleRate, fs.Arg(1))
	return nil
}

// bsr2wav exports the whole recording or [start, end) seconds of it.
func (t *tool) bsr2wav(ctx context.Context, args []string) error {
	fs := t.flagSet("bsr2wav", "in.bsr out.wav")
	rf := t.recordingFlags(fs)
	var (
		start = fs.Float64("start", 0, "Start in seconds")
		end   = fs.Float64("end", 0, "End in seconds (0 = end of recording)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := positional(fs, 2, 2); err != nil {
		return err
	}

	rec, err := rf.open(ctx, fs.Arg(0), t.logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	axis := rec.TimeAxis()
	lo, hi := axis.Index(*start), rec.FrameCount()
	if *end > 0 {
		hi = axis.Index(*end)
	}
	info, err := convert.ExportFile(ctx, rec, fs.Arg(1), lo, hi)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "wrote %d frames, %d channels, %d Hz to %s\n",
		info.Frames, info.Channels, info.SampleRate, fs.Arg(1))
	return nil
}
