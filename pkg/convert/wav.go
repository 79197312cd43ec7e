// Package convert moves recordings between BSR and PCM WAV files.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/itohio/gobsr/pkg/bsr"
)

const (
	// chunkFrames is the number of frames moved per read/write.
	chunkFrames = 4096
	// exportBitDepth is the WAV sample size used on export; it holds an
	// int32 sample without loss.
	exportBitDepth = 32
	// wavFormatPCM is the WAVE_FORMAT_PCM tag.
	wavFormatPCM = 1
)

// ErrInvalidWAV is returned when the input is not a readable PCM WAV stream.
var ErrInvalidWAV = errors.New("convert: invalid WAV file")

// Info describes a converted stream.
type Info struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Frames     int64
}

// ImportWAV decodes a PCM WAV stream into BSR frames written to w. Samples
// keep their integer value at the source bit depth; the channel count comes
// from the WAV header. Info.SampleRate must be supplied to bsr.Open later,
// since BSR files do not store it.
func ImportWAV(ctx context.Context, r io.ReadSeeker, w io.Writer) (Info, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Info{}, ErrInvalidWAV
	}

	format := dec.Format()
	info := Info{
		Channels:   format.NumChannels,
		SampleRate: format.SampleRate,
		BitDepth:   int(dec.BitDepth),
	}
	if info.Channels <= 0 {
		return info, fmt.Errorf("%w: %d channels", ErrInvalidWAV, info.Channels)
	}

	bw := bsr.NewWriter(w, info.Channels)
	buf := &audio.IntBuffer{
		Data:   make([]int, chunkFrames*info.Channels),
		Format: format,
	}
	frame := make([]int32, info.Channels)

	for {
		if err := ctx.Err(); err != nil {
			return info, err
		}

		buf.Data = buf.Data[:cap(buf.Data)]
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return info, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}

		// n counts interleaved samples; a trailing partial frame is dropped
		for i := 0; i+info.Channels <= n; i += info.Channels {
			for ch := range frame {
				frame[ch] = int32(buf.Data[i+ch])
			}
			if err := bw.WriteFrame(frame); err != nil {
				return info, err
			}
		}
	}

	info.Frames = bw.Frames()
	return info, bw.Flush()
}

// ExportWAV encodes frames [start, end) of every channel of rec as a 32-bit
// PCM WAV stream at the recording's sample rate.
func ExportWAV(ctx context.Context, rec *bsr.Recording, w io.WriteSeeker, start, end int) (info Info, err error) {
	if start < 0 || end > rec.FrameCount() || start > end {
		return Info{}, fmt.Errorf("%w: frames [%d, %d) not in [0, %d)", bsr.ErrRange, start, end, rec.FrameCount())
	}

	info = Info{
		Channels:   rec.Channels(),
		SampleRate: rec.SampleRate(),
		BitDepth:   exportBitDepth,
	}

	chans := make([]*bsr.Channel, info.Channels)
	for ch := range chans {
		if chans[ch], err = rec.Channel(ch); err != nil {
			return info, err
		}
	}

	enc := wav.NewEncoder(w, info.SampleRate, exportBitDepth, info.Channels, wavFormatPCM)
	// Close writes the final chunk sizes into the header
	defer func() {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to finalize WAV: %w", cerr)
		}
	}()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: info.Channels, SampleRate: info.SampleRate},
		Data:           make([]int, 0, chunkFrames*info.Channels),
		SourceBitDepth: exportBitDepth,
	}
	values := make([][]int32, info.Channels)

	for lo := start; lo < end; lo += chunkFrames {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		hi := min(lo+chunkFrames, end)

		for ch, c := range chans {
			if values[ch], err = c.Slice(values[ch], lo, hi); err != nil {
				return info, err
			}
		}

		buf.Data = buf.Data[:0]
		for i := range hi - lo {
			for ch := range values {
				buf.Data = append(buf.Data, int(values[ch][i]))
			}
		}
		if err := enc.Write(buf); err != nil {
			return info, fmt.Errorf("failed to write audio data: %w", err)
		}
		info.Frames += int64(hi - lo)
	}

	return info, nil
}
