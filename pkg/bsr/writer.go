package bsr

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Writer appends frames to a BSR stream.
type Writer struct {
	w        *bufio.Writer
	closer   io.Closer
	channels int
	frames   int64
	buf      []byte
}

// NewWriter returns a Writer producing frames of the given channel count.
func NewWriter(w io.Writer, channels int) *Writer {
	if channels <= 0 {
		channels = DefaultChannels
	}
	return &Writer{
		w:        bufio.NewWriterSize(w, 1<<16),
		channels: channels,
		buf:      make([]byte, channels*SampleWidth),
	}
}

// Create creates or truncates the file at path and returns a Writer for it.
func Create(path string, channels int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	w := NewWriter(f, channels)
	w.closer = f
	return w, nil
}

// Channels returns the number of values expected per frame.
func (w *Writer) Channels() int {
	return w.channels
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 {
	return w.frames
}

// WriteFrame writes one frame. frame must hold exactly one value per channel.
func (w *Writer) WriteFrame(frame []int32) error {
	if len(frame) != w.channels {
		return fmt.Errorf("%w: frame has %d values, want %d", ErrRange, len(frame), w.channels)
	}
	for ch, v := range frame {
		binary.LittleEndian.PutUint32(w.buf[ch*SampleWidth:], uint32(v))
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	w.frames++
	return nil
}

// Flush writes buffered frames to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Close flushes and, for writers returned by Create, closes the file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrIO, cerr)
		}
		w.closer = nil
	}
	return err
}
