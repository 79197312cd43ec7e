package bsr

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultSampleRate is the sample rate assumed when none is configured (Hz).
	DefaultSampleRate = 200000
	// DefaultChannels is the number of interleaved channels per frame.
	DefaultChannels = 4
	// SampleWidth is the size of one sample in bytes (signed 32-bit little-endian).
	SampleWidth = 4
)

// Option configures how a recording is opened.
type Option func(*options)

type options struct {
	channels   int
	sampleRate int
	logger     *zap.Logger
}

// WithChannels sets the number of interleaved channels per frame.
func WithChannels(n int) Option {
	return func(o *options) { o.channels = n }
}

// WithSampleRate sets the sample rate in Hz. The file does not store it.
func WithSampleRate(hz int) Option {
	return func(o *options) { o.sampleRate = hz }
}

// WithLogger sets the logger used for warnings. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Recording is a read-only, memory-mapped view of a BSR file: a flat
// sequence of frames, each holding one int32 sample per channel.
type Recording struct {
	path     string
	channels int
	frames   int
	logger   *zap.Logger

	mu         sync.RWMutex
	sampleRate int
	data       []byte
	release    func([]byte) error
	closed     bool
}

// Open maps the file at path. See OpenContext.
func Open(path string, opts ...Option) (*Recording, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext maps the file at path read-only. Trailing bytes that do not
// form a whole frame are ignored with a warning. The context is checked
// between stages; a cancelled open releases everything it acquired.
func OpenContext(ctx context.Context, path string, opts ...Option) (*Recording, error) {
	o := options{
		channels:   DefaultChannels,
		sampleRate: DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}
	if o.channels <= 0 {
		return nil, fmt.Errorf("bsr: channel count must be positive, got %d", o.channels)
	}
	if o.sampleRate <= 0 {
		return nil, fmt.Errorf("bsr: sample rate must be positive, got %d", o.sampleRate)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	frameSize := int64(o.channels * SampleWidth)
	size := st.Size()
	frames := size / frameSize
	if rem := size % frameSize; rem != 0 {
		o.logger.Warn("[bsr] file size is not a multiple of the frame size, ignoring trailing bytes",
			zap.String("path", path),
			zap.Int64("size", size),
			zap.Int64("frameSize", frameSize),
			zap.Int64("discarded", rem),
		)
	}
	if frames == 0 {
		return nil, fmt.Errorf("%w: %s holds no complete %d-channel frame (%d bytes)", ErrFormat, path, o.channels, size)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, release, err := mapFile(f, frames*frameSize)
	if err != nil {
		return nil, fmt.Errorf("%w: map %s: %w", ErrIO, path, err)
	}

	if err := ctx.Err(); err != nil {
		_ = release(data)
		return nil, err
	}

	return &Recording{
		path:       path,
		channels:   o.channels,
		frames:     int(frames),
		logger:     o.logger,
		sampleRate: o.sampleRate,
		data:       data,
		release:    release,
	}, nil
}

// Path returns the file the recording was opened from.
func (r *Recording) Path() string {
	return r.path
}

// Channels returns the number of channels per frame.
func (r *Recording) Channels() int {
	return r.channels
}

// FrameCount returns the number of complete frames.
func (r *Recording) FrameCount() int {
	return r.frames
}

// SampleRate returns the sample rate in Hz.
func (r *Recording) SampleRate() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sampleRate
}

// SetSampleRate changes the sample rate used for the time axis.
func (r *Recording) SetSampleRate(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("bsr: sample rate must be positive, got %d", hz)
	}
	r.mu.Lock()
	r.sampleRate = hz
	r.mu.Unlock()
	return nil
}

// Duration returns the length of the recording in seconds.
func (r *Recording) Duration() float64 {
	rate := r.SampleRate()
	if r.frames == 0 {
		return 0
	}
	return float64(r.frames) / float64(rate)
}

// Channel returns a zero-copy view of one channel.
func (r *Recording) Channel(idx int) (*Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}
	if idx < 0 || idx >= r.channels {
		return nil, fmt.Errorf("%w: channel %d not in [0, %d)", ErrRange, idx, r.channels)
	}
	return &Channel{rec: r, idx: idx}, nil
}

// TimeAxis returns the lazily computed time axis of the recording.
func (r *Recording) TimeAxis() *TimeAxis {
	return &TimeAxis{rec: r}
}

// Frame decodes all channel values of frame i into dst, reusing its capacity.
func (r *Recording) Frame(dst []int32, i int) ([]int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return dst[:0], ErrClosed
	}
	if i < 0 || i >= r.frames {
		return dst[:0], fmt.Errorf("%w: frame %d not in [0, %d)", ErrRange, i, r.frames)
	}
	if cap(dst) < r.channels {
		dst = make([]int32, r.channels)
	}
	dst = dst[:r.channels]
	for ch := range dst {
		dst[ch] = r.sample(i, ch)
	}
	return dst, nil
}

// Close releases the mapping. Views derived from the recording fail with
// ErrClosed afterwards. Closing twice is a no-op.
func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	data := r.data
	r.data = nil
	if err := r.release(data); err != nil {
		return fmt.Errorf("%w: unmap %s: %w", ErrIO, r.path, err)
	}
	return nil
}

// Summary returns a one-line description for status display.
func (r *Recording) Summary() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("File: %s | Samples: %d | Duration: %.2fs | Sample Rate: %.0f kHz",
		filepath.Base(r.path), r.frames, r.Duration(), float64(r.SampleRate())/1000)
}

// sample decodes channel ch of frame i. The caller holds r.mu.
func (r *Recording) sample(i, ch int) int32 {
	off := (i*r.channels + ch) * SampleWidth
	return int32(binary.LittleEndian.Uint32(r.data[off:]))
}
