package bsr

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// writeRaw writes frames as interleaved little-endian int32 followed by extra bytes.
func writeRaw(t *testing.T, frames [][]int32, extra int) string {
	t.Helper()

	var raw []byte
	for _, f := range frames {
		for _, v := range f {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(v))
		}
	}
	raw = append(raw, make([]byte, extra)...)

	path := filepath.Join(t.TempDir(), "test.bsr")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func testFrames(n int) [][]int32 {
	frames := make([][]int32, n)
	for i := range frames {
		frames[i] = []int32{int32(i), -int32(i), int32(i * 1000), int32(1<<31 - 1 - i)}
	}
	return frames
}

func TestOpen_RoundTrip(t *testing.T) {
	frames := testFrames(100)
	path := writeRaw(t, frames, 0)

	rec, err := Open(path)
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, 100, rec.FrameCount())
	assert.Equal(t, DefaultChannels, rec.Channels())
	assert.Equal(t, DefaultSampleRate, rec.SampleRate())

	for ch := range DefaultChannels {
		c, err := rec.Channel(ch)
		require.NoError(t, err)
		assert.Equal(t, 100, c.Len())

		for i := range frames {
			v, err := c.At(i)
			require.NoError(t, err)
			assert.Equal(t, frames[i][ch], v, "channel %d frame %d", ch, i)
		}
	}
}

func TestChannel_Slice(t *testing.T) {
	frames := testFrames(50)
	rec, err := Open(writeRaw(t, frames, 0))
	require.NoError(t, err)
	defer rec.Close()

	c, err := rec.Channel(1)
	require.NoError(t, err)

	got, err := c.Slice(nil, 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, frames[10+i][1], v)
	}

	// Destination reuse
	dst := make([]int32, 0, 32)
	got, err = c.Slice(dst, 0, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, cap(dst), cap(got))

	got, err = c.Slice(nil, 7, 7)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, span := range [][2]int{{-1, 5}, {0, 51}, {10, 5}} {
		_, err = c.Slice(nil, span[0], span[1])
		assert.ErrorIs(t, err, ErrRange, "span %v", span)
	}

	_, err = c.At(50)
	assert.ErrorIs(t, err, ErrRange)
}

func TestOpen_TruncatesPartialFrame(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	const k = 10
	path := writeRaw(t, testFrames(k), 3)

	rec, err := Open(path, WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, k, rec.FrameCount())
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, int64(3), entry.ContextMap()["discarded"])

	last, err := rec.Frame(nil, k-1)
	require.NoError(t, err)
	assert.Equal(t, testFrames(k)[k-1], last)
}

func TestOpen_NoWarningForWholeFrames(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	rec, err := Open(writeRaw(t, testFrames(3), 0), WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, 0, logs.Len())
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing.bsr"))
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Open(writeRaw(t, nil, 0))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("less than one frame", func(t *testing.T) {
		_, err := Open(writeRaw(t, nil, 15))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("invalid options", func(t *testing.T) {
		path := writeRaw(t, testFrames(2), 0)
		_, err := Open(path, WithChannels(0))
		assert.Error(t, err)
		_, err = Open(path, WithSampleRate(-1))
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec, err := OpenContext(ctx, writeRaw(t, testFrames(2), 0))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, rec)
	})
}

func TestOpen_ChannelCount(t *testing.T) {
	// 12 values read as 3-channel frames
	path := writeRaw(t, [][]int32{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}, 0)

	rec, err := Open(path, WithChannels(3))
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, 4, rec.FrameCount())
	c, err := rec.Channel(2)
	require.NoError(t, err)
	got, err := c.Slice(nil, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 6, 9, 12}, got)
}

func TestRecording_ChannelRange(t *testing.T) {
	rec, err := Open(writeRaw(t, testFrames(4), 0))
	require.NoError(t, err)
	defer rec.Close()

	for _, idx := range []int{-1, 4, 100} {
		c, err := rec.Channel(idx)
		assert.ErrorIs(t, err, ErrRange, "channel %d", idx)
		assert.Nil(t, c)
	}
}

func TestRecording_UseAfterClose(t *testing.T) {
	rec, err := Open(writeRaw(t, testFrames(4), 0))
	require.NoError(t, err)

	c, err := rec.Channel(0)
	require.NoError(t, err)
	axis := rec.TimeAxis()

	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	_, err = rec.Channel(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.At(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Slice(nil, 0, 2)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = axis.At(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = axis.Slice(nil, 0, 2)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = rec.Frame(nil, 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = rec.Stats(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)

	// Metadata survives Close
	assert.Equal(t, 4, rec.Channels())
	assert.Equal(t, 4, rec.FrameCount())
	assert.Positive(t, rec.Duration())
	assert.NotEmpty(t, rec.Path())
}

func TestRecording_Duration(t *testing.T) {
	const frames = 1_000_000

	path := filepath.Join(t.TempDir(), "big.bsr")
	w, err := Create(path, DefaultChannels)
	require.NoError(t, err)
	frame := make([]int32, DefaultChannels)
	for i := range frames {
		frame[0] = int32(i)
		require.NoError(t, w.WriteFrame(frame))
	}
	require.NoError(t, w.Close())

	rec, err := Open(path, WithSampleRate(200000))
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, frames, rec.FrameCount())
	assert.Equal(t, 5.0, rec.Duration())

	require.NoError(t, rec.SetSampleRate(100000))
	assert.Equal(t, 10.0, rec.Duration())
	assert.Error(t, rec.SetSampleRate(0))
}

func TestTimeAxis(t *testing.T) {
	rec, err := Open(writeRaw(t, testFrames(1000), 0), WithSampleRate(100))
	require.NoError(t, err)
	defer rec.Close()

	axis := rec.TimeAxis()
	assert.Equal(t, 1000, axis.Len())

	v, err := axis.At(250)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	got, err := axis.Slice(nil, 10, 14)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.11, 0.12, 0.13}, got)

	_, err = axis.At(1000)
	assert.ErrorIs(t, err, ErrRange)

	tests := []struct {
		sec  float64
		want int
	}{
		{0, 0},
		{0.004, 0},
		{0.006, 1},
		{2.5, 250},
		{-3, 0},
		{100, 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, axis.Index(tt.sec), "Index(%v)", tt.sec)
	}
}

func TestRecording_Summary(t *testing.T) {
	rec, err := Open(writeRaw(t, testFrames(2000), 0), WithSampleRate(1000))
	require.NoError(t, err)
	defer rec.Close()

	assert.Equal(t, "File: test.bsr | Samples: 2,000 | Duration: 2.00s | Sample Rate: 1 kHz", rec.Summary())
}

func TestRecording_Stats(t *testing.T) {
	frames := [][]int32{{1, -4, 0, 0}, {2, 4, 0, 0}, {3, -4, 0, 0}, {6, 4, 0, 0}}
	rec, err := Open(writeRaw(t, frames, 0))
	require.NoError(t, err)
	defer rec.Close()

	st, err := rec.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 6.0, st.Max)
	assert.Equal(t, 3.0, st.Mean)

	st, err = rec.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Mean)
	assert.Equal(t, 4.0, st.RMS)

	_, err = rec.Stats(context.Background(), 4)
	assert.ErrorIs(t, err, ErrRange)
}
