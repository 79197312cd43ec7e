package capture

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorder_Limit(t *testing.T) {
	cfg := &config.MockConfig{Amplitude: 1000, SpikeEvery: 100, Frequency: 10}
	dev := NewMock(cfg, 4, 1000, 0)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	path := filepath.Join(t.TempDir(), "capture.bsr")
	w, err := bsr.Create(path, 4)
	require.NoError(t, err)

	var progress []int64
	rec := NewRecorder(dev, w, zap.NewNop())
	rec.ProgressEvery = 1000
	rec.Progress = func(n int64) { progress = append(progress, n) }

	n, err := rec.Record(context.Background(), 2500)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, int64(2500), n)
	assert.Equal(t, []int64{1000, 2000}, progress)

	r, err := bsr.Open(path, bsr.WithSampleRate(1000))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2500, r.FrameCount())

	// Spike every 100 frames on channel 0
	c, err := r.Channel(0)
	require.NoError(t, err)
	v, err := c.At(100)
	require.NoError(t, err)
	assert.Greater(t, v, int32(3000))
}

func TestRecorder_StopsWhenDeviceCloses(t *testing.T) {
	dev := NewSerial("test", 0, 2)
	w, err := bsr.Create(filepath.Join(t.TempDir(), "serial.bsr"), 2)
	require.NoError(t, err)
	defer w.Close()

	go dev.readFrames(strings.NewReader("1,2\n3,4\n5,6\n"))

	n, err := NewRecorder(dev, w, nil).Record(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), w.Frames())
}

func TestRecorder_Cancel(t *testing.T) {
	dev := NewMock(nil, 2, 1000, 5*time.Millisecond)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	w, err := bsr.Create(filepath.Join(t.TempDir(), "cancel.bsr"), 2)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var n int64
	go func() {
		defer close(done)
		n, err = NewRecorder(dev, w, zap.NewNop()).Record(ctx, 0)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record did not stop on cancellation")
	}
	require.NoError(t, err)
	assert.Equal(t, w.Frames(), n)
}

func TestRecorder_ChannelMismatch(t *testing.T) {
	dev := NewMock(nil, 3, 1000, 0)
	w, err := bsr.Create(filepath.Join(t.TempDir(), "mismatch.bsr"), 4)
	require.NoError(t, err)
	defer w.Close()

	_, err = NewRecorder(dev, w, nil).Record(context.Background(), 10)
	assert.ErrorIs(t, err, bsr.ErrRange)
}
