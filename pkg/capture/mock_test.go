package capture

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/itohio/gobsr/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMock_Signal(t *testing.T) {
	cfg := &config.MockConfig{
		Amplitude:  1000,
		SpikeEvery: 10,
		Frequency:  1,
	}
	m := NewMock(cfg, 2, 4, 0)
	rng := rand.New(rand.NewPCG(1, 2))

	frames := make([]Frame, 11)
	for i := range frames {
		frames[i] = m.frame(rng)
	}

	// 4 Hz sample rate, 1 Hz sine: a quarter period per frame
	assert.Equal(t, Frame{0, 707}, frames[0])
	assert.Equal(t, Frame{1000, 707}, frames[1])
	assert.Equal(t, Frame{0, -707}, frames[2])
	assert.Equal(t, Frame{-1000, -707}, frames[3])

	// Frame 10: sine at half period plus a spike up on even and down on odd channels
	assert.Equal(t, Frame{4000, -4707}, frames[10])
	assert.Equal(t, int64(11), m.produced)
}

func TestMock_NoiseBounded(t *testing.T) {
	cfg := &config.MockConfig{Amplitude: 100, Noise: 10, Frequency: 50}
	m := NewMock(cfg, 3, 1000, 0)
	rng := rand.New(rand.NewPCG(1, 2))

	for range 1000 {
		for _, v := range m.frame(rng) {
			assert.LessOrEqual(t, math.Abs(float64(v)), 110.0)
		}
	}
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, int32(math.MaxInt32), saturate(1e12))
	assert.Equal(t, int32(math.MinInt32), saturate(-1e12))
	assert.Equal(t, int32(3), saturate(2.6))
	assert.Equal(t, int32(-3), saturate(-2.6))
}

func TestMock_Defaults(t *testing.T) {
	m := NewMock(nil, 0, 0, 0)
	assert.Equal(t, config.Default().Capture.Mock, m.cfg)
	assert.Equal(t, 1, m.Channels())
	assert.Equal(t, config.Default().SampleRate, m.sampleRate)
}

func TestMock_ConnectTwice(t *testing.T) {
	m := NewMock(nil, 2, 1000, 0, WithLogger(zap.NewNop()))
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.ErrorIs(t, m.Connect(), ErrConnected)
	assert.True(t, m.IsConnected())
}

func TestMock_RealTimePacing(t *testing.T) {
	m := NewMock(nil, 1, 10000, 5*time.Millisecond, WithBufferSize(100000))
	require.NoError(t, m.Connect())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Close())

	n := 0
	for range m.Frames() {
		n++
	}
	// 50 frames per tick, around 20 ticks
	assert.Greater(t, n, 0)
	assert.Less(t, n, 10000)
}
