package capture

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/gobsr/pkg/config"
	"go.uber.org/zap"
)

// DefaultTick is how often a real-time Mock emits a batch of frames.
const DefaultTick = 10 * time.Millisecond

// Mock simulates an acquisition device: per channel a phase shifted sine
// with noise, a positive spike on even channels and a dropout on odd
// channels every SpikeEvery frames.
type Mock struct {
	cfg        config.MockConfig
	channels   int
	sampleRate int
	tick       time.Duration
	seed       uint64
	logger     *zap.Logger

	frames    chan Frame
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	produced  int64
	dropped   int64
}

// NewMock creates a mock device. A zero tick generates frames as fast as
// they are consumed; otherwise frames are paced to sampleRate and dropped
// when the consumer falls behind.
func NewMock(cfg *config.MockConfig, channels, sampleRate int, tick time.Duration, opts ...Option) *Mock {
	o := newOptions(opts)
	if cfg == nil {
		cfg = &config.Default().Capture.Mock
	}
	if channels <= 0 {
		channels = 1
	}
	if sampleRate <= 0 {
		sampleRate = config.Default().SampleRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:        *cfg,
		channels:   channels,
		sampleRate: sampleRate,
		tick:       tick,
		seed:       1,
		logger:     o.logger,
		frames:     make(chan Frame, o.bufSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Connect starts generating frames.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrConnected
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("capture: mock device was closed")
	}

	m.connected = true
	go m.generateFrames()

	return nil
}

// Close stops the generator and waits for it. Frames is closed afterwards.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	return nil
}

// Frames returns the channel of generated frames.
func (m *Mock) Frames() <-chan Frame {
	return m.frames
}

// Channels returns the number of values per frame.
func (m *Mock) Channels() int {
	return m.channels
}

// IsConnected returns whether the device is currently generating.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Dropped returns how many real-time frames the consumer missed.
func (m *Mock) Dropped() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

func (m *Mock) generateFrames() {
	defer close(m.done)
	defer close(m.frames)

	rng := rand.New(rand.NewPCG(m.seed, uint64(m.channels)))

	if m.tick <= 0 {
		for {
			frame := m.frame(rng)
			select {
			case m.frames <- frame:
			case <-m.ctx.Done():
				return
			}
		}
	}

	perTick := max(1, int(math.Round(float64(m.sampleRate)*m.tick.Seconds())))
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			dropped := 0
			for range perTick {
				select {
				case m.frames <- m.frame(rng):
				case <-m.ctx.Done():
					return
				default:
					dropped++
				}
			}
			if dropped > 0 {
				m.mu.Lock()
				m.dropped += int64(dropped)
				m.mu.Unlock()
				m.logger.Debug("[capture] consumer too slow, dropping frames", zap.Int("dropped", dropped))
			}
		}
	}
}

// frame generates the next frame. Only the generator goroutine calls it.
func (m *Mock) frame(rng *rand.Rand) Frame {
	i := m.produced
	m.produced++

	f := make(Frame, m.channels)
	t := float64(i) / float64(m.sampleRate)
	spike := m.cfg.SpikeEvery > 0 && i > 0 && i%int64(m.cfg.SpikeEvery) == 0

	for ch := range f {
		phase := float64(ch) * math.Pi / 4
		v := m.cfg.Amplitude * math.Sin(2*math.Pi*m.cfg.Frequency*t+phase)
		if m.cfg.Noise > 0 {
			v += m.cfg.Noise * (2*rng.Float64() - 1)
		}
		if spike {
			if ch%2 == 0 {
				v += 4 * m.cfg.Amplitude
			} else {
				v -= 4 * m.cfg.Amplitude
			}
		}
		f[ch] = saturate(v)
	}
	return f
}

func saturate(v float64) int32 {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(math.Round(v))
}
