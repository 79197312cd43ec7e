package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Serial streams frames from an MCU printing one text line per frame:
// comma-separated signed integers, one per channel.
type Serial struct {
	port     string
	baudRate int
	channels int
	logger   *zap.Logger

	conn      serial.Port
	frames    chan Frame
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	dropped   int64
}

// NewSerial creates a device reading channels values per line from port.
func NewSerial(port string, baudRate, channels int, opts ...Option) *Serial {
	o := newOptions(opts)
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if channels <= 0 {
		channels = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		channels: channels,
		logger:   o.logger,
		frames:   make(chan Frame, o.bufSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect opens the serial port and starts reading frames.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrConnected
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("capture: %s was closed", d.port)
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readFrames(port)

	return nil
}

// Close closes the port and waits for the reader to stop. Frames is closed
// afterwards.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}
	d.cancel()
	d.connected = false
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	var err error
	if conn != nil {
		if err = conn.Close(); err != nil {
			d.logger.Warn("[capture] error closing serial port", zap.String("port", d.port), zap.Error(err))
		}
	}
	<-d.done
	return err
}

// Frames returns the channel of received frames.
func (d *Serial) Frames() <-chan Frame {
	return d.frames
}

// Channels returns the number of values per frame.
func (d *Serial) Channels() int {
	return d.channels
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Dropped returns how many frames were discarded because the consumer was slow.
func (d *Serial) Dropped() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// readFrames reads lines from r until it fails or the device is closed.
func (d *Serial) readFrames(r io.Reader) {
	defer close(d.done)
	defer close(d.frames)
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("[capture] panic in serial reader", zap.Any("panic", rec))
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if d.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, err := parseLine(line, d.channels)
		if err != nil {
			d.logger.Debug("[capture] skipping line", zap.String("line", line), zap.Error(err))
			continue
		}

		select {
		case d.frames <- frame:
		case <-d.ctx.Done():
			return
		default:
			d.mu.Lock()
			d.dropped++
			d.mu.Unlock()
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && d.ctx.Err() == nil {
		d.logger.Warn("[capture] error reading from serial port", zap.String("port", d.port), zap.Error(err))
	}
}

// parseLine parses one frame.
// Format: v0,v1,...,vN-1
// Example: 120,-4,5000,17
func parseLine(line string, channels int) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) != channels {
		return nil, fmt.Errorf("invalid line format: expected %d comma-separated values, got %d", channels, len(parts))
	}

	frame := make(Frame, channels)
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value for channel %d: %w", i, err)
		}
		frame[i] = int32(v)
	}
	return frame, nil
}
