// Package capture streams frames from an acquisition device, real or mocked,
// and records them into BSR files.
package capture

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the serial baud rate used when none is configured.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size of the frames channel buffer.
	DefaultBufferSize = 1024
)

var (
	// ErrConnected is returned by Connect on a device that is already streaming.
	ErrConnected = errors.New("capture: already connected")
	// ErrNotConnected is returned when streaming has not been started.
	ErrNotConnected = errors.New("capture: not connected")
)

// Frame holds one value per channel, in channel order.
type Frame []int32

// Device defines the interface for acquisition devices (real or mocked).
// Frames is closed once the device stops streaming.
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan Frame
	Channels() int
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

// Option configures a device.
type Option func(*options)

type options struct {
	bufSize int
	logger  *zap.Logger
}

// WithBufferSize sets the capacity of the frames channel.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufSize = n }
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufSize <= 0 {
		o.bufSize = DefaultBufferSize
	}
	if o.logger == nil {
		o.logger = zap.L()
	}
	return o
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports. USB ports are described by
// product name and VID:PID when the platform reports them.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, lerr := serial.GetPortsList()
		if lerr != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", lerr)
		}
		result := make([]Port, 0, len(names))
		for _, name := range names {
			result = append(result, Port{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s (%s:%s)", d.Name, d.VID, d.PID)
			if d.Product != "" {
				desc = fmt.Sprintf("%s - %s", desc, d.Product)
			}
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}
	return result, nil
}
