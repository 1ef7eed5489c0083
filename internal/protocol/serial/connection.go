// internal/protocol/serial/connection.go
package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"xbee/internal/model"
	"xbee/internal/protocol"
)

// portHandle is the subset of serial.Port the connection relies on
type portHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// allow tests to override the OS serial layer
var (
	openPort = func(name string, mode *serial.Mode) (portHandle, error) {
		return serial.Open(name, mode)
	}
	getPortsList = serial.GetPortsList
)

// Config represents serial port configuration
type Config struct {
	Port        model.PortConfig
	ReadTimeout time.Duration
}

// Connection is an exclusively owned, raw-mode serial line to one module
type Connection struct {
	config *Config
	port   portHandle
	logger *zap.Logger
	stats  protocol.ProtocolStats
}

var _ protocol.Port = (*Connection)(nil)

// Open opens the device read/write at the configured baud rate, 8N1 with no
// flow control, and discards anything already queued in either direction.
func Open(config *Config, logger *zap.Logger) (*Connection, error) {
	if err := config.Port.Validate(); err != nil {
		return nil, err
	}
	device := config.Port.DevicePath
	logger = logger.With(
		zap.String("protocol", "serial"),
		zap.String("port", device),
	)

	logger.Info("Opening serial port", zap.Int("baud_rate", int(config.Port.BaudRate)))

	mode := &serial.Mode{
		BaudRate: int(config.Port.BaudRate),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(device, mode)
	if err != nil {
		logger.Error("Failed to open serial port", zap.Error(err))
		return nil, &model.IOError{Device: device, Op: "open", Err: err}
	}

	// Stale bytes would be taken for the reply to "+++".
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, &model.IOError{Device: device, Op: "flush input", Err: err}
	}
	if err := port.ResetOutputBuffer(); err != nil {
		port.Close()
		return nil, &model.IOError{Device: device, Op: "flush output", Err: err}
	}

	if config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
			port.Close()
			return nil, &model.IOError{Device: device, Op: "set read timeout", Err: err}
		}
	}

	c := &Connection{
		config: config,
		port:   port,
		logger: logger,
	}
	c.stats.IsConnected = true
	c.stats.LastActivity = time.Now()

	logger.Info("Serial port opened successfully")
	return c, nil
}

// Read reads from the serial port. A read that returns nothing because the
// read timeout expired is reported as model.ErrReadTimeout.
func (c *Connection) Read(p []byte) (int, error) {
	if c.port == nil {
		return 0, &model.IOError{Device: c.device(), Op: "read", Err: fmt.Errorf("port not open")}
	}

	n, err := c.port.Read(p)
	if err != nil {
		c.stats.ErrorCount++
		c.logger.Error("Serial read failed", zap.Error(err))
		return n, &model.IOError{Device: c.device(), Op: "read", Err: err}
	}
	if n == 0 && len(p) > 0 && c.config.ReadTimeout > 0 {
		c.stats.ErrorCount++
		return 0, &model.IOError{Device: c.device(), Op: "read", Err: model.ErrReadTimeout}
	}

	c.stats.BytesRead += int64(n)
	c.stats.LastActivity = time.Now()
	return n, nil
}

// Write writes data to the serial port
func (c *Connection) Write(data []byte) (int, error) {
	if c.port == nil {
		return 0, &model.IOError{Device: c.device(), Op: "write", Err: fmt.Errorf("port not open")}
	}

	startTime := time.Now()
	n, err := c.port.Write(data)
	if err != nil {
		c.stats.ErrorCount++
		c.logger.Error("Serial write failed", zap.Error(err))
		return n, &model.IOError{Device: c.device(), Op: "write", Err: err}
	}

	c.stats.BytesWritten += int64(n)
	c.stats.OperationCount++
	c.stats.LastActivity = time.Now()
	c.stats.RecordLatency(time.Since(startTime))

	c.logger.Debug("Serial write completed", zap.Int("bytes", n))
	return n, nil
}

// Close closes the serial connection
func (c *Connection) Close() error {
	if c.port == nil {
		return nil
	}

	err := c.port.Close()
	c.port = nil
	c.stats.IsConnected = false
	if err != nil {
		c.logger.Error("Failed to close serial port", zap.Error(err))
		return &model.IOError{Device: c.device(), Op: "close", Err: err}
	}

	c.logger.Info("Serial port closed",
		zap.Int64("bytes_written", c.stats.BytesWritten),
		zap.Int64("bytes_read", c.stats.BytesRead),
		zap.Int64("error_count", c.stats.ErrorCount),
	)
	return nil
}

// Stats returns a snapshot of the connection statistics
func (c *Connection) Stats() protocol.ProtocolStats {
	return c.stats
}

func (c *Connection) device() string {
	return c.config.Port.DevicePath
}

// ListPorts returns the serial ports currently visible to the OS
func ListPorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, &model.IOError{Device: "serial", Op: "list ports", Err: err}
	}
	return ports, nil
}
