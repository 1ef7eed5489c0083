package xbee

import (
	"time"

	"go.uber.org/zap"
)

// DefaultGuardTime is the line silence the module needs around "+++"
const DefaultGuardTime = time.Second

// LineBufferSize bounds a single response line; one byte is kept spare so a
// line never exceeds LineBufferSize-1 bytes.
const LineBufferSize = 1024

// Config holds the driver configuration.
type Config struct {
	// GuardTime is slept before and after the escape sequence
	GuardTime time.Duration

	// Sleep waits out the guard time; tests swap it for a fake clock
	Sleep func(time.Duration)

	// Logger receives exchange level debug output
	Logger *zap.Logger
}

func defaultConfig() Config {
	return Config{
		GuardTime: DefaultGuardTime,
		Sleep:     time.Sleep,
		Logger:    zap.NewNop(),
	}
}

// Option is a functional option for configuring the Driver.
type Option func(*Config)

// WithGuardTime overrides the guard time around the escape sequence.
// Modules with a changed ATGT need this; negative values are ignored.
//
// Example:
//
//	drv := xbee.New(port, "/dev/ttyUSB0", xbee.WithGuardTime(1500*time.Millisecond))
func WithGuardTime(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.GuardTime = d
		}
	}
}

// WithSleep replaces time.Sleep for the guard time waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

// WithLogger sets the logger for the driver.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
