// internal/model/port.go
package model

import "fmt"

// BaudRate is a line speed the XBee and the serial driver both understand
type BaudRate int

// SupportedBaudRates lists every accepted line speed in ascending order
var SupportedBaudRates = []BaudRate{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// DefaultBaudRate is the factory setting of an XBee module
const DefaultBaudRate BaudRate = 9600

// DefaultDevicePath is the usual node of a USB XBee adapter on Linux
const DefaultDevicePath = "/dev/ttyUSB0"

// IsSupported reports whether b is one of SupportedBaudRates
func (b BaudRate) IsSupported() bool {
	for _, rate := range SupportedBaudRates {
		if rate == b {
			return true
		}
	}
	return false
}

// PortConfig represents the serial port an XBee is attached to
type PortConfig struct {
	DevicePath string   `json:"device_path"`
	BaudRate   BaudRate `json:"baud_rate"`
}

// NewPortConfig builds a PortConfig, rejecting unsupported baud rates
func NewPortConfig(devicePath string, baud int) (PortConfig, error) {
	cfg := PortConfig{DevicePath: devicePath, BaudRate: BaudRate(baud)}
	if err := cfg.Validate(); err != nil {
		return PortConfig{}, err
	}
	return cfg, nil
}

// Validate checks the port configuration before any device is touched
func (pc PortConfig) Validate() error {
	if pc.DevicePath == "" {
		return &UsageError{Message: "no serial port given"}
	}
	if !pc.BaudRate.IsSupported() {
		return &UsageError{Message: fmt.Sprintf("not a recognized baud rate: %d", pc.BaudRate)}
	}
	return nil
}
