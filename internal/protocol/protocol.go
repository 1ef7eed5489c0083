// internal/protocol/protocol.go
package protocol

import (
	"io"
	"time"
)

// Port is the byte stream a module is driven over.
// Implementations block on Read until a byte arrives, the configured
// read timeout expires, or the stream fails.
type Port interface {
	io.ReadWriteCloser
}

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// RecordLatency folds a new sample into the running average latency
func (s *ProtocolStats) RecordLatency(latency time.Duration) {
	if s.AverageLatency == 0 {
		s.AverageLatency = latency
	} else {
		s.AverageLatency = (s.AverageLatency + latency) / 2
	}
}
