// internal/model/operation.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OperationType represents what a run does with the module
type OperationType string

const (
	OperationTypeDump  OperationType = "dump"
	OperationTypeLoad  OperationType = "load"
	OperationTypePorts OperationType = "ports"
)

// ParseOperationType maps a command line word to an OperationType
func ParseOperationType(s string) (OperationType, error) {
	switch op := OperationType(s); op {
	case OperationTypeDump, OperationTypeLoad, OperationTypePorts:
		return op, nil
	default:
		return "", &UsageError{Message: fmt.Sprintf("unknown command '%s'", s)}
	}
}

// NeedsPort reports whether the operation talks to a module
func (t OperationType) NeedsPort() bool {
	return t == OperationTypeDump || t == OperationTypeLoad
}

// OperationStatus represents the status of an operation
type OperationStatus string

const (
	OperationStatusProcessing OperationStatus = "PROCESSING"
	OperationStatusSuccess    OperationStatus = "SUCCESS"
	OperationStatusFailed     OperationStatus = "FAILED"
)

// Operation represents one provisioning run against one module
type Operation struct {
	ID            uuid.UUID       `json:"id"`
	OperationType OperationType   `json:"operation_type"`
	Port          PortConfig      `json:"port"`
	File          string          `json:"file,omitempty"`
	Status        OperationStatus `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Exchanges     int             `json:"exchanges"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
}

// NewOperation starts a new operation record
func NewOperation(opType OperationType, port PortConfig, file string) *Operation {
	return &Operation{
		ID:            uuid.New(),
		OperationType: opType,
		Port:          port,
		File:          file,
		Status:        OperationStatusProcessing,
		StartedAt:     time.Now(),
	}
}

// Complete marks the operation finished, failed when err is non-nil
func (op *Operation) Complete(exchanges int, err error) {
	now := time.Now()
	op.CompletedAt = &now
	op.Exchanges = exchanges
	if err != nil {
		msg := err.Error()
		op.ErrorMessage = &msg
		op.Status = OperationStatusFailed
		return
	}
	op.Status = OperationStatusSuccess
}

// Duration returns how long the operation ran, or has been running
func (op *Operation) Duration() time.Duration {
	if op.CompletedAt == nil {
		return time.Since(op.StartedAt)
	}
	return op.CompletedAt.Sub(op.StartedAt)
}
