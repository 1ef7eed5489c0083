package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xbee/internal/config"
	"xbee/internal/model"
)

func TestNewLoggerConsole(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := NewLogger(&config.LoggingConfig{Level: "info", Format: "console", Output: "stderr"}, &stderr)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("Serial port opened successfully", zap.String("port", "/dev/ttyUSB0"))

	out := stderr.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "Serial port opened successfully") {
		t.Errorf("console output = %q", out)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var stderr bytes.Buffer
	logger, err := NewLogger(&config.LoggingConfig{Level: "debug", Format: "json"}, &stderr)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("AT exchange", zap.String("command", "ATID"))

	var entry map[string]interface{}
	if err := json.Unmarshal(stderr.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, stderr.String())
	}
	if entry["message"] != "AT exchange" || entry["level"] != "debug" || entry["command"] != "ATID" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xbee.log")
	logger, err := NewLogger(&config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     path,
		MaxSize:    1,
		MaxBackups: 1,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("Operation started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "Operation started") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LoggingConfig{Level: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Error("NewLogger() error = nil for unknown level")
	}
}

func TestOperationLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	port := model.PortConfig{DevicePath: "/dev/ttyUSB0", BaudRate: 9600}

	t.Run("success", func(t *testing.T) {
		op := model.NewOperation(model.OperationTypeDump, port, "-")
		ol := NewOperationLogger(zap.New(core), op)

		ol.Start()
		ol.Finish(10, nil)

		if op.Status != model.OperationStatusSuccess || op.Exchanges != 10 {
			t.Errorf("operation = %+v", op)
		}
		done := logs.FilterMessage("Operation completed successfully").TakeAll()
		if len(done) != 1 {
			t.Fatalf("completion logged %d times", len(done))
		}
		if done[0].ContextMap()["operation_id"] != op.ID.String() {
			t.Errorf("operation_id = %v", done[0].ContextMap()["operation_id"])
		}
	})

	t.Run("failure", func(t *testing.T) {
		op := model.NewOperation(model.OperationTypeLoad, port, "radio.cfg")
		ol := NewOperationLogger(zap.New(core), op)

		ol.Finish(3, errors.New("command failed"))

		if op.Status != model.OperationStatusFailed || op.ErrorMessage == nil {
			t.Errorf("operation = %+v", op)
		}
		if logs.FilterMessage("Operation failed").Len() != 1 {
			t.Error("failure not logged")
		}
	})
}
