package serial

import (
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"xbee/internal/model"
)

// mockHandle records what the connection does to the OS port
type mockHandle struct {
	readData     []byte
	readErr      error
	written      []byte
	writeErr     error
	inputReset   bool
	outputReset  bool
	inputErr     error
	readTimeout  time.Duration
	closed       bool
	timeoutCalls int
}

func (m *mockHandle) Read(p []byte) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	n := copy(p, m.readData)
	m.readData = m.readData[n:]
	return n, nil
}

func (m *mockHandle) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *mockHandle) ResetInputBuffer() error {
	m.inputReset = true
	return m.inputErr
}

func (m *mockHandle) ResetOutputBuffer() error {
	m.outputReset = true
	return nil
}

func (m *mockHandle) SetReadTimeout(t time.Duration) error {
	m.timeoutCalls++
	m.readTimeout = t
	return nil
}

func (m *mockHandle) Close() error {
	m.closed = true
	return nil
}

func withMockPort(t *testing.T, handle *mockHandle, openErr error) *serial.Mode {
	t.Helper()
	var gotMode serial.Mode
	orig := openPort
	openPort = func(name string, mode *serial.Mode) (portHandle, error) {
		gotMode = *mode
		if openErr != nil {
			return nil, openErr
		}
		return handle, nil
	}
	t.Cleanup(func() { openPort = orig })
	return &gotMode
}

func testConfig(timeout time.Duration) *Config {
	return &Config{
		Port:        model.PortConfig{DevicePath: "/dev/ttyTEST0", BaudRate: 19200},
		ReadTimeout: timeout,
	}
}

func TestOpen(t *testing.T) {
	handle := &mockHandle{}
	mode := withMockPort(t, handle, nil)

	conn, err := Open(testConfig(0), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if mode.BaudRate != 19200 || mode.DataBits != 8 || mode.Parity != serial.NoParity || mode.StopBits != serial.OneStopBit {
		t.Errorf("mode = %+v, want 19200 8N1", *mode)
	}
	if !handle.inputReset || !handle.outputReset {
		t.Error("Open() did not flush pending I/O")
	}
	if handle.timeoutCalls != 0 {
		t.Error("Open() set a read timeout although none was configured")
	}
	if !conn.Stats().IsConnected {
		t.Error("Stats().IsConnected = false after Open()")
	}
}

func TestOpenWithReadTimeout(t *testing.T) {
	handle := &mockHandle{}
	withMockPort(t, handle, nil)

	conn, err := Open(testConfig(2*time.Second), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if handle.readTimeout != 2*time.Second {
		t.Errorf("read timeout = %v, want 2s", handle.readTimeout)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Run("open fails", func(t *testing.T) {
		withMockPort(t, nil, errors.New("no such device"))

		_, err := Open(testConfig(0), zap.NewNop())
		var ioErr *model.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("Open() error = %v, want *model.IOError", err)
		}
		if ioErr.Device != "/dev/ttyTEST0" || ioErr.Op != "open" {
			t.Errorf("IOError = %+v", ioErr)
		}
	})

	t.Run("flush fails", func(t *testing.T) {
		handle := &mockHandle{inputErr: errors.New("tcflush")}
		withMockPort(t, handle, nil)

		_, err := Open(testConfig(0), zap.NewNop())
		var ioErr *model.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("Open() error = %v, want *model.IOError", err)
		}
		if !handle.closed {
			t.Error("port left open after failed flush")
		}
	})

	t.Run("unsupported baud", func(t *testing.T) {
		called := false
		orig := openPort
		openPort = func(string, *serial.Mode) (portHandle, error) {
			called = true
			return &mockHandle{}, nil
		}
		t.Cleanup(func() { openPort = orig })

		cfg := testConfig(0)
		cfg.Port.BaudRate = 14400
		_, err := Open(cfg, zap.NewNop())
		if !model.IsUsageError(err) {
			t.Errorf("Open() error = %v, want usage error", err)
		}
		if called {
			t.Error("port opened despite unsupported baud rate")
		}
	})
}

func TestReadWrite(t *testing.T) {
	handle := &mockHandle{readData: []byte("OK\r")}
	withMockPort(t, handle, nil)

	conn, err := Open(testConfig(0), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := conn.Write([]byte("ATID\r")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if string(handle.written) != "ATID\r" {
		t.Errorf("written = %q", handle.written)
	}

	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if err != nil || n != 1 || buf[0] != 'O' {
		t.Errorf("Read() = %d, %v, %q", n, err, buf)
	}

	stats := conn.Stats()
	if stats.BytesWritten != 5 || stats.BytesRead != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !handle.closed {
		t.Error("Close() did not close the handle")
	}
	if _, err := conn.Write([]byte("x")); err == nil {
		t.Error("Write() after Close() succeeded")
	}
}

func TestReadTimeout(t *testing.T) {
	handle := &mockHandle{}
	withMockPort(t, handle, nil)

	conn, err := Open(testConfig(time.Second), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	_, err = conn.Read(make([]byte, 1))
	if !errors.Is(err, model.ErrReadTimeout) {
		t.Errorf("Read() error = %v, want ErrReadTimeout", err)
	}
}

func TestReadError(t *testing.T) {
	handle := &mockHandle{readErr: errors.New("device unplugged")}
	withMockPort(t, handle, nil)

	conn, err := Open(testConfig(0), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	_, err = conn.Read(make([]byte, 1))
	var ioErr *model.IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "read" {
		t.Errorf("Read() error = %v, want read IOError", err)
	}
	if conn.Stats().ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", conn.Stats().ErrorCount)
	}
}

func TestListPorts(t *testing.T) {
	orig := getPortsList
	getPortsList = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }
	t.Cleanup(func() { getPortsList = orig })

	ports, err := ListPorts()
	if err != nil {
		t.Fatalf("ListPorts() error = %v", err)
	}
	if len(ports) != 2 || ports[0] != "/dev/ttyUSB0" {
		t.Errorf("ListPorts() = %v", ports)
	}

	getPortsList = func() ([]string, error) { return nil, errors.New("sysfs unavailable") }
	if _, err := ListPorts(); err == nil {
		t.Error("ListPorts() error = nil, want error")
	}
}
