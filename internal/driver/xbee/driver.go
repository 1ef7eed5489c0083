// internal/driver/xbee/driver.go
package xbee

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"xbee/internal/model"
	"xbee/internal/protocol"
)

// Driver sequences AT command exchanges with one XBee module.
//
// Every call blocks until the port completes it. A Driver is not safe for
// concurrent use; it owns the port for the whole run.
type Driver struct {
	port      protocol.Port
	device    string
	config    Config
	logger    *zap.Logger
	exchanges int
}

// New creates a driver for the module behind port. device names the port in
// errors and logs.
func New(port protocol.Port, device string, opts ...Option) *Driver {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Driver{
		port:   port,
		device: device,
		config: config,
		logger: config.Logger.With(
			zap.String("component", "xbee"),
			zap.String("port", device),
		),
	}
}

// Exchanges returns the number of command/response pairs completed so far,
// not counting the command mode handshake.
func (d *Driver) Exchanges() int {
	return d.exchanges
}

// WriteLine writes text to the module exactly as given.
func (d *Driver) WriteLine(text string) error {
	n, err := d.port.Write([]byte(text))
	if err != nil {
		return d.ioError("write", err)
	}
	if n != len(text) {
		return d.ioError("write", io.ErrShortWrite)
	}
	return nil
}

// ReadLine reads one response line, byte by byte, up to and including the
// carriage return. A line that never terminates is cut at LineBufferSize-1
// bytes. Without a read timeout on the port this blocks until the module
// sends something.
func (d *Driver) ReadLine() ([]byte, error) {
	line := make([]byte, 0, LineBufferSize)
	var b [1]byte
	for len(line) < LineBufferSize-1 {
		n, err := d.port.Read(b[:])
		if err != nil {
			return nil, d.ioError("read", err)
		}
		if n != 1 {
			return nil, d.ioError("read", model.ErrShortRead)
		}
		line = append(line, b[0])
		if b[0] == Terminator {
			break
		}
	}
	return line, nil
}

// EnterCommandMode performs the guard time handshake: silence, "+++",
// silence, then expects "OK\r".
func (d *Driver) EnterCommandMode() error {
	d.logger.Debug("Entering command mode", zap.Duration("guard_time", d.config.GuardTime))

	d.config.Sleep(d.config.GuardTime)
	if err := d.WriteLine(EscapeSequence); err != nil {
		return err
	}
	d.config.Sleep(d.config.GuardTime)

	resp, err := d.ReadLine()
	if err != nil {
		return err
	}
	if string(resp) != ResponseOK {
		return &model.ProtocolError{
			Message:  "failure entering command mode",
			Response: string(resp),
		}
	}

	d.logger.Debug("Command mode entered")
	return nil
}

// ExitCommandMode sends ATCN. The reply is left unread.
func (d *Driver) ExitCommandMode() error {
	d.logger.Debug("Leaving command mode")
	return d.WriteLine(CommandExit + string(Terminator))
}

// Dump queries every DumpCommands parameter and writes one
// "<command><value>\n" line per parameter to w. Replies are recorded as
// given; they are not checked for OK or ERROR.
func (d *Driver) Dump(w io.Writer) error {
	out := bufio.NewWriter(w)

	err := d.inCommandMode(func() error {
		for _, cmd := range DumpCommands {
			resp, err := d.exchange(cmd + string(Terminator))
			if err != nil {
				return err
			}
			TranslateByte(resp, Terminator, '\n')
			if _, err := fmt.Fprintf(out, "%s%s", cmd, resp); err != nil {
				return &model.IOError{Device: "output", Op: "write", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := out.Flush(); err != nil {
		return &model.IOError{Device: "output", Op: "flush", Err: err}
	}
	return nil
}

// Load sends every command line of r to the module, each of which must be
// answered with "OK\r", then commits with ATWR. Blank lines and lines
// starting with '#' are skipped. The first rejected command stops the load;
// commands already sent stay applied in volatile memory.
func (d *Driver) Load(r io.Reader) error {
	in := bufio.NewReader(r)

	return d.inCommandMode(func() error {
		for {
			line, readErr := in.ReadString('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				return &model.IOError{Device: "input", Op: "read", Err: readErr}
			}

			if !isSkippable(line) {
				if err := d.apply(line); err != nil {
					return err
				}
			}

			if readErr != nil {
				break
			}
		}

		resp, err := d.exchange(CommandWrite + string(Terminator))
		if err != nil {
			return err
		}
		if string(resp) != ResponseOK {
			return &model.ProtocolError{
				Message:  "could not write changes",
				Response: string(resp),
			}
		}
		d.logger.Info("Settings written to non-volatile memory")
		return nil
	})
}

func (d *Driver) apply(line string) error {
	cmd := []byte(line)
	TranslateByte(cmd, '\n', Terminator)
	if cmd[len(cmd)-1] != Terminator {
		cmd = append(cmd, Terminator)
	}

	resp, err := d.exchange(string(cmd))
	if err != nil {
		return err
	}
	if string(resp) != ResponseOK {
		return &model.ProtocolError{
			Message:  "command failed",
			Command:  strings.TrimRight(line, "\r\n"),
			Response: string(resp),
		}
	}
	return nil
}

// inCommandMode runs fn between entering and leaving command mode. When fn
// fails, ATCN is still sent once so the module is not left in command mode;
// fn's error wins over any error from that exit.
func (d *Driver) inCommandMode(fn func() error) error {
	if err := d.EnterCommandMode(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if exitErr := d.ExitCommandMode(); exitErr != nil {
			d.logger.Warn("Could not leave command mode after failure", zap.Error(exitErr))
		}
		return err
	}

	return d.ExitCommandMode()
}

func (d *Driver) exchange(cmd string) ([]byte, error) {
	if err := d.WriteLine(cmd); err != nil {
		return nil, err
	}
	resp, err := d.ReadLine()
	if err != nil {
		return nil, err
	}
	d.exchanges++

	d.logger.Debug("AT exchange",
		zap.String("command", strings.TrimRight(cmd, "\r")),
		zap.String("response", strings.TrimRight(string(resp), "\r")),
	)
	return resp, nil
}

// ioError wraps err for the device unless the port already did
func (d *Driver) ioError(op string, err error) error {
	var ioErr *model.IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &model.IOError{Device: d.device, Op: op, Err: err}
}

func isSkippable(line string) bool {
	return line == "" || line[0] == CommentPrefix || line[0] == '\n'
}
