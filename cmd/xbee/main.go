// cmd/xbee/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"xbee/internal/config"
	"xbee/internal/driver/xbee"
	"xbee/internal/model"
	"xbee/internal/protocol"
	"xbee/internal/protocol/serial"
	"xbee/internal/utils"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageText = `usage: xbee [-b baud] [-p port] <dump|load|ports> [filename]
cmd is 'dump', 'load' or 'ports'; filename '-' or omitted means stdin/stdout.
`

// allow tests to replace the serial layer
var (
	openPort = func(cfg *serial.Config, logger *zap.Logger) (protocol.Port, error) {
		conn, err := serial.Open(cfg, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	listPorts = serial.ListPorts
)

// Application represents one invocation of the tool
type Application struct {
	config    *config.Config
	logger    *zap.Logger
	operation model.OperationType
	filename  string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the single place where errors become exit codes and messages
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app, err := NewApplication(args, stdin, stdout, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(stdout, usageText)
		fmt.Fprint(stdout, config.NewFlagSet("xbee").FlagUsages())
		return exitSuccess
	}
	if err != nil {
		return reportError(stderr, err)
	}
	defer utils.CloseLogger(app.logger)

	if err := app.Run(); err != nil {
		return reportError(stderr, err)
	}
	return exitSuccess
}

func reportError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "xbee: %v\n", err)
	if model.IsUsageError(err) {
		fmt.Fprint(stderr, usageText)
		return exitUsage
	}
	return exitFailure
}

// NewApplication parses the command line and loads configuration. Nothing is
// opened yet.
func NewApplication(args []string, stdin io.Reader, stdout, stderr io.Writer) (*Application, error) {
	flags := config.NewFlagSet("xbee")
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, &model.UsageError{Message: err.Error()}
	}

	positional := flags.Args()
	if len(positional) == 0 {
		return nil, &model.UsageError{Message: "missing command"}
	}
	if len(positional) > 2 {
		return nil, &model.UsageError{Message: "too many arguments"}
	}

	operation, err := model.ParseOperationType(positional[0])
	if err != nil {
		return nil, err
	}
	filename := "-"
	if len(positional) == 2 {
		if !operation.NeedsPort() {
			return nil, &model.UsageError{Message: fmt.Sprintf("%s takes no filename", operation)}
		}
		filename = positional[1]
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &Application{
		config:    cfg,
		logger:    logger,
		operation: operation,
		filename:  filename,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
	}, nil
}

// Run performs the requested operation
func (app *Application) Run() error {
	if app.operation == model.OperationTypePorts {
		return app.listSerialPorts()
	}

	op := model.NewOperation(app.operation, app.config.PortConfig(), app.filename)
	opLogger := utils.NewOperationLogger(app.logger, op)
	opLogger.Start()

	exchanges, err := app.provision(opLogger.Logger())
	opLogger.Finish(exchanges, err)
	return err
}

// provision opens the port and runs dump or load against the module
func (app *Application) provision(logger *zap.Logger) (int, error) {
	portCfg := app.config.PortConfig()
	port, err := openPort(&serial.Config{
		Port:        portCfg,
		ReadTimeout: app.config.Serial.ReadTimeout,
	}, logger)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := port.Close(); err != nil {
			logger.Warn("Failed to close serial port", zap.Error(err))
		}
	}()

	drv := xbee.New(port, portCfg.DevicePath,
		xbee.WithGuardTime(app.config.XBee.GuardTime),
		xbee.WithLogger(logger),
	)

	switch app.operation {
	case model.OperationTypeDump:
		err = app.dump(drv)
	case model.OperationTypeLoad:
		err = app.load(drv)
	}
	return drv.Exchanges(), err
}

func (app *Application) dump(drv *xbee.Driver) (err error) {
	if isStdio(app.filename) {
		return drv.Dump(app.stdout)
	}

	f, err := os.Create(app.filename)
	if err != nil {
		return &model.IOError{Device: app.filename, Op: "open", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &model.IOError{Device: app.filename, Op: "close", Err: cerr}
		}
	}()

	return drv.Dump(f)
}

func (app *Application) load(drv *xbee.Driver) error {
	if isStdio(app.filename) {
		return drv.Load(app.stdin)
	}

	f, err := os.Open(app.filename)
	if err != nil {
		return &model.IOError{Device: app.filename, Op: "open", Err: err}
	}
	defer f.Close()

	return drv.Load(f)
}

func (app *Application) listSerialPorts() error {
	ports, err := listPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		app.logger.Info("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(app.stdout, p)
	}
	return nil
}

func isStdio(filename string) bool {
	return filename == "" || filename == "-" || filename == "--"
}
