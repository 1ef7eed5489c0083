// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"xbee/internal/model"
)

// Config represents the application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	XBee    XBeeConfig    `mapstructure:"xbee"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SerialConfig represents serial port configuration
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// XBeeConfig represents module protocol settings
type XBeeConfig struct {
	GuardTime time.Duration `mapstructure:"guard_time"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"port":         "serial.port",
	"baud":         "serial.baud_rate",
	"read-timeout": "serial.read_timeout",
	"guard-time":   "xbee.guard_time",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-output":   "logging.output",
}

// NewFlagSet declares the command line flags. Parse errors are returned, not
// fatal, so the caller decides the exit status.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetInterspersed(false)

	flags.IntP("baud", "b", int(model.DefaultBaudRate), "serial baud rate")
	flags.StringP("port", "p", model.DefaultDevicePath, "serial device path")
	flags.StringP("config", "c", "", "configuration file (default ./xbee.yaml or ~/.config/xbee/xbee.yaml)")
	flags.Duration("read-timeout", 0, "give up on a silent module after this long (0 waits forever)")
	flags.Duration("guard-time", time.Second, "silence before and after the +++ escape")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-output", "stderr", "log destination: stderr, stdout or a file path")
	return flags
}

// Load loads configuration from defaults, an optional config file,
// XBEE_* environment variables and the parsed flags, in rising precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("XBEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for name, key := range flagKeys {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("xbee")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/xbee")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Serial defaults
	v.SetDefault("serial.port", model.DefaultDevicePath)
	v.SetDefault("serial.baud_rate", int(model.DefaultBaudRate))
	v.SetDefault("serial.read_timeout", "0s")

	// XBee defaults
	v.SetDefault("xbee.guard_time", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if _, err := model.NewPortConfig(config.Serial.Port, config.Serial.BaudRate); err != nil {
		return err
	}
	if config.Serial.ReadTimeout < 0 {
		return &model.UsageError{Message: "serial.read_timeout must not be negative"}
	}
	if config.XBee.GuardTime < 0 {
		return &model.UsageError{Message: "xbee.guard_time must not be negative"}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return &model.UsageError{Message: fmt.Sprintf("logging.level must be one of: %v", validLevels)}
	}

	return nil
}

// PortConfig returns the validated serial port settings
func (c *Config) PortConfig() model.PortConfig {
	return model.PortConfig{
		DevicePath: c.Serial.Port,
		BaudRate:   model.BaudRate(c.Serial.BaudRate),
	}
}
