package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/dshills/bly/internal/dispatcher"
	"github.com/dshills/bly/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BLY"

// FileName is the config file looked up in the user config directory.
const FileName = "config.yaml"

// Config holds bly configuration. Values are layered: defaults, then the
// YAML file, then BLY_* environment variables.
type Config struct {
	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"log_format"` // console, json or empty for auto

	// Dispatcher
	IDPrefix      string `envconfig:"ID_PREFIX" yaml:"id_prefix"`
	Metrics       bool   `envconfig:"METRICS" yaml:"metrics"`
	PanicRecovery bool   `envconfig:"PANIC_RECOVERY" yaml:"panic_recovery"`
	Audit         bool   `envconfig:"AUDIT" yaml:"audit"`
	// SlowDispatch logs a warning for dispatches at least this long.
	SlowDispatch time.Duration `envconfig:"SLOW_DISPATCH" yaml:"slow_dispatch"`

	// Plugins
	PluginPaths    []string      `envconfig:"PLUGIN_PATHS" yaml:"plugin_paths"`
	Plugins        []string      `envconfig:"PLUGINS" yaml:"plugins"`
	LuaCallTimeout time.Duration `envconfig:"LUA_CALL_TIMEOUT" yaml:"lua_call_timeout"`
	// View
	Title string `envconfig:"TITLE" yaml:"title"`
	// History is how many recent dispatches the view lists. Zero hides the list.
	History int `envconfig:"HISTORY" yaml:"history"`

	// path is the file the config was read from, if any.
	path string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:      "info",
		IDPrefix:      dispatcher.DefaultIDPrefix,
		PanicRecovery: true,
		Title:         "bly",
		History:       5,
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path means the default file, which may be absent.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			if !explicit && errors.Is(err, ErrFileNotFound) {
				path = ""
			} else {
				return nil, err
			}
		}
	}
	c.path = path

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	return &c, nil
}

// yamlLine matches the line number in yaml.v3 error messages.
var yamlLine = regexp.MustCompile(`line (\d+)`)

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return c.decode(path, data)
}

func (c *Config) decode(path string, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		pe := &ParseError{File: path, Err: err}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			pe.Line, _ = strconv.Atoi(m[1])
		}
		return pe
	}
	return nil
}

// Path returns the file the config was read from, or "".
func (c *Config) Path() string {
	return c.path
}

// DefaultPath returns the user config file path, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bly", FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bly", FileName)
}

var logLevels = []string{"debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "trace"}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return invalid("log_level", c.LogLevel, CodeInvalidEnum, "unknown level")
	}
	switch logging.Format(c.LogFormat) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return invalid("log_format", c.LogFormat, CodeInvalidEnum, "must be console or json")
	}
	if c.IDPrefix == "" {
		return invalid("id_prefix", c.IDPrefix, CodeRequired, "must not be empty")
	}
	if c.LuaCallTimeout < 0 {
		return invalid("lua_call_timeout", c.LuaCallTimeout, CodeOutOfRange, "must not be negative")
	}
	if c.SlowDispatch < 0 {
		return invalid("slow_dispatch", c.SlowDispatch, CodeOutOfRange, "must not be negative")
	}
	if c.History < 0 {
		return invalid("history", c.History, CodeOutOfRange, "must not be negative")
	}
	for _, p := range c.Plugins {
		if filepath.Ext(p) != ".lua" {
			return invalid("plugins", p, CodePattern, "plugin files must end in .lua")
		}
	}
	return nil
}

// Dispatcher returns the dispatcher settings.
func (c *Config) Dispatcher(log *logging.Logger) dispatcher.Config {
	cfg := dispatcher.DefaultConfig().
		WithIDPrefix(c.IDPrefix).
		WithPanicRecovery(c.PanicRecovery).
		WithSlowThreshold(c.SlowDispatch).
		WithLogger(log)
	if c.Metrics {
		cfg = cfg.WithMetrics()
	}
	return cfg
}

// Logging returns the logger settings. An empty LogFormat picks console
// output for terminals and JSON otherwise.
func (c *Config) Logging(out io.Writer, terminal bool) logging.Config {
	format := logging.Format(c.LogFormat)
	if format == "" {
		format = logging.FormatJSON
		if terminal {
			format = logging.FormatConsole
		}
	}
	return logging.Config{Level: c.LogLevel, Format: format, Output: out}
}
