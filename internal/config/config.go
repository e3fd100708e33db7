// Package config provides configuration for the CQL compiler.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lgbarn/cql-go/internal/errors"
)

// OutputFormat selects how compiled queries are rendered.
type OutputFormat int

const (
	Text OutputFormat = iota // s-expression AST and a definition table
	JSON                     // one JSON document per query
	YAML                     // one YAML document per query
)

var formatNames = map[OutputFormat]string{
	Text: "text",
	JSON: "json",
	YAML: "yaml",
}

func (f OutputFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("OutputFormat(%d)", int(f))
}

// ParseOutputFormat converts a format name such as "json" into an OutputFormat.
func ParseOutputFormat(name string) (OutputFormat, error) {
	for f, n := range formatNames {
		if strings.EqualFold(name, n) {
			return f, nil
		}
	}
	return Text, fmt.Errorf("unknown output format %q: %w", name, errors.ErrInvalidConfig)
}

// UnmarshalText lets the format be written by name in a TOML file.
func (f *OutputFormat) UnmarshalText(text []byte) error {
	parsed, err := ParseOutputFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalText writes the format name.
func (f OutputFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Config holds all compiler configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	Parse  ParseConfig  `toml:"parse"`

	// Workers is the number of queries compiled at once (0 = one per CPU)
	Workers int `toml:"workers"`

	// Verbosity: 0 = errors only, 1 = warnings, 2 = debug
	Verbosity int `toml:"verbosity"`

	// Output streams
	OutputFile io.Writer `toml:"-"`
	LogFile    io.Writer `toml:"-"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Output:     *NewOutputConfig(),
		Parse:      *NewParseConfig(),
		Verbosity:  1,
		OutputFile: os.Stdout,
		LogFile:    os.Stderr,
	}
}

// Load reads a TOML configuration file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	if _, ok := formatNames[c.Output.Format]; !ok {
		return fmt.Errorf("output format %v: %w", c.Output.Format, errors.ErrInvalidConfig)
	}
	if c.Parse.MaxCallDepth < 1 {
		return fmt.Errorf("max_call_depth must be at least 1, got %d: %w", c.Parse.MaxCallDepth, errors.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d: %w", c.Workers, errors.ErrInvalidConfig)
	}
	if c.Verbosity < 0 || c.Verbosity > 2 {
		return fmt.Errorf("verbosity must be 0, 1 or 2, got %d: %w", c.Verbosity, errors.ErrInvalidConfig)
	}
	return nil
}

// WorkerCount returns the effective number of workers.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
