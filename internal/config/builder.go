package config

import "io"

// ConfigBuilder provides a fluent API for building Config instances.
type ConfigBuilder struct {
	cfg *Config
}

// NewConfigBuilder creates a new ConfigBuilder with default values.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: NewConfig(),
	}
}

// Build returns the built Config.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithOutputFormat sets the output format.
func (b *ConfigBuilder) WithOutputFormat(format OutputFormat) *ConfigBuilder {
	b.cfg.Output.Format = format
	return b
}

// WithDefinitions controls whether the registry is printed.
func (b *ConfigBuilder) WithDefinitions(show bool) *ConfigBuilder {
	b.cfg.Output.ShowDefinitions = show
	return b
}

// WithTokens controls whether the token stream is printed.
func (b *ConfigBuilder) WithTokens(show bool) *ConfigBuilder {
	b.cfg.Output.ShowTokens = show
	return b
}

// WithStrictRanges makes reversed square ranges an error.
func (b *ConfigBuilder) WithStrictRanges(strict bool) *ConfigBuilder {
	b.cfg.Parse.StrictRanges = strict
	return b
}

// WithMaxCallDepth sets the function nesting limit.
func (b *ConfigBuilder) WithMaxCallDepth(depth int) *ConfigBuilder {
	b.cfg.Parse.MaxCallDepth = depth
	return b
}

// WithWorkers sets the number of concurrent compilations.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.cfg.Workers = n
	return b
}

// WithOutput sets the output writer.
func (b *ConfigBuilder) WithOutput(w io.Writer) *ConfigBuilder {
	b.cfg.OutputFile = w
	return b
}

// WithLog sets the log writer.
func (b *ConfigBuilder) WithLog(w io.Writer) *ConfigBuilder {
	b.cfg.LogFile = w
	return b
}

// WithVerbosity sets the verbosity level.
func (b *ConfigBuilder) WithVerbosity(level int) *ConfigBuilder {
	b.cfg.Verbosity = level
	return b
}
