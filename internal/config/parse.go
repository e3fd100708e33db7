package config

import "github.com/lgbarn/cql-go/internal/cql"

// ParseConfig holds settings that change how queries are parsed.
type ParseConfig struct {
	// StrictRanges rejects reversed square ranges such as c-a
	StrictRanges bool `toml:"strict_ranges"`

	// MaxCallDepth limits nested function expansion
	MaxCallDepth int `toml:"max_call_depth"`
}

// NewParseConfig creates a ParseConfig with default values.
func NewParseConfig() *ParseConfig {
	return &ParseConfig{
		MaxCallDepth: cql.DefaultMaxCallDepth,
	}
}

// Options converts the settings into compiler options.
func (c *ParseConfig) Options() []cql.Option {
	return []cql.Option{
		cql.WithStrictRanges(c.StrictRanges),
		cql.WithMaxCallDepth(c.MaxCallDepth),
	}
}
