package config

// OutputConfig holds settings related to output formatting.
type OutputConfig struct {
	// Format selects text, JSON or YAML rendering
	Format OutputFormat `toml:"format"`

	// ShowDefinitions includes the registry contents after the AST
	ShowDefinitions bool `toml:"show_definitions"`

	// ShowTokens includes the classified token stream
	ShowTokens bool `toml:"show_tokens"`
}

// NewOutputConfig creates an OutputConfig with default values.
func NewOutputConfig() *OutputConfig {
	return &OutputConfig{
		Format:          Text,
		ShowDefinitions: true,
	}
}
