package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lgbarn/cql-go/internal/config"
	"github.com/lgbarn/cql-go/internal/cql"
	"github.com/lgbarn/cql-go/internal/output"
	"github.com/lgbarn/cql-go/internal/worker"
)

// rootOptions holds the command-line flags.
type rootOptions struct {
	Exprs       []string
	Format      string
	ConfigPath  string
	Strict      bool
	Workers     int
	Verbose     bool
	Tokens      bool
	Definitions bool
}

// NewRootCommand creates the cqlc command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "cqlc [flags] [file ...]",
		Short:   "Compile CQL queries",
		Long:    "cqlc parses Chess Query Language queries, infers the type of every name they declare and prints the result.",
		Version: programVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.Exprs, "expr", "e", nil, "compile an inline query (repeatable)")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	flags.StringVar(&opts.ConfigPath, "config", "", "TOML configuration file")
	flags.BoolVar(&opts.Strict, "strict", false, "reject reversed square ranges such as c-a")
	flags.IntVar(&opts.Workers, "workers", 0, "number of concurrent compilations (0 = one per CPU)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log declarations and type inference")
	flags.BoolVar(&opts.Tokens, "tokens", false, "print the classified token stream")
	flags.BoolVar(&opts.Definitions, "definitions", true, "print the resolved definitions")

	return cmd
}

// loadConfig builds the configuration from the optional file, then applies
// the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.NewConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		format, err := config.ParseOutputFormat(opts.Format)
		if err != nil {
			return nil, err
		}
		cfg.Output.Format = format
	}
	if flags.Changed("strict") {
		cfg.Parse.StrictRanges = opts.Strict
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("verbose") && opts.Verbose {
		cfg.Verbosity = 2
	}
	if flags.Changed("tokens") {
		cfg.Output.ShowTokens = opts.Tokens
	}
	if flags.Changed("definitions") {
		cfg.Output.ShowDefinitions = opts.Definitions
	}

	cfg.OutputFile = cmd.OutOrStdout()
	cfg.LogFile = cmd.ErrOrStderr()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger maps verbosity 0, 1 and 2 to error, warn and debug.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch verbosity {
	case 0:
		level = slog.LevelError
	case 2:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// collectJobs gathers inline expressions first, then files. With neither,
// the query is read from standard input.
func collectJobs(cmd *cobra.Command, opts *rootOptions, args []string) ([]worker.Job, error) {
	var jobs []worker.Job
	for _, expr := range opts.Exprs {
		jobs = append(jobs, worker.Job{Source: expr})
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read query: %w", err)
		}
		jobs = append(jobs, worker.Job{Name: path, Source: string(data)})
	}

	if len(jobs) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		jobs = append(jobs, worker.Job{Source: string(data)})
	}
	return jobs, nil
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogFile, cfg.Verbosity)

	jobs, err := collectJobs(cmd, opts, args)
	if err != nil {
		return err
	}

	compileOpts := append(cfg.Parse.Options(), cql.WithLogger(logger))
	results := worker.CompileAll(jobs, cfg.WorkerCount(), compileOpts...)

	w := output.NewWriter(cfg.OutputFile, cfg.Output.Format)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("compile failed", "query", queryName(r), "error", r.Err)
			continue
		}
		if err := w.WriteQuery(output.NewDocument(r.Name, r.Query, cfg.Output)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}

// queryName identifies a result in log lines.
func queryName(r worker.Result) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("#%d", r.Index+1)
}
