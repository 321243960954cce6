package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cqframework/cqftooling/cmd/drool/generator"
	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/cmd/drool/render"
	"github.com/cqframework/cqftooling/cmd/drool/source"
	"github.com/cqframework/cqftooling/cmd/drool/valueset"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "drool",
		Short:        "Convert RCKMS Drool rule exports to CQL",
		SilenceUsage: true,
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Optional dotenv file")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("out", "output", "Base output directory")
	flags.String("library", "RCKMS", "CQL library name")
	flags.String("library-version", "1.0.0", "CQL library version")
	flags.String("mapping", "", "JSON file with mapping overrides")
	flags.Int("max-depth", 128, "Maximum predicate nesting depth")
	flags.String("valueset-base", "http://cqframework.org/fhir", "Canonical base URL for generated value sets")

	root.AddCommand(convertCmd(&envFile))
	root.AddCommand(coverageCmd(&envFile))
	root.AddCommand(serveCmd(&envFile))
	return root
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = out })).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// services wires the conversion pipeline for one invocation.
type services struct {
	table     *mapping.Table
	loader    *source.Loader
	generator *generator.Generator
	renderer  *render.CQLRenderer
	valueSets *valueset.Builder
}

func newServices(cfg *Config, log zerolog.Logger) (*services, error) {
	table := mapping.Default()
	if cfg.MappingFile != "" {
		var err error
		table, err = mapping.Load(cfg.MappingFile, table, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping overrides: %w", err)
		}
	}

	return &services{
		table:     table,
		loader:    source.NewLoader(cfg.HTTPTimeout, cfg.HTTPRetryMax, log),
		generator: generator.New(table, cfg.MaxDepth, log),
		renderer: render.NewCQLRenderer(render.Library{
			Name:        cfg.LibraryName,
			Version:     cfg.LibraryVersion,
			FHIRVersion: cfg.FHIRVersion,
		}, log),
		valueSets: valueset.NewBuilder(cfg.ValueSetBaseURL, log),
	}, nil
}
