package main

import (
	"fmt"
	"path/filepath"

	"github.com/cqframework/cqftooling/cmd/drool/coverage"
	"github.com/cqframework/cqftooling/cmd/drool/output"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func convertCmd(envFile *string) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "convert <export.json|url>",
		Short: "Convert a Drool export into a CQL library, value set and coverage report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *envFile)
			if err != nil {
				return err
			}

			om, err := output.NewOutputManager(cfg.OutputDir, cfg.Level(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer om.Close()

			runID := uuid.NewString()
			log := om.GetLogger().With().Str("run", runID).Logger()
			log.Info().Str("source", args[0]).Str("library", cfg.LibraryName).Msg("Starting conversion")

			svc, err := newServices(cfg, log)
			if err != nil {
				return err
			}

			doc, err := svc.loader.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := svc.generator.Generate(doc)
			if err != nil {
				return err
			}

			text, err := svc.renderer.RenderString(result.Output)
			if err != nil {
				return err
			}

			written := make([]string, 0, 4)
			cqlPath, err := om.WriteText(text, cfg.LibraryName+".cql")
			if err != nil {
				return err
			}
			written = append(written, cqlPath)

			artifacts := []struct {
				prefix string
				data   interface{}
			}{
				{"valueset", svc.valueSets.Build(cfg.LibraryName, result.Output.Codes())},
				{"coverage", coverage.Build(result.Fields, svc.table)},
				{"diagnostics", result.Report},
			}
			for _, a := range artifacts {
				path, err := om.WriteToJSON(a.data, a.prefix)
				if err != nil {
					return err
				}
				written = append(written, path)
			}

			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.ToSlash(path))
			}

			fatal := result.Report.Fatal()
			log.Info().
				Int("completed", result.Report.Completed).
				Int("skipped", result.Report.Skipped).
				Int("failed", len(fatal)).
				Str("dir", om.GetBaseDir()).
				Msg("Conversion finished")

			if strict && len(fatal) > 0 {
				return fmt.Errorf("%d conditions failed: first: %s", len(fatal), fatal[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any condition fails")
	return cmd
}
