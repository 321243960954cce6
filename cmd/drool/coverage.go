package main

import (
	"github.com/cqframework/cqftooling/cmd/drool/coverage"
	"github.com/cqframework/cqftooling/cmd/drool/output"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func coverageCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage <export.json|url>",
		Short: "Report which source fields the mapping table resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *envFile)
			if err != nil {
				return err
			}

			om, err := output.NewOutputManager(cfg.OutputDir, cfg.Level(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer om.Close()

			runID := uuid.NewString()
			log := om.GetLogger().With().Str("run", runID).Logger()

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

			report := coverage.Build(result.Fields, svc.table)
			report.WriteTable(cmd.OutOrStdout())

			if _, err := om.WriteToJSON(report, "coverage"); err != nil {
				return err
			}

			if cfg.DatabaseURL == "" {
				return nil
			}
			store, err := coverage.Connect(cmd.Context(), cfg.DatabaseURL, log)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Save(cmd.Context(), runID, cfg.LibraryName, report)
		},
	}

	cmd.Flags().String("db", "", "Postgres DSN to store the coverage report in")
	return cmd
}
