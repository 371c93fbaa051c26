package main

import (
	"data-manager-service/internal/repository"
	"data-manager-service/migrations"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd(configFile *string) *cobra.Command {
	var (
		seed    bool
		retries int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and optionally load sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := repository.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			scripts := []string{migrations.Schema}
			if seed {
				scripts = append(scripts, migrations.Seed(db.Dialect()))
			}
			if err := migrations.Apply(ctx, db, retries, scripts...); err != nil {
				return err
			}
			log.Info().Msg("Database initialized")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample customers and products")
	cmd.Flags().IntVar(&retries, "retries", 3, "retries per batch")
	return cmd
}
