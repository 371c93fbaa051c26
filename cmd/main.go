package main

import (
	"os"

	"data-manager-service/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string

	serve := newServeCmd(&configFile)
	cmd := &cobra.Command{
		Use:           "data-manager",
		Short:         "Customers, products and orders over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./application.yml or ./config/application.yml)")
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd(&configFile))
	cmd.AddCommand(newWatchCmd(&configFile))
	return cmd
}

// loadConfig resolves the configuration once and applies the log level.
func loadConfig(file string) (*config.Config, error) {
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	if err := cfg.Log.Apply(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("data-manager failed")
		os.Exit(1)
	}
}
