package main

import (
	"errors"
	"os/signal"
	"syscall"

	"data-manager-service/internal/config"
	"data-manager-service/internal/consumer"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-orders",
		Short: "Log order events published to kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errors.New("kafka.brokers is not configured")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Msgf("Watching topic %s", cfg.Kafka.Topic)
			return consumer.NewConsumer(config.NewKafkaReader(cfg.Kafka), nil).Start(ctx)
		},
	}
}
