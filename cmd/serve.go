package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"data-manager-service/internal/api"
	"data-manager-service/internal/config"
	"data-manager-service/internal/repository"
	"data-manager-service/internal/service"
	"data-manager-service/migrations"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configFile *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the operations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create missing tables before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := migrations.Apply(ctx, db, 3, migrations.Schema); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	loc, err := cfg.Orders.Location()
	if err != nil {
		return err
	}
	opts := []service.Option{
		service.WithMaxAttempts(cfg.Orders.MaxAttempts),
		service.WithLocation(loc),
	}
	if cfg.Kafka.Enabled() {
		writer := config.NewKafkaWriter(cfg.Kafka)
		defer writer.Close()
		opts = append(opts, service.WithPublisher(service.NewKafkaPublisher(writer)))
	}
	if cfg.Redis.Enabled() {
		rdb := config.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		opts = append(opts, service.WithIdempotency(service.NewRedisIdempotency(rdb, cfg.Redis.IdempotencyTTL)))
	}

	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	queryService := service.NewQueryService(customerRepo, productRepo, orderRepo, cfg.Orders.ListLimit)
	orderService := service.NewOrderService(orderRepo, opts...)
	handler := api.NewHandler(queryService, orderService)

	e := api.NewRouter(handler, cfg.Server, cfg.Auth)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Listening on :%d", cfg.Server.Port)
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
