package main

import (
	"context"
	"errors"
	"time"

	"beermap/internal/feed"
	"beermap/internal/server"
	"beermap/internal/service"
	"beermap/internal/view"
	"beermap/pkg/graceful"
	"beermap/pkg/kafkaclient"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Loads both feeds, serves the views over HTTP and, when a Kafka broker is
configured, publishes snapshot changes and consumes reload triggers. On
SIGINT or SIGTERM the server drains and the session cache is cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, cancel := graceful.Context(parent, logger)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client := feed.NewClient(cfg.HTTP.Timeout, logger.Named("feed"))
	opts := []view.Option{view.WithFormURL(cfg.FormURL)}

	var publisher *kafkaclient.Publisher
	if cfg.Kafka.Enabled() && cfg.Kafka.Topic != "" {
		publisher = kafkaclient.NewPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, logger.Named("kafka"))
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close kafka writer", zap.Error(err))
			}
		}()
		opts = append(opts, view.WithNotifier(publisher))
	}

	app := view.New(view.Feeds{
		Shops:  feed.NewShopSource(client, cfg.DataURL),
		Events: feed.NewEventSource(client, cfg.EventDataURL),
	}, store, logger, opts...)

	if err := app.Mount(ctx); err != nil {
		logger.Warn("initial load failed, views report the error", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	srv := server.New(cfg.HTTP.Addr, server.NewHandler(app, logger.Named("http"), requestTimeout).Router(), logger.Named("http"))
	g.Go(func() error {
		return srv.Run(gctx, shutdownTimeout)
	})

	if cfg.Kafka.Enabled() && cfg.Kafka.ReloadTopic != "" {
		consumer := kafkaclient.NewKafkaConsumer(cfg.Kafka.ReloadTopic, cfg.Kafka.GroupID, cfg.Kafka.Broker, logger.Named("kafka"))
		consumer.StartConsuming(gctx)
		reloads := service.NewIterator(consumer.NewIterator(), func(ctx context.Context, req service.ReloadRequest) error {
			return app.Reload(ctx, req.Feed)
		}, logger.Named("reload"))
		g.Go(func() error {
			defer consumer.Stop()
			if err := reloads.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	runErr := g.Wait()

	teardownCtx, cancelTeardown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelTeardown()
	if err := app.Teardown(teardownCtx); err != nil {
		logger.Warn("failed to clear session cache", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return runErr
}
