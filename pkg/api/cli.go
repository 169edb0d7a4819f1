package api

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/clock"
	"github.com/travigo/transitlog/pkg/config"
	"github.com/travigo/transitlog/pkg/ingest"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/journeyview"
	"github.com/travigo/transitlog/pkg/metrics"
	"github.com/travigo/transitlog/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the journey web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "YAML tunables file",
						EnvVars: []string{"TRANSITLOG_CONFIG"},
					},
					&cli.BoolFlag{
						Name:  "ingest",
						Usage: "consume the position event queue and mirror journeys into redis",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					builder, err := journeyview.NewBuilderFromConfig(cfg)
					if err != nil {
						return err
					}

					collector := metrics.NewCollector()

					schedulerOptions := clock.OptionsFromConfig(cfg.Scheduler)
					schedulerOptions.Metrics = collector
					scheduler := clock.NewScheduler(schedulerOptions)

					server := &Server{
						Store:     journeystore.NewStore().WithMetrics(collector),
						Builder:   builder,
						Scheduler: scheduler,
						Metrics:   collector,
					}

					if c.Bool("ingest") {
						if err := redis_client.Connect(); err != nil {
							return err
						}

						server.RedisClient = redis_client.Client
						server.QueueConnection = redis_client.QueueConnection
						server.Store.WithCache(journeystore.NewRedisCache(redis_client.Client, journeystore.DefaultCacheExpiration))

						if err := ingest.StartConsumers(redis_client.QueueConnection, server.Store, collector); err != nil {
							return err
						}
					}

					server.Setup()

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					go scheduler.Run(ctx)

					log.Info().Dur("tick", schedulerOptions.TickInterval).Dur("liveTimeout", schedulerOptions.LiveTimeout).Msg("Scheduler started")

					return server.Listen(c.String("listen"))
				},
			},
		},
	}
}
