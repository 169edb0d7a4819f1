package ingest

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/feeds"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/metrics"
	"github.com/travigo/transitlog/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	<-signals // wait for signal
	go func() {
		<-signals // hard exit on second signal (in case shutdown gets stuck)
		os.Exit(1)
	}()
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Move position events through the redis queue",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "consume position events and keep the reconciled journeys in redis",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					collector := metrics.NewCollector()
					store := journeystore.NewStore().
						WithCache(journeystore.NewRedisCache(redis_client.Client, journeystore.DefaultCacheExpiration)).
						WithMetrics(collector)

					if err := StartConsumers(redis_client.QueueConnection, store, collector); err != nil {
						return err
					}

					waitForSignal()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "publish",
				Usage: "publish the position events of a feed file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "feed file (json, yaml, csv or GTFS-RT protobuf)",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					journeys, err := feeds.Load(c.String("file"))
					if err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
					if err != nil {
						return err
					}

					published, err := Publish(queue, journeys)
					log.Info().Int("events", published).Int("journeys", len(journeys)).Msg("Published position events")

					return err
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the position event queue",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: 5 * time.Minute,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(context.Background())
					go StartCleaner(ctx, redis_client.QueueConnection, c.Duration("interval"))

					waitForSignal()
					cancel()

					return nil
				},
			},
		},
	}
}
