package replay

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/config"
	"github.com/travigo/transitlog/pkg/feeds"
	"github.com/travigo/transitlog/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Step through a recorded feed and print the journey views",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "feed file (json, yaml, csv or GTFS-RT protobuf)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "time",
				Usage: "ISO-8601 start time, defaults to the first recorded event",
			},
			&cli.IntFlag{
				Name:  "steps",
				Value: 10,
				Usage: "maximum number of frames, 0 replays to the end of the recording",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML tunables file",
				EnvVars: []string{"TRANSITLOG_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			journeys, err := feeds.Load(c.String("file"))
			if err != nil {
				return err
			}

			options := Options{
				Config: cfg,
				Steps:  c.Int("steps"),
				Output: os.Stdout,
			}

			if startTime := c.String("time"); startTime != "" {
				options.Start, err = util.ParseRecordedAt(startTime)
				if err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			frames, err := Run(ctx, journeys, options)
			if err != nil {
				return err
			}

			log.Info().Int("frames", len(frames)).Int("journeys", len(journeys)).Msg("Replay finished")

			return nil
		},
	}
}
