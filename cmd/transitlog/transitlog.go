package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/api"
	"github.com/travigo/transitlog/pkg/ingest"
	"github.com/travigo/transitlog/pkg/replay"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	if os.Getenv("TRANSITLOG_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRANSITLOG_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "transitlog",
		Description: "Reconciles vehicle telemetry into journeys and renders them against a virtual clock",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			ingest.RegisterCLI(),
			replay.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
