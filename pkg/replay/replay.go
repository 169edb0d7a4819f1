// Package replay steps the virtual clock through a recorded feed and renders the
// journey views at every step
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/clock"
	"github.com/travigo/transitlog/pkg/config"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/journeyview"
)

const listenerName = "replay"

var ErrNoEvents = errors.New("feed has no timed position events")

type Frame struct {
	Time  time.Time
	Views []*journeyview.View
}

type Options struct {
	Config *config.Config

	// Start defaults to the first recorded event
	Start time.Time
	// Steps is the maximum number of frames, the replay also ends at the last recorded event
	Steps int

	// Output receives a pretty printed summary of every frame, nil disables printing
	Output io.Writer
}

// RecordingBounds returns the first and last recorded event times
func RecordingBounds(journeys []*ctdf.Journey) (time.Time, time.Time, error) {
	var first, last int64

	for _, journey := range journeys {
		for _, event := range journey.PositionEvents {
			if event == nil || event.RecordedAtUnix == 0 {
				continue
			}

			if first == 0 || event.RecordedAtUnix < first {
				first = event.RecordedAtUnix
			}
			if event.RecordedAtUnix > last {
				last = event.RecordedAtUnix
			}
		}
	}

	if first == 0 {
		return time.Time{}, time.Time{}, ErrNoEvents
	}

	return time.Unix(first, 0).UTC(), time.Unix(last, 0).UTC(), nil
}

// Run loads journeys into a fresh store and takes manual update passes from Start
// until Steps frames were produced or the clock reached the end of the recording.
// The scheduler's wall clock is pinned to the last recorded event.
func Run(ctx context.Context, journeys []*ctdf.Journey, options Options) ([]Frame, error) {
	if options.Config == nil {
		options.Config = config.Default()
	}

	first, last, err := RecordingBounds(journeys)
	if err != nil {
		return nil, err
	}

	start := options.Start
	if start.IsZero() {
		start = first
	}

	builder, err := journeyview.NewBuilderFromConfig(options.Config)
	if err != nil {
		return nil, err
	}

	store := journeystore.NewStore()
	if err := store.Replace(ctx, journeystore.ProducerSelected, journeys); err != nil {
		return nil, err
	}

	schedulerOptions := clock.OptionsFromConfig(options.Config.Scheduler)
	schedulerOptions.TimeSource = clock.NewManualClock(last)

	var listenerErr error
	schedulerOptions.OnListenerError = func(name string, err error) {
		listenerErr = err
	}

	scheduler := clock.NewScheduler(schedulerOptions)

	var frames []Frame
	scheduler.Register(listenerName, func(auto bool) error {
		at := scheduler.Now()

		views, err := builder.BuildAll(store.Journeys(), at)
		if err != nil {
			return err
		}

		frame := Frame{Time: at, Views: views}
		frames = append(frames, frame)

		if options.Output != nil {
			printFrame(options.Output, frame)
		}

		return nil
	}, false)

	// the first manual update steps forward, so start one increment early
	increment := options.Config.Scheduler.TimeIncrement.Duration()
	if increment <= 0 {
		increment = clock.DefaultTimeIncrement
	}
	scheduler.SetTime(start.Add(-increment))

	for step := 0; options.Steps <= 0 || step < options.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		scheduler.ManualUpdate()
		if listenerErr != nil {
			return frames, listenerErr
		}

		if scheduler.State().IsCurrent {
			log.Debug().Time("time", scheduler.Now()).Msg("Replay reached the end of the recording")
			break
		}
	}

	return frames, nil
}

type frameSummary struct {
	Key          string
	Marker       string
	Current      string
	DelayChunks  []string
	Stationaries int
}

func printFrame(output io.Writer, frame Frame) {
	summaries := make([]frameSummary, 0, len(frame.Views))

	for _, view := range frame.Views {
		summary := frameSummary{
			Key:          view.Key,
			Marker:       describeEvent(view.MarkerEvent),
			Current:      describeEvent(view.CurrentEvent),
			Stationaries: len(view.StationaryPeriods),
		}
		for _, chunk := range view.DelayChunks {
			summary.DelayChunks = append(summary.DelayChunks, fmt.Sprintf("%s x%d", chunk.Label, len(chunk.Events)))
		}

		summaries = append(summaries, summary)
	}

	fmt.Fprintf(output, "== %s\n", frame.Time.Format(time.RFC3339))
	pretty.Fprintf(output, "%# v\n", summaries)
}

func describeEvent(event *ctdf.PositionEvent) string {
	if event == nil {
		return "-"
	}

	location, valid := event.Location()
	if !valid {
		return fmt.Sprintf("%s (no location) delay %ds", event.Time().UTC().Format(time.RFC3339), event.Delay)
	}

	return fmt.Sprintf("%s %.5f,%.5f delay %ds", event.Time().UTC().Format(time.RFC3339), location.Latitude(), location.Longitude(), event.Delay)
}
