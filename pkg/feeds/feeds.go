// Package feeds reads journeys and position events from fixture and feed files
package feeds

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/util"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON         Format = "json"
	FormatYAML         Format = "yaml"
	FormatCSV          Format = "csv"
	FormatGTFSRealtime Format = "gtfs-rt"
)

// Document is the JSON and YAML fixture layout
type Document struct {
	Journeys []*ctdf.Journey `json:"journeys" yaml:"journeys"`
}

func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".pb", ".bin":
		return FormatGTFSRealtime, nil
	default:
		return "", fmt.Errorf("unknown feed format for %s", path)
	}
}

func Load(path string) ([]*ctdf.Journey, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	journeys, err := Parse(file, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	log.Info().Str("file", path).Str("format", string(format)).Int("journeys", len(journeys)).Msg("Loaded feed")

	return journeys, nil
}

func Parse(reader io.Reader, format Format) ([]*ctdf.Journey, error) {
	var journeys []*ctdf.Journey
	var err error

	switch format {
	case FormatJSON:
		var document Document
		err = json.NewDecoder(reader).Decode(&document)
		journeys = document.Journeys
	case FormatYAML:
		var document Document
		var body []byte
		body, err = io.ReadAll(reader)
		if err == nil {
			err = yaml.Unmarshal(body, &document)
		}
		journeys = document.Journeys
	case FormatCSV:
		journeys, err = parseCSV(reader)
	case FormatGTFSRealtime:
		journeys, err = parseGTFSRealtime(reader)
	default:
		err = fmt.Errorf("unsupported feed format %s", format)
	}

	if err != nil {
		return nil, err
	}

	return Normalise(journeys), nil
}

// NormaliseEvent fills in the unix time from recordedAt when missing and inherits the
// journey type of its journey. The error is from parsing recordedAt.
func NormaliseEvent(event *ctdf.PositionEvent, journey ctdf.JourneyIdentity) error {
	if event.RecordedAtUnix == 0 && event.RecordedAt != "" {
		recordedAt, err := util.ParseRecordedAt(event.RecordedAt)
		if err != nil {
			return err
		}

		event.RecordedAtUnix = recordedAt.Unix()
	}

	if event.JourneyType == "" {
		event.JourneyType = journey.JourneyType
	}

	return nil
}

// Normalise drops nil journeys and events, fills in missing unix times from the
// recorded at strings and sorts each journeys events by time
func Normalise(journeys []*ctdf.Journey) []*ctdf.Journey {
	journeys = util.Filter(journeys, func(journey *ctdf.Journey) bool {
		return journey != nil
	})

	for _, journey := range journeys {
		journey.PositionEvents = util.Filter(journey.PositionEvents, func(event *ctdf.PositionEvent) bool {
			return event != nil
		})

		for _, event := range journey.PositionEvents {
			if err := NormaliseEvent(event, journey.JourneyIdentity); err != nil {
				log.Debug().Err(err).Str("journey", journey.Key()).Msg("Unparseable recordedAt")
			}
		}

		slices.SortStableFunc(journey.PositionEvents, func(a, b *ctdf.PositionEvent) int {
			switch {
			case a.RecordedAtUnix < b.RecordedAtUnix:
				return -1
			case a.RecordedAtUnix > b.RecordedAtUnix:
				return 1
			default:
				return 0
			}
		})

		if journey.ID == "" {
			journey.ID = journey.Key()
		}
	}

	return journeys
}
