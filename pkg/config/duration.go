package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/senseyeio/duration"
	"gopkg.in/yaml.v3"
)

// iso8601Reference anchors calendar based ISO-8601 durations (P1M etc.) to a fixed date
var iso8601Reference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Duration accepts either ISO-8601 durations (PT5M) or Go durations (5m) in YAML
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

func ParseDuration(value string) (Duration, error) {
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "P") {
		isoDuration, err := duration.ParseISO8601(value)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", value, err)
		}

		return Duration(isoDuration.Shift(iso8601Reference).Sub(iso8601Reference)), nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}

	return Duration(parsed), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}

	parsed, err := ParseDuration(value)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
