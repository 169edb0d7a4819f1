package util

import (
	"time"
)

var recordedAtFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05",
}

// ParseRecordedAt parses the ISO-8601 timestamps found in telemetry feeds
func ParseRecordedAt(value string) (time.Time, error) {
	var err error
	for _, format := range recordedAtFormats {
		var parsed time.Time
		parsed, err = time.Parse(format, value)
		if err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, err
}
