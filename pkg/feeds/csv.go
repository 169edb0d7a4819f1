package feeds

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/travigo/transitlog/pkg/ctdf"
)

// positionRow is one line of a position event CSV export
type positionRow struct {
	JourneyType     string `csv:"journey_type"`
	RouteID         string `csv:"route_id"`
	Direction       string `csv:"direction"`
	DepartureDate   string `csv:"departure_date"`
	DepartureTime   string `csv:"departure_time"`
	UniqueVehicleID string `csv:"unique_vehicle_id"`

	ID             string  `csv:"id"`
	RecordedAt     string  `csv:"recorded_at"`
	RecordedAtUnix int64   `csv:"recorded_at_unix"`
	Lat            string  `csv:"lat"`
	Lng            string  `csv:"lng"`
	Delay          int     `csv:"delay"`
	DoorsOpened    bool    `csv:"doors_opened"`
	Speed          float64 `csv:"speed"`
	NextStopID     string  `csv:"next_stop_id"`
}

func (r *positionRow) identity() ctdf.JourneyIdentity {
	return ctdf.JourneyIdentity{
		JourneyType:     r.JourneyType,
		RouteID:         r.RouteID,
		Direction:       r.Direction,
		DepartureDate:   r.DepartureDate,
		DepartureTime:   r.DepartureTime,
		UniqueVehicleID: r.UniqueVehicleID,
	}
}

func (r *positionRow) event() *ctdf.PositionEvent {
	return &ctdf.PositionEvent{
		ID:             r.ID,
		JourneyType:    r.JourneyType,
		Lat:            parseCoordinate(r.Lat),
		Lng:            parseCoordinate(r.Lng),
		RecordedAt:     r.RecordedAt,
		RecordedAtUnix: r.RecordedAtUnix,
		Delay:          r.Delay,
		DoorsOpened:    r.DoorsOpened,
		Speed:          r.Speed,
		NextStopID:     r.NextStopID,
	}
}

// parseCoordinate returns nil for empty or unparseable values
func parseCoordinate(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}

	return &parsed
}

func parseCSV(reader io.Reader) ([]*ctdf.Journey, error) {
	// Allow rows with missing trailing columns
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	var rows []*positionRow
	if err := gocsv.UnmarshalCSV(csvReader, &rows); err != nil {
		return nil, err
	}

	var journeys []*ctdf.Journey
	byKey := map[string]*ctdf.Journey{}

	for _, row := range rows {
		identity := row.identity()
		key := identity.Key()

		journey, exists := byKey[key]
		if !exists {
			journey = &ctdf.Journey{JourneyIdentity: identity}
			byKey[key] = journey
			journeys = append(journeys, journey)
		}

		journey.PositionEvents = append(journey.PositionEvents, row.event())
	}

	return journeys, nil
}
