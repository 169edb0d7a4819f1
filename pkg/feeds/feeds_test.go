package feeds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/transitlog/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

const jsonFixture = `{
  "journeys": [
    {
      "journeyType": "journey",
      "routeId": "2550",
      "direction": "1",
      "departureDate": "2026-03-02",
      "departureTime": "08:05:00",
      "uniqueVehicleId": "12/34",
      "vehiclePositions": [
        {"lat": 60.2, "lng": 24.9, "recordedAt": "2026-03-02T08:06:10Z", "delay": -20},
        {"lat": 60.1, "lng": 24.9, "recordedAt": "2026-03-02T08:06:00Z", "delay": -10}
      ]
    }
  ]
}`

const yamlFixture = `journeys:
  - journeyType: journey
    routeId: "2550"
    direction: "1"
    departureDate: "2026-03-02"
    departureTime: "08:05:00"
    uniqueVehicleId: 12/34
    vehiclePositions:
      - lat: 60.1
        lng: 24.9
        recordedAtUnix: 1772438760
        delay: 5
    events:
      - type: ARR
        stopId: "1020453"
`

const csvFixture = `journey_type,route_id,direction,departure_date,departure_time,unique_vehicle_id,id,recorded_at,recorded_at_unix,lat,lng,delay,doors_opened,speed,next_stop_id
journey,2550,1,2026-03-02,08:05:00,12/34,a,,1772438770,60.17,24.94,-30,false,8.5,1020453
journey,2550,1,2026-03-02,08:05:00,12/34,b,,1772438760,60.16,24.94,-25,true,0,1020453
deadrun,,,2026-03-02,,12/99,c,2026-03-02T08:06:00Z,,,,0,false,0,
`

func TestParseJSON(t *testing.T) {
	journeys, err := Parse(strings.NewReader(jsonFixture), FormatJSON)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	journey := journeys[0]
	assert.Equal(t, "2550:1:2026-03-02:08:05:00:12/34", journey.Key())
	assert.Equal(t, journey.Key(), journey.ID)
	require.Len(t, journey.PositionEvents, 2)

	// sorted by the unix time filled in from recordedAt
	assert.Equal(t, -10, journey.PositionEvents[0].Delay)
	assert.Equal(t, int64(1772438760), journey.PositionEvents[0].RecordedAtUnix)
	assert.Equal(t, ctdf.JourneyTypeJourney, journey.PositionEvents[0].JourneyType)
}

func TestParseYAML(t *testing.T) {
	journeys, err := Parse(strings.NewReader(yamlFixture), FormatYAML)
	require.NoError(t, err)
	require.Len(t, journeys, 1)

	assert.Equal(t, "12/34", journeys[0].UniqueVehicleID)
	assert.True(t, journeys[0].HasEvents())
	assert.Equal(t, ctdf.JourneyEventTypeArrival, journeys[0].Events[0].Type)
	assert.Equal(t, 5, journeys[0].PositionEvents[0].Delay)
}

func TestParseCSVGroupsRowsByJourney(t *testing.T) {
	journeys, err := Parse(strings.NewReader(csvFixture), FormatCSV)
	require.NoError(t, err)
	require.Len(t, journeys, 2)

	signed := journeys[0]
	require.Len(t, signed.PositionEvents, 2)
	assert.Equal(t, "b", signed.PositionEvents[0].ID)
	assert.True(t, signed.PositionEvents[0].DoorsOpened)
	assert.Equal(t, "a", signed.PositionEvents[1].ID)
	assert.Equal(t, 8.5, signed.PositionEvents[1].Speed)
	require.NotNil(t, signed.PositionEvents[1].Lat)
	assert.Equal(t, 60.17, *signed.PositionEvents[1].Lat)

	unsigned := journeys[1]
	assert.Equal(t, "deadrun:12/99:2026-03-02", unsigned.Key())
	assert.Nil(t, unsigned.PositionEvents[0].Lat)
	assert.False(t, unsigned.PositionEvents[0].HasValidLocation())
	assert.Equal(t, int64(1772438760), unsigned.PositionEvents[0].RecordedAtUnix)
}

func TestParseCSVAcceptsShortRows(t *testing.T) {
	fixture := `journey_type,route_id,direction,departure_date,departure_time,unique_vehicle_id,id,recorded_at,recorded_at_unix,lat,lng,delay,doors_opened,speed,next_stop_id
journey,2550,1,2026-03-02,08:05:00,12/34,a,,1772438770,60.17,24.94,-30
journey,2550,1,2026-03-02,08:05:00,12/34,b,,1772438780,60.18,24.94,-20,true,4,1020453
`

	for i := 0; i < 2; i++ {
		journeys, err := Parse(strings.NewReader(fixture), FormatCSV)
		require.NoError(t, err)
		require.Len(t, journeys, 1)
		require.Len(t, journeys[0].PositionEvents, 2)

		short := journeys[0].PositionEvents[0]
		assert.Equal(t, "a", short.ID)
		assert.Equal(t, -30, short.Delay)
		assert.False(t, short.DoorsOpened)
		assert.Empty(t, short.NextStopID)
		assert.Equal(t, "1020453", journeys[0].PositionEvents[1].NextStopID)
	}
}

func testFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("update-1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip:  &gtfs.TripDescriptor{TripId: proto.String("trip-1")},
					Delay: proto.Int32(240),
				},
			},
			{
				Id: proto.String("vehicle-2"),
				Vehicle: &gtfs.VehiclePosition{
					Trip: &gtfs.TripDescriptor{
						TripId:      proto.String("trip-1"),
						RouteId:     proto.String("2550"),
						DirectionId: proto.Uint32(1),
						StartDate:   proto.String("20260302"),
						StartTime:   proto.String("08:05:00"),
					},
					Vehicle:   &gtfs.VehicleDescriptor{Id: proto.String("12/34")},
					Position:  &gtfs.Position{Latitude: proto.Float32(60.17), Longitude: proto.Float32(24.94), Speed: proto.Float32(4)},
					Timestamp: proto.Uint64(1772438770),
					StopId:    proto.String("1020453"),
				},
			},
			{
				Id: proto.String("vehicle-1"),
				Vehicle: &gtfs.VehiclePosition{
					Trip: &gtfs.TripDescriptor{
						TripId:      proto.String("trip-1"),
						RouteId:     proto.String("2550"),
						DirectionId: proto.Uint32(1),
						StartDate:   proto.String("20260302"),
						StartTime:   proto.String("08:05:00"),
					},
					Vehicle:   &gtfs.VehicleDescriptor{Id: proto.String("12/34")},
					Position:  &gtfs.Position{Latitude: proto.Float32(60.16), Longitude: proto.Float32(24.94)},
					Timestamp: proto.Uint64(1772438760),
				},
			},
			{
				Id: proto.String("vehicle-3"),
				Vehicle: &gtfs.VehiclePosition{
					Vehicle:   &gtfs.VehicleDescriptor{Id: proto.String("12/99")},
					Timestamp: proto.Uint64(1772438760),
				},
			},
		},
	}
}

func TestParseGTFSRealtime(t *testing.T) {
	body, err := proto.Marshal(testFeed())
	require.NoError(t, err)

	journeys, err := Parse(strings.NewReader(string(body)), FormatGTFSRealtime)
	require.NoError(t, err)
	require.Len(t, journeys, 2)

	signed := journeys[0]
	assert.Equal(t, "2550:1:2026-03-02:08:05:00:12/34", signed.Key())
	require.Len(t, signed.PositionEvents, 2)
	assert.Equal(t, "vehicle-1", signed.PositionEvents[0].ID)
	assert.Equal(t, -240, signed.PositionEvents[1].Delay)
	assert.Equal(t, "1020453", signed.PositionEvents[1].NextStopID)
	assert.InDelta(t, 4.0, signed.PositionEvents[1].Speed, 0.001)
	assert.True(t, signed.PositionEvents[1].HasValidLocation())

	unsigned := journeys[1]
	assert.Equal(t, JourneyTypeDeadrun, unsigned.JourneyType)
	assert.False(t, unsigned.PositionEvents[0].IsSigned())
	assert.False(t, unsigned.PositionEvents[0].HasValidLocation())
}

func TestParseGTFSRealtimeRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("\xff\xff\xff"), FormatGTFSRealtime)
	assert.Error(t, err)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	directory := t.TempDir()

	for name, content := range map[string]string{
		"journeys.json": jsonFixture,
		"journeys.yml":  yamlFixture,
		"journeys.csv":  csvFixture,
	} {
		path := filepath.Join(directory, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		journeys, err := Load(path)
		require.NoError(t, err, name)
		assert.NotEmpty(t, journeys, name)
	}

	_, err := Load(filepath.Join(directory, "journeys.txt"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(directory, "missing.json"))
	assert.Error(t, err)
}

func TestNormaliseDropsNils(t *testing.T) {
	journeys := Normalise([]*ctdf.Journey{
		nil,
		{PositionEvents: []*ctdf.PositionEvent{nil, {RecordedAtUnix: 2}, {RecordedAtUnix: 1}}},
	})

	require.Len(t, journeys, 1)
	require.Len(t, journeys[0].PositionEvents, 2)
	assert.Equal(t, int64(1), journeys[0].PositionEvents[0].RecordedAtUnix)
}
