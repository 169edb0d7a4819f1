package feeds

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/travigo/transitlog/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

const JourneyTypeDeadrun = "deadrun"

func parseGTFSRealtime(reader io.Reader) ([]*ctdf.Journey, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed parsing GTFS-RT protobuf: %w", err)
	}

	return JourneysFromFeed(&feed), nil
}

// JourneysFromFeed turns the VehiclePosition entities of a feed into journeys.
// Delays come from TripUpdates in the same feed and are flipped so that positive
// means ahead of schedule, matching the other inputs.
func JourneysFromFeed(feed *gtfs.FeedMessage) []*ctdf.Journey {
	tripDelays := map[string]int{}
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil || tripUpdate.Delay == nil {
			continue
		}

		tripDelays[tripUpdate.GetTrip().GetTripId()] = int(tripUpdate.GetDelay())
	}

	var journeys []*ctdf.Journey
	byKey := map[string]*ctdf.Journey{}

	for _, entity := range feed.GetEntity() {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil {
			continue
		}

		trip := vehiclePosition.GetTrip()
		identity := ctdf.JourneyIdentity{
			JourneyType:     ctdf.JourneyTypeJourney,
			RouteID:         trip.GetRouteId(),
			Direction:       strconv.Itoa(int(trip.GetDirectionId())),
			DepartureDate:   formatStartDate(trip.GetStartDate()),
			DepartureTime:   trip.GetStartTime(),
			UniqueVehicleID: vehiclePosition.GetVehicle().GetId(),
		}

		recordedAt := time.Unix(int64(vehiclePosition.GetTimestamp()), 0).UTC()

		if trip.GetRouteId() == "" {
			identity = ctdf.JourneyIdentity{
				JourneyType:     JourneyTypeDeadrun,
				DepartureDate:   recordedAt.Format(time.DateOnly),
				UniqueVehicleID: vehiclePosition.GetVehicle().GetId(),
			}
		}

		event := &ctdf.PositionEvent{
			ID:             entity.GetId(),
			JourneyType:    identity.JourneyType,
			RecordedAt:     recordedAt.Format(time.RFC3339),
			RecordedAtUnix: recordedAt.Unix(),
			Delay:          -tripDelays[trip.GetTripId()],
			Speed:          float64(vehiclePosition.GetPosition().GetSpeed()),
			NextStopID:     vehiclePosition.GetStopId(),
		}

		if position := vehiclePosition.GetPosition(); position != nil {
			lat := float64(position.GetLatitude())
			lng := float64(position.GetLongitude())
			event.Lat = &lat
			event.Lng = &lng
		}

		key := identity.Key()
		journey, exists := byKey[key]
		if !exists {
			journey = &ctdf.Journey{JourneyIdentity: identity}
			byKey[key] = journey
			journeys = append(journeys, journey)
		}

		journey.PositionEvents = append(journey.PositionEvents, event)
	}

	return journeys
}

// formatStartDate turns the GTFS YYYYMMDD start date into YYYY-MM-DD
func formatStartDate(startDate string) string {
	parsed, err := time.Parse("20060102", startDate)
	if err != nil {
		return startDate
	}

	return parsed.Format(time.DateOnly)
}
