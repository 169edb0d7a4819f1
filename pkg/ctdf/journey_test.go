package ctdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIdentity(vehicle string) JourneyIdentity {
	return JourneyIdentity{
		JourneyType:     JourneyTypeJourney,
		RouteID:         "2550",
		Direction:       "1",
		DepartureDate:   "2024-05-02",
		DepartureTime:   "08:15:00",
		UniqueVehicleID: vehicle,
	}
}

func journeyWith(id string, identity JourneyIdentity, positions int, events int) *Journey {
	journey := &Journey{ID: id, JourneyIdentity: identity}

	for i := 0; i < positions; i++ {
		journey.PositionEvents = append(journey.PositionEvents, &PositionEvent{RecordedAtUnix: int64(i)})
	}
	for i := 0; i < events; i++ {
		journey.Events = append(journey.Events, &JourneyEvent{Type: JourneyEventTypeArrival})
	}

	return journey
}

func ids(journeys []*Journey) []string {
	var out []string
	for _, journey := range journeys {
		out = append(out, journey.ID)
	}
	return out
}

func TestJourneyIdentityKey(t *testing.T) {
	signed := signedIdentity("22/1234")
	assert.Equal(t, "2550:1:2024-05-02:08:15:00:22/1234", signed.Key())

	unsigned := JourneyIdentity{
		JourneyType:     "deadrun",
		RouteID:         "ignored",
		DepartureDate:   "2024-05-02",
		UniqueVehicleID: "22/1234",
	}
	assert.Equal(t, "deadrun:22/1234:2024-05-02", unsigned.Key())
	assert.False(t, unsigned.IsSigned())
}

func TestMergeDuplicateJourneys(t *testing.T) {
	a := signedIdentity("22/1")
	b := signedIdentity("22/2")

	tests := []struct {
		name     string
		journeys []*Journey
		expected []string
	}{
		{
			name:     "empty input",
			journeys: nil,
			expected: nil,
		},
		{
			name: "no duplicates pass through in order",
			journeys: []*Journey{
				journeyWith("b", b, 3, 0),
				journeyWith("a", a, 1, 0),
			},
			expected: []string{"b", "a"},
		},
		{
			name: "more positions wins",
			journeys: []*Journey{
				journeyWith("area", a, 2, 0),
				journeyWith("selected", a, 10, 0),
			},
			expected: []string{"selected"},
		},
		{
			name: "exact tie keeps first seen",
			journeys: []*Journey{
				journeyWith("first", a, 4, 0),
				journeyWith("second", a, 4, 0),
			},
			expected: []string{"first"},
		},
		{
			name: "member with events wins over more positions",
			journeys: []*Journey{
				journeyWith("events", a, 2, 1),
				journeyWith("positions", a, 50, 0),
			},
			expected: []string{"events"},
		},
		{
			name: "member with events wins when seen last",
			journeys: []*Journey{
				journeyWith("positions", a, 50, 0),
				journeyWith("events", a, 2, 1),
			},
			expected: []string{"events"},
		},
		{
			name: "later member with events wins even with fewer positions",
			journeys: []*Journey{
				journeyWith("first", a, 10, 1),
				journeyWith("second", a, 2, 1),
			},
			expected: []string{"second"},
		},
		{
			name: "member without events never replaces one with events",
			journeys: []*Journey{
				journeyWith("events", a, 1, 1),
				journeyWith("positions", a, 30, 0),
				journeyWith("more", a, 40, 0),
			},
			expected: []string{"events"},
		},
		{
			name: "groups keep first seen order",
			journeys: []*Journey{
				journeyWith("a1", a, 1, 0),
				journeyWith("b1", b, 1, 0),
				journeyWith("a2", a, 5, 0),
			},
			expected: []string{"a2", "b1"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ids(MergeDuplicateJourneys(test.journeys)))
		})
	}
}

func TestMergeDuplicateJourneysIsIdempotent(t *testing.T) {
	a := signedIdentity("22/1")
	b := signedIdentity("22/2")
	unsigned := JourneyIdentity{JourneyType: "deadrun", UniqueVehicleID: "22/1", DepartureDate: "2024-05-02"}

	journeys := []*Journey{
		journeyWith("a1", a, 1, 0),
		journeyWith("u1", unsigned, 3, 0),
		journeyWith("b1", b, 7, 1),
		journeyWith("a2", a, 1, 2),
		journeyWith("u2", unsigned, 9, 0),
		journeyWith("b2", b, 8, 0),
	}

	once := MergeDuplicateJourneys(journeys)
	twice := MergeDuplicateJourneys(once)

	require.Len(t, once, 3)
	assert.Equal(t, []string{"a2", "u2", "b1"}, ids(once))
	assert.Equal(t, ids(once), ids(twice))

	for i := range once {
		assert.Same(t, once[i], twice[i])
	}
}
