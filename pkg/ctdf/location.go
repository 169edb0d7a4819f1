package ctdf

import "math"

const earthRadiusMeters = 6371008.8

// Location is a GeoJSON style point, Coordinates are [longitude, latitude]
type Location struct {
	Type        string    `json:"-" yaml:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates" groups:"basic"`
}

func NewPointLocation(latitude float64, longitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}

func (l *Location) IsValid() bool {
	if l == nil || len(l.Coordinates) != 2 {
		return false
	}

	lng, lat := l.Coordinates[0], l.Coordinates[1]

	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}

	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance returns the great-circle distance in metres using the haversine formula
func (l *Location) Distance(other *Location) float64 {
	lat1 := l.Latitude() * math.Pi / 180
	lat2 := other.Latitude() * math.Pi / 180
	deltaLat := (other.Latitude() - l.Latitude()) * math.Pi / 180
	deltaLng := (other.Longitude() - l.Longitude()) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
