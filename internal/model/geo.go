package model

import "fmt"

const GeoTypePoint = "Point"

// GeoPoint is a GeoJSON point, coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: GeoTypePoint, Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Validate() error {
	if p.Type != GeoTypePoint {
		return fmt.Errorf("geo location type must be %q", GeoTypePoint)
	}
	if len(p.Coordinates) != 2 {
		return fmt.Errorf("geo location must have exactly two coordinates")
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range", lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	return nil
}

func (p GeoPoint) Equal(other GeoPoint) bool {
	if p.Type != other.Type || len(p.Coordinates) != len(other.Coordinates) {
		return false
	}
	for i := range p.Coordinates {
		if p.Coordinates[i] != other.Coordinates[i] {
			return false
		}
	}
	return true
}
