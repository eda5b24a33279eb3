package track

import (
	"time"

	"github.com/pocket-tracker/tracker/internal/location"
)

const (
	typeFeatureCollection = "FeatureCollection"
	typeFeature           = "Feature"
	typePoint             = "Point"
)

// FeatureCollection is the GeoJSON document stored in a track file
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents one recorded position
type Feature struct {
	Type       string        `json:"type"`
	Geometry   PointGeometry `json:"geometry"`
	Properties Properties    `json:"properties"`
}

// PointGeometry represents Point geometry
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lng, lat]
}

// Properties contains the reading metadata
type Properties struct {
	Timestamp      int64                  `json:"timestamp"` // unix seconds
	Provider       string                 `json:"provider"`
	AdditionalInfo map[string]interface{} `json:"additional_info"`
}

// NewFeatureCollection returns an empty collection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     typeFeatureCollection,
		Features: []Feature{},
	}
}

// NewFeature wraps a reading into a Point feature stamped with at
func NewFeature(reading location.Reading, provider location.Provider, at time.Time) Feature {
	return Feature{
		Type: typeFeature,
		Geometry: PointGeometry{
			Type:        typePoint,
			Coordinates: [2]float64{reading.Longitude, reading.Latitude},
		},
		Properties: Properties{
			Timestamp:      at.Unix(),
			Provider:       string(provider),
			AdditionalInfo: reading.Raw,
		},
	}
}

// Longitude returns the feature's longitude
func (f Feature) Longitude() float64 {
	return f.Geometry.Coordinates[0]
}

// Latitude returns the feature's latitude
func (f Feature) Latitude() float64 {
	return f.Geometry.Coordinates[1]
}

// Time returns the feature timestamp
func (f Feature) Time() time.Time {
	return time.Unix(f.Properties.Timestamp, 0)
}
