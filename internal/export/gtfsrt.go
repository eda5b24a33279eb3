package export

import (
	"errors"
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/pocket-tracker/tracker/internal/track"
)

const gtfsRealtimeVersion = "2.0"

// ErrEmptyTrack is returned when there is no position to export
var ErrEmptyTrack = errors.New("track has no features")

// Options controls the GTFS-RT export
type Options struct {
	VehicleID string
	// All exports every feature as its own entity instead of only the latest
	All bool
}

// FeedMessage converts a track into a GTFS-Realtime VehiclePositions feed
func FeedMessage(fc *track.FeatureCollection, opts Options) (*gtfs.FeedMessage, error) {
	if len(fc.Features) == 0 {
		return nil, ErrEmptyTrack
	}

	vehicleID := opts.VehicleID
	if vehicleID == "" {
		vehicleID = "tracker"
	}

	last := fc.Features[len(fc.Features)-1]
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(last.Properties.Timestamp)),
		},
	}

	if !opts.All {
		feed.Entity = []*gtfs.FeedEntity{vehicleEntity(vehicleID, vehicleID, last)}
		return feed, nil
	}

	feed.Entity = make([]*gtfs.FeedEntity, 0, len(fc.Features))
	for i, f := range fc.Features {
		entityID := fmt.Sprintf("%s-%d", vehicleID, i+1)
		feed.Entity = append(feed.Entity, vehicleEntity(entityID, vehicleID, f))
	}
	return feed, nil
}

// Marshal encodes the feed for a track as protobuf bytes
func Marshal(fc *track.FeatureCollection, opts Options) ([]byte, error) {
	feed, err := FeedMessage(fc, opts)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return data, nil
}

func vehicleEntity(entityID, vehicleID string, f track.Feature) *gtfs.FeedEntity {
	position := &gtfs.Position{
		Latitude:  proto.Float32(float32(f.Latitude())),
		Longitude: proto.Float32(float32(f.Longitude())),
	}
	if bearing, ok := f.Properties.AdditionalInfo["bearing"].(float64); ok {
		position.Bearing = proto.Float32(float32(bearing))
	}
	if speed, ok := f.Properties.AdditionalInfo["speed"].(float64); ok {
		position.Speed = proto.Float32(float32(speed))
	}

	return &gtfs.FeedEntity{
		Id: proto.String(entityID),
		Vehicle: &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(vehicleID),
				Label: proto.String(f.Properties.Provider),
			},
			Position:  position,
			Timestamp: proto.Uint64(uint64(f.Properties.Timestamp)),
		},
	}
}
