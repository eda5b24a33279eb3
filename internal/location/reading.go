package location

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseReading decodes the JSON object printed by the location command.
// Longitude and latitude must be present and numeric; ranges are not checked.
func ParseReading(raw []byte) (Reading, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Reading{}, fmt.Errorf("%w: empty output", ErrMalformedReading)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformedReading, err)
	}
	if fields == nil {
		return Reading{}, fmt.Errorf("%w: not a JSON object", ErrMalformedReading)
	}

	lon, ok := fields["longitude"].(float64)
	if !ok {
		return Reading{}, fmt.Errorf("%w: missing numeric longitude", ErrMalformedReading)
	}
	lat, ok := fields["latitude"].(float64)
	if !ok {
		return Reading{}, fmt.Errorf("%w: missing numeric latitude", ErrMalformedReading)
	}

	return Reading{Longitude: lon, Latitude: lat, Raw: fields}, nil
}
