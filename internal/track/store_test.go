package track

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pocket-tracker/tracker/internal/location"
)

func newReading(lon, lat float64) location.Reading {
	return location.Reading{
		Longitude: lon,
		Latitude:  lat,
		Raw: map[string]interface{}{
			"longitude": lon,
			"latitude":  lat,
			"accuracy":  18.2,
			"provider":  "network",
		},
	}
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	if got := FileName(start); got != "2024-03-09_07-05-02.geojson" {
		t.Errorf("FileName = %q", got)
	}
	if got := PathFor("records", start); got != filepath.Join("records", "2024-03-09_07-05-02.geojson") {
		t.Errorf("PathFor = %q", got)
	}
}

func TestCreateWritesEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records", "run.geojson")

	if err := Create(path); err != nil {
		t.Fatalf("Create: %v", err)
	}

	fc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("Type = %q", fc.Type)
	}
	if len(fc.Features) != 0 {
		t.Errorf("expected 0 features, got %d", len(fc.Features))
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"features": []`) {
		t.Errorf("empty feature list should serialize as [], got %s", data)
	}
}

func TestCreateFailsOnUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, []byte("x"), 0644)

	// A regular file where a directory is expected
	if err := Create(filepath.Join(blocker, "run.geojson")); err == nil {
		t.Error("expected error when parent is a file")
	}
}

func TestAppendKeepsCoordinatesAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.geojson")
	if err := Create(path); err != nil {
		t.Fatal(err)
	}

	base := time.Unix(1700000000, 0)
	points := [][2]float64{{12.3, 45.6}, {-0.1276, 51.5072}, {151.2093, -33.8688}}
	for i, p := range points {
		f := NewFeature(newReading(p[0], p[1]), location.ProviderNetwork, base.Add(time.Duration(i)*time.Minute))
		if err := Append(path, f); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	fc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != len(points) {
		t.Fatalf("expected %d features, got %d", len(points), len(fc.Features))
	}

	var lastTS int64
	for i, f := range fc.Features {
		if f.Geometry.Coordinates != points[i] {
			t.Errorf("feature %d coordinates = %v, want %v (lon, lat)", i, f.Geometry.Coordinates, points[i])
		}
		if f.Geometry.Type != "Point" || f.Type != "Feature" {
			t.Errorf("feature %d has types %q/%q", i, f.Type, f.Geometry.Type)
		}
		if f.Properties.Provider != "network" {
			t.Errorf("feature %d provider = %q", i, f.Properties.Provider)
		}
		if f.Properties.Timestamp <= lastTS {
			t.Errorf("feature %d timestamp %d not after %d", i, f.Properties.Timestamp, lastTS)
		}
		lastTS = f.Properties.Timestamp
	}

	if fc.Features[0].Properties.AdditionalInfo["accuracy"] != 18.2 {
		t.Errorf("additional_info not preserved: %v", fc.Features[0].Properties.AdditionalInfo)
	}
}

func TestRoundTripWithoutAppendIsLossless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.geojson")
	Create(path)
	Append(path, NewFeature(newReading(12.3, 45.6), location.ProviderGPS, time.Unix(1700000000, 0)))
	Append(path, NewFeature(newReading(12.4, 45.7), location.ProviderGPS, time.Unix(1700000060, 0)))

	before, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := write(path, before); err != nil {
		t.Fatal(err)
	}
	after, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(before, after) {
		t.Errorf("round trip changed the collection:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAppendLeavesNoTrailingBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.geojson")
	Create(path)

	// Pad the existing file with whitespace so the rewrite is shorter
	data, _ := os.ReadFile(path)
	padded := append(data, []byte(strings.Repeat(" ", 4096))...)
	os.WriteFile(path, padded, 0644)

	if err := Append(path, NewFeature(newReading(1, 2), location.ProviderGPS, time.Unix(1, 0))); err != nil {
		t.Fatal(err)
	}

	out, _ := os.ReadFile(path)
	if strings.HasSuffix(string(out), " ") {
		t.Error("rewritten file kept trailing bytes from the previous content")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the track file in the directory, found %d entries", len(entries))
	}
}

func TestAppendMalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not json at all"},
		{"truncated", `{"type": "FeatureCollection", "features": [`},
		{"wrong type", `{"type": "Feature", "features": []}`},
		{"features not a list", `{"type": "FeatureCollection", "features": 3}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run.geojson")
			os.WriteFile(path, []byte(tc.content), 0644)

			err := Append(path, NewFeature(newReading(1, 2), location.ProviderGPS, time.Unix(1, 0)))
			if !errors.Is(err, ErrMalformedTrack) {
				t.Errorf("expected ErrMalformedTrack, got %v", err)
			}

			// The broken file is left untouched
			data, _ := os.ReadFile(path)
			if string(data) != tc.content {
				t.Error("malformed file was modified")
			}
		})
	}
}

func TestAppendMissingFileIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.geojson")

	err := Append(path, NewFeature(newReading(1, 2), location.ProviderGPS, time.Unix(1, 0)))
	if !errors.Is(err, ErrTrackIO) {
		t.Errorf("expected ErrTrackIO, got %v", err)
	}
	if errors.Is(err, ErrMalformedTrack) {
		t.Error("missing file must not be reported as malformed")
	}
}
