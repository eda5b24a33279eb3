package track

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileStampLayout names track and log files after the run start time
const fileStampLayout = "2006-01-02_15-04-05"

// Extension of track files
const Extension = ".geojson"

var (
	// ErrMalformedTrack means the file no longer decodes as a FeatureCollection.
	// Appending cannot continue on such a file.
	ErrMalformedTrack = errors.New("malformed track file")

	// ErrTrackIO wraps filesystem failures; the current reading is lost but
	// the file is left as it was.
	ErrTrackIO = errors.New("track file I/O error")
)

// Stamp formats t the way track and log files are named
func Stamp(t time.Time) string {
	return t.Format(fileStampLayout)
}

// FileName returns the track file name for a run started at t
func FileName(t time.Time) string {
	return Stamp(t) + Extension
}

// PathFor returns the track file path for a run started at t under dir
func PathFor(dir string, t time.Time) string {
	return filepath.Join(dir, FileName(t))
}

// Create writes an empty FeatureCollection to path, creating parent
// directories as needed. Any error here is fatal for the run.
func Create(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create records directory: %w", err)
		}
	}
	if err := write(path, NewFeatureCollection()); err != nil {
		return fmt.Errorf("failed to create track file %s: %w", path, err)
	}
	return nil
}

// Load reads and decodes the whole track file
func Load(path string) (*FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackIO, err)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTrack, path, err)
	}
	if fc.Type != typeFeatureCollection {
		return nil, fmt.Errorf("%w: %s: type is %q", ErrMalformedTrack, path, fc.Type)
	}
	if fc.Features == nil {
		fc.Features = []Feature{}
	}

	return &fc, nil
}

// Append reads the whole file, adds feature at the end and rewrites the
// whole file. Cost is linear in the current track length.
func Append(path string, feature Feature) error {
	fc, err := Load(path)
	if err != nil {
		return err
	}

	fc.Features = append(fc.Features, feature)

	if err := write(path, fc); err != nil {
		return fmt.Errorf("%w: %w", ErrTrackIO, err)
	}
	return nil
}

// write replaces path with the encoded collection. The data goes to a
// sibling temp file first and is renamed over the target, so readers see
// either the old or the new document and never stale trailing bytes.
func write(path string, fc *FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
