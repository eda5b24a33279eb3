package poll

import (
	"context"
	"time"

	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/location"
	"github.com/pocket-tracker/tracker/internal/track"
)

// State of the poll loop
type State int

const (
	StateRunning State = iota
	StateStopping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Outcome of one poll cycle
type Outcome string

const (
	OutcomeAppended    Outcome = "appended"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeParseFailed Outcome = "parse_failed"
	OutcomeStoreFailed Outcome = "store_failed"
	OutcomeAborted     Outcome = "aborted"
)

// Error kinds recorded alongside failed outcomes
const (
	kindMalformedLocation = "malformed_location_json"
	kindMalformedTrack    = "malformed_track_file"
	kindFileIO            = "file_io_error"
)

// Fetcher returns raw provider output for one reading
type Fetcher interface {
	Fetch(ctx context.Context, provider location.Provider, timeout time.Duration) ([]byte, error)
}

// AppendFunc persists one feature to the track file
type AppendFunc func(path string, feature track.Feature) error

// Journal records cycle outcomes
type Journal interface {
	RecordCycle(ctx context.Context, runID string, c db.Cycle) error
}

// Options configures a Loop
type Options struct {
	Provider  location.Provider
	Interval  time.Duration
	Timeout   time.Duration
	TrackPath string
}
