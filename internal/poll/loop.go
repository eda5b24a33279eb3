package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/location"
	"github.com/pocket-tracker/tracker/internal/metrics"
	"github.com/pocket-tracker/tracker/internal/track"
)

// Loop polls the location provider on a fixed interval and appends each
// reading to the track file
type Loop struct {
	fetcher Fetcher
	append  AppendFunc
	journal Journal
	runID   string
	opts    Options
	stats   *metrics.RunStats
	now     func() time.Time
	state   State
}

// NewLoop creates a loop writing to opts.TrackPath through track.Append
func NewLoop(fetcher Fetcher, opts Options) *Loop {
	return &Loop{
		fetcher: fetcher,
		append:  track.Append,
		opts:    opts,
		stats:   metrics.NewRunStats(),
		now:     time.Now,
		state:   StateRunning,
	}
}

// WithJournal makes the loop record every cycle under runID
func (l *Loop) WithJournal(j Journal, runID string) *Loop {
	l.journal = j
	l.runID = runID
	return l
}

// Stats returns the run statistics collected so far
func (l *Loop) Stats() *metrics.RunStats {
	return l.stats
}

// State returns the current loop state
func (l *Loop) State() State {
	return l.state
}

// Run polls until stop is closed (or receives a value) or ctx is cancelled.
// A stop request never interrupts a provider call in flight; a reading that
// completes after the request is still appended before the loop exits.
// The only error returned for a running loop is a malformed track file, or
// the context error when ctx ends the run.
func (l *Loop) Run(ctx context.Context, stop <-chan struct{}) error {
	defer func() { l.state = StateTerminated }()

	for seq := 1; ; seq++ {
		if stopRequested(stop) {
			l.state = StateStopping
			log.Println("Poll: stop requested, no further readings")
			return nil
		}

		if err := l.cycle(ctx, seq); err != nil {
			l.state = StateStopping
			return err
		}

		if stopRequested(stop) {
			l.state = StateStopping
			log.Println("Poll: stop requested during reading, exiting")
			return nil
		}

		if !l.sleep(ctx, stop) {
			l.state = StateStopping
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Println("Poll: stop requested, no further readings")
			return nil
		}
	}
}

// cycle performs one read-and-append step. Only fatal conditions are returned.
func (l *Loop) cycle(ctx context.Context, seq int) error {
	log.Printf("Poll: reading %s location...", l.opts.Provider)

	started := time.Now()
	raw, err := l.fetcher.Fetch(ctx, l.opts.Provider, l.opts.Timeout)
	latency := time.Since(started)
	polledAt := l.now()

	if err != nil {
		var fetchErr *location.FetchError
		if !errors.As(err, &fetchErr) {
			// Cancelled through ctx rather than a provider failure
			l.record(ctx, db.Cycle{Seq: seq, PolledAt: polledAt, Outcome: string(OutcomeAborted)}, OutcomeAborted)
			return err
		}
		log.Printf("Poll: warning: location fetch failed: %v", fetchErr)
		kind := fetchErr.Kind.String()
		l.record(ctx, failedCycle(seq, polledAt, OutcomeFetchFailed, kind, err), OutcomeFetchFailed)
		return nil
	}

	l.stats.ObserveLatency(latency)
	latencyMS := float64(latency) / float64(time.Millisecond)

	reading, err := location.ParseReading(raw)
	if err != nil {
		log.Printf("Poll: error decoding location JSON: %v", err)
		log.Printf("Poll: provider output: %q", raw)
		c := failedCycle(seq, polledAt, OutcomeParseFailed, kindMalformedLocation, err)
		c.LatencyMS = &latencyMS
		l.record(ctx, c, OutcomeParseFailed)
		return nil
	}

	c := db.Cycle{
		Seq:       seq,
		PolledAt:  polledAt,
		LatencyMS: &latencyMS,
		Longitude: &reading.Longitude,
		Latitude:  &reading.Latitude,
	}

	feature := track.NewFeature(reading, l.opts.Provider, polledAt)
	if err := l.append(l.opts.TrackPath, feature); err != nil {
		kind := kindFileIO
		if errors.Is(err, track.ErrMalformedTrack) {
			kind = kindMalformedTrack
		}
		msg := err.Error()
		c.Outcome, c.ErrorKind, c.ErrorMessage = string(OutcomeStoreFailed), &kind, &msg
		l.record(ctx, c, OutcomeStoreFailed)

		if kind == kindMalformedTrack {
			return fmt.Errorf("cannot continue track %s: %w", l.opts.TrackPath, err)
		}
		log.Printf("Poll: error: failed to append record: %v", err)
		return nil
	}

	c.Outcome, c.Appended = string(OutcomeAppended), true
	l.record(ctx, c, OutcomeAppended)
	log.Printf("Poll: new record appended to %s (%.6f, %.6f)", l.opts.TrackPath, reading.Longitude, reading.Latitude)
	return nil
}

func (l *Loop) record(ctx context.Context, c db.Cycle, outcome Outcome) {
	l.stats.CountOutcome(string(outcome))
	if l.journal == nil {
		return
	}
	// The journal write must land even when ctx is already cancelled
	if err := l.journal.RecordCycle(context.WithoutCancel(ctx), l.runID, c); err != nil {
		log.Printf("Journal: failed to record cycle %d: %v", c.Seq, err)
	}
}

// sleep waits one interval. It returns false when stop or ctx ended the wait.
func (l *Loop) sleep(ctx context.Context, stop <-chan struct{}) bool {
	timer := time.NewTimer(l.opts.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func stopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func failedCycle(seq int, polledAt time.Time, outcome Outcome, kind string, err error) db.Cycle {
	msg := err.Error()
	return db.Cycle{
		Seq:          seq,
		PolledAt:     polledAt,
		Outcome:      string(outcome),
		ErrorKind:    &kind,
		ErrorMessage: &msg,
	}
}
