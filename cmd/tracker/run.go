package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocket-tracker/tracker/internal/config"
	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/location"
	"github.com/pocket-tracker/tracker/internal/logging"
	"github.com/pocket-tracker/tracker/internal/poll"
	"github.com/pocket-tracker/tracker/internal/track"
	"github.com/pocket-tracker/tracker/internal/wakelock"
)

// inputGrace bounds how long shutdown waits for the stdin watcher. A stop
// triggered by a signal leaves it blocked on a read that may never return.
const inputGrace = 500 * time.Millisecond

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	runLog, err := logging.InitRunLog(cfg.LogsDir, track.Stamp(startedAt))
	if err != nil {
		logging.InitLogging()
		log.Printf("Warning: run log disabled: %v", err)
	} else {
		defer runLog.Close()
	}

	provider, err := location.ParseProvider(cfg.Provider)
	if err != nil {
		log.Printf("Invalid provider: %v", err)
		return err
	}

	trackPath := track.PathFor(cfg.RecordsDir, startedAt)
	if err := track.Create(trackPath); err != nil {
		log.Printf("Failed to create track file: %v", err)
		return err
	}
	log.Printf("Tracker started: provider=%s interval=%v timeout=%v track=%s",
		provider, cfg.PollInterval, cfg.ProviderTimeout, trackPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WakeLockEnabled {
		lock := wakelock.New(cfg.WakeLockCommand, cfg.WakeUnlockCommand)
		if err := lock.Acquire(ctx); err != nil {
			log.Printf("Warning: %v", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
	}

	loop := poll.NewLoop(location.NewClient(cfg.LocationCommand), poll.Options{
		Provider:  provider,
		Interval:  cfg.PollInterval,
		Timeout:   cfg.ProviderTimeout,
		TrackPath: trackPath,
	})

	journal, runID := openJournal(ctx, cfg, startedAt, trackPath, provider)
	if journal != nil {
		defer journal.Close()
		loop.WithJournal(journal, runID)
	}

	watcher := poll.WatchInput(os.Stdin, poll.QuitToken)
	stop := poll.Merge(watcher.Stop(), notifyStop(ctx, cancel))
	log.Printf("Type %q and press Enter to stop", poll.QuitToken)

	runErr := loop.Run(ctx, stop)

	select {
	case <-watcher.Done():
	case <-time.After(inputGrace):
	}

	stats := loop.Stats()
	if journal != nil {
		summary := db.RunSummary{
			EndedAt:         time.Now(),
			LatencyMeanMS:   stats.LatencyMeanMS(),
			LatencyStdDevMS: stats.LatencyStdDevMS(),
		}
		if err := journal.FinishRun(context.Background(), runID, summary); err != nil {
			log.Printf("Journal: %v", err)
		}
	}
	log.Printf("Run summary: %s", stats.Summary())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("Tracker stopped with error: %v", runErr)
		return runErr
	}
	log.Println("Tracker terminated gracefully.")
	return nil
}

// openJournal opens the run journal. Any failure disables journaling for
// this run; the track file is still written.
func openJournal(ctx context.Context, cfg *config.Config, startedAt time.Time, trackPath string, provider location.Provider) (*db.DB, string) {
	if cfg.DatabasePath == "" {
		return nil, ""
	}

	journal, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Printf("Warning: journal disabled: %v", err)
		return nil, ""
	}

	if _, err := journal.Cleanup(ctx, cfg.RetentionDuration); err != nil {
		log.Printf("Cleanup error: %v", err)
	}

	runID, err := journal.CreateRun(ctx, startedAt, trackPath, string(provider), cfg.PollInterval)
	if err != nil {
		log.Printf("Warning: journal disabled: %v", err)
		journal.Close()
		return nil, ""
	}
	log.Printf("Journal: run %s recorded in %s", runID, cfg.DatabasePath)
	return journal, runID
}

// notifyStop returns a channel closed on the first SIGINT or SIGTERM. A
// second signal cancels ctx, aborting any provider call in flight.
func notifyStop(ctx context.Context, cancel context.CancelFunc) <-chan struct{} {
	stop := make(chan struct{})
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)
		select {
		case s := <-sig:
			log.Printf("Received %v, finishing current reading", s)
			close(stop)
		case <-ctx.Done():
			return
		}
		select {
		case s := <-sig:
			log.Printf("Received %v again, aborting", s)
			cancel()
		case <-ctx.Done():
		}
	}()
	return stop
}
