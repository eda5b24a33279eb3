package wakelock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

const commandTimeout = 10 * time.Second

// ErrUnavailable means the wake-lock command could not be run. Polling
// continues without the lock.
var ErrUnavailable = errors.New("wake-lock unavailable")

// Lock acquires and releases the device wake-lock via companion commands
type Lock struct {
	acquireCmd string
	releaseCmd string
	held       bool
}

// New creates a lock driven by the given acquire and release command lines
func New(acquireCmd, releaseCmd string) *Lock {
	return &Lock{acquireCmd: acquireCmd, releaseCmd: releaseCmd}
}

// Acquire runs the acquire command once
func (l *Lock) Acquire(ctx context.Context) error {
	if err := run(ctx, l.acquireCmd); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	l.held = true
	log.Println("Wake-lock: acquired")
	return nil
}

// Release runs the release command if the lock was acquired
func (l *Lock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	if err := run(ctx, l.releaseCmd); err != nil {
		return fmt.Errorf("failed to release wake-lock: %w", err)
	}
	l.held = false
	log.Println("Wake-lock: released")
	return nil
}

// Held reports whether the lock is currently held
func (l *Lock) Held() bool {
	return l.held
}

func run(ctx context.Context, commandLine string) error {
	fields, err := shellquote.Split(commandLine)
	if err != nil {
		return fmt.Errorf("invalid command %q: %w", commandLine, err)
	}
	if len(fields) == 0 {
		return errors.New("no command configured")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.WaitDelay = time.Second
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", fields[0], err, msg)
		}
		return fmt.Errorf("%s: %w", fields[0], err)
	}
	return nil
}
