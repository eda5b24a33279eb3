package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// InitLogging configures the standard logger for console output
func InitLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

// InitRunLog tees the standard logger to stdout and <dir>/<stamp>.log.
// The returned closer restores stdout-only logging and closes the file.
// An empty dir keeps console-only logging.
func InitRunLog(dir, stamp string) (io.Closer, error) {
	InitLogging()
	if dir == "" {
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := filepath.Join(dir, stamp+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return &runLog{file: f}, nil
}

type runLog struct {
	file *os.File
}

func (r *runLog) Close() error {
	log.SetOutput(os.Stdout)
	return r.file.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
