package location

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// waitDelay bounds how long Fetch waits for output pipes after the command
// was killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

// Client invokes the external location command
type Client struct {
	command  string
	args     []string
	parseErr error
}

// NewClient creates a client for a command line such as "termux-location".
// The line is split with shell quoting rules; extra words are passed as
// leading arguments.
func NewClient(commandLine string) *Client {
	fields, err := shellquote.Split(commandLine)
	c := &Client{parseErr: err}
	if err == nil && len(fields) > 0 {
		c.command = fields[0]
		c.args = fields[1:]
	}
	return c
}

// Fetch runs the location command for the given provider and returns its
// standard output. The call is bounded by timeout; it is not retried.
func (c *Client) Fetch(ctx context.Context, provider Provider, timeout time.Duration) ([]byte, error) {
	if c.parseErr != nil {
		return nil, &FetchError{Kind: KindSpawn, Err: fmt.Errorf("invalid location command: %w", c.parseErr)}
	}
	if c.command == "" {
		return nil, &FetchError{Kind: KindSpawn, Err: errors.New("no location command configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, c.args...), "-p", string(provider))
	cmd := exec.CommandContext(callCtx, c.command, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	// Parent cancellation is not a provider failure
	if ctx.Err() != nil {
		return nil, fmt.Errorf("location fetch aborted: %w", ctx.Err())
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, &FetchError{Kind: KindTimeout, Err: fmt.Errorf("no result within %v", timeout)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &FetchError{
			Kind:   KindNonZeroExit,
			Err:    err,
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	return nil, &FetchError{Kind: KindSpawn, Err: err}
}
