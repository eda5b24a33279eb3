package poll

import (
	"io"
	"strings"
	"testing"
	"time"
)

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was not closed", what)
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestWatchInputQuit(t *testing.T) {
	w := WatchInput(strings.NewReader("hello\n  q  \nignored\n"), QuitToken)

	waitClosed(t, w.Stop(), "stop")
	waitClosed(t, w.Done(), "done")
}

func TestWatchInputEOFDoesNotStop(t *testing.T) {
	w := WatchInput(strings.NewReader("quit\nQ\nqq\n"), QuitToken)

	waitClosed(t, w.Done(), "done")
	if isClosed(w.Stop()) {
		t.Error("stop should stay open when the quit token never arrives")
	}
}

func TestWatchInputBlocksUntilToken(t *testing.T) {
	r, pw := io.Pipe()
	defer pw.Close()

	w := WatchInput(r, QuitToken)

	pw.Write([]byte("status\n"))
	time.Sleep(20 * time.Millisecond)
	if isClosed(w.Stop()) {
		t.Fatal("stop closed before the quit token")
	}

	pw.Write([]byte("q\n"))
	waitClosed(t, w.Stop(), "stop")
}

func TestMerge(t *testing.T) {
	a := make(chan struct{})
	b := make(chan struct{}, 1)

	merged := Merge(a, b)
	if isClosed(merged) {
		t.Fatal("merged channel closed too early")
	}

	b <- struct{}{}
	waitClosed(t, merged, "merged")

	// Closing another input afterwards must not panic
	close(a)
	time.Sleep(10 * time.Millisecond)
}
