package poll

import (
	"bufio"
	"io"
	"log"
	"strings"
	"sync"
)

// QuitToken is the line that requests a graceful shutdown
const QuitToken = "q"

// InputWatcher turns a quit line on an input stream into a stop signal
type InputWatcher struct {
	stop chan struct{}
	done chan struct{}
}

// WatchInput starts reading lines from r in the background. The Stop
// channel is closed when a line equal to token arrives. End of input
// finishes the watcher without requesting a stop.
func WatchInput(r io.Reader, token string) *InputWatcher {
	w := &InputWatcher{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.watch(r, token)
	return w
}

// Stop is closed once the quit token was read
func (w *InputWatcher) Stop() <-chan struct{} {
	return w.stop
}

// Done is closed when the watcher goroutine has finished
func (w *InputWatcher) Done() <-chan struct{} {
	return w.done
}

func (w *InputWatcher) watch(r io.Reader, token string) {
	defer close(w.done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == token {
			log.Println("Input: quit requested")
			close(w.stop)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Input: stopped reading: %v", err)
	}
}

// Merge returns a channel closed as soon as any of the given channels is
// closed or receives a value
func Merge(chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{})
	var once sync.Once
	for _, ch := range chans {
		go func(ch <-chan struct{}) {
			select {
			case <-ch:
				once.Do(func() { close(out) })
			case <-out:
			}
		}(ch)
	}
	return out
}
