package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RunStats accumulates per-run polling statistics. It is owned by the poll
// loop and not safe for concurrent use.
type RunStats struct {
	latencyMS Welford
	outcomes  map[string]int
	cycles    int
}

// NewRunStats creates empty run statistics
func NewRunStats() *RunStats {
	return &RunStats{outcomes: make(map[string]int)}
}

// ObserveLatency records how long one provider call took
func (s *RunStats) ObserveLatency(d time.Duration) {
	s.latencyMS.Add(float64(d) / float64(time.Millisecond))
}

// CountOutcome records the outcome of one cycle
func (s *RunStats) CountOutcome(outcome string) {
	s.cycles++
	s.outcomes[outcome]++
}

// Cycles returns the number of completed cycles
func (s *RunStats) Cycles() int {
	return s.cycles
}

// Outcome returns how many cycles ended with outcome
func (s *RunStats) Outcome(outcome string) int {
	return s.outcomes[outcome]
}

// LatencyMeanMS returns the mean provider latency in milliseconds
func (s *RunStats) LatencyMeanMS() float64 {
	return s.latencyMS.Mean()
}

// LatencyStdDevMS returns the provider latency standard deviation in milliseconds
func (s *RunStats) LatencyStdDevMS() float64 {
	return s.latencyMS.StdDev()
}

// Summary renders a one-line summary for the termination log
func (s *RunStats) Summary() string {
	keys := make([]string, 0, len(s.outcomes))
	for k := range s.outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.outcomes[k]))
	}

	return fmt.Sprintf("%d cycles (%s), provider latency %.0fms ± %.0fms over %d calls",
		s.cycles, strings.Join(parts, ", "), s.latencyMS.Mean(), s.latencyMS.StdDev(), s.latencyMS.Count())
}
