package location

import (
	"errors"
	"fmt"
	"strings"
)

// Provider selects the positioning backend
type Provider string

const (
	ProviderGPS     Provider = "gps"
	ProviderNetwork Provider = "network"
	ProviderPassive Provider = "passive"
)

// ParseProvider accepts the short selectors g/n/p as well as full names
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g", "gps":
		return ProviderGPS, nil
	case "n", "network":
		return ProviderNetwork, nil
	case "p", "passive":
		return ProviderPassive, nil
	}
	return "", fmt.Errorf("unknown provider %q (want g, n or p)", s)
}

// ErrorKind classifies a failed fetch
type ErrorKind int

const (
	KindTimeout ErrorKind = iota + 1
	KindNonZeroExit
	KindSpawn
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "provider_timeout"
	case KindNonZeroExit:
		return "provider_nonzero_exit"
	case KindSpawn:
		return "provider_spawn_error"
	}
	return "unknown"
}

// FetchError is returned by Client.Fetch for every provider-level failure
type FetchError struct {
	Kind   ErrorKind
	Err    error
	Stderr string // captured diagnostics for KindNonZeroExit
}

func (e *FetchError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Kind, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrMalformedReading is returned when provider output is not a usable reading
var ErrMalformedReading = errors.New("malformed location reading")

// Reading is one parsed provider result
type Reading struct {
	Longitude float64
	Latitude  float64
	// Raw holds every field the provider emitted, including the coordinates
	Raw map[string]interface{}
}
