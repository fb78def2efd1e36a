package domain

import "context"

// GeocodeResult contains the best match returned by the geocoding service.
type GeocodeResult struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// LookupStatus tags the outcome of a single lookup.
type LookupStatus int

const (
	LookupResolved LookupStatus = iota
	LookupNotFound
	LookupTransportError
)

func (s LookupStatus) String() string {
	switch s {
	case LookupResolved:
		return "resolved"
	case LookupNotFound:
		return "not_found"
	case LookupTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// LookupResult is the tagged result of Geocoder.Lookup. Result is only
// meaningful when Status is LookupResolved; Err is only set for transport errors.
type LookupResult struct {
	Status LookupStatus
	Result GeocodeResult
	Err    error
}

// Resolved builds a successful lookup result.
func Resolved(r GeocodeResult) LookupResult {
	return LookupResult{Status: LookupResolved, Result: r}
}

// NotFound builds a lookup result for a city the service does not know.
func NotFound() LookupResult {
	return LookupResult{Status: LookupNotFound}
}

// TransportFailure builds a lookup result for a request that got no answer.
func TransportFailure(err error) LookupResult {
	return LookupResult{Status: LookupTransportError, Err: err}
}

// OK reports whether the lookup resolved.
func (l LookupResult) OK() bool {
	return l.Status == LookupResolved
}

// Reason maps an unsuccessful lookup to the reason stored on a FailedLookup.
func (l LookupResult) Reason() FailureReason {
	if l.Status == LookupTransportError {
		return ReasonTransportError
	}
	return ReasonNotFound
}

// Geocoder resolves a city name to a single best municipality match.
type Geocoder interface {
	// Lookup issues one request for city. It never fails with a Go error:
	// every problem is folded into the returned status.
	Lookup(ctx context.Context, city string) LookupResult
}
