package weather

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindFailure     Kind = "failure"
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network_error"
)

var (
	// ErrNotFound matches failures where a place did not resolve to coordinates.
	ErrNotFound = errors.New("place not found")
	// ErrFailure matches generic upstream failures (bad status, undecodable body).
	ErrFailure = errors.New("upstream fetch failed")
	// ErrRateLimited matches upstream quota exhaustion (HTTP 429).
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	// ErrNetwork matches transport-level failures: DNS, refused connections, timeouts.
	ErrNetwork = errors.New("network error")

	// ErrCircuitOpen is wrapped by failures rejected locally by an open circuit
	// breaker. They carry the kind of the failure that opened it.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrFailure
	}
}

// FetchError is the typed failure every fetcher returns instead of panicking.
// Use errors.Is with ErrNotFound, ErrFailure, ErrRateLimited or ErrNetwork.
type FetchError struct {
	Kind   Kind
	Op     string
	Status int // upstream HTTP status, 0 when no response was received
	Err    error
}

// NewFetchError builds a FetchError.
func NewFetchError(kind Kind, op string, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Op: op, Status: status, Err: err}
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind.sentinel())
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Transient reports whether the failure was produced without reaching the
// upstream. Transient failures are not memoized.
func (e *FetchError) Transient() bool {
	return errors.Is(e.Err, ErrCircuitOpen)
}

// Message is the user-facing text for the failure.
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindNotFound:
		return "City not found or API issue."
	case KindRateLimited:
		return "API rate limit exceeded. Please try again later."
	case KindNetwork:
		return "Network error. Please check your connection."
	default:
		return "Failed to fetch weather data."
	}
}

// KindOf reports the kind of the outermost FetchError in err's chain.
// Errors that are not FetchErrors are reported as KindFailure.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindFailure
}

// asFetchError wraps err as a FetchError of the given kind unless it already is one.
func asFetchError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return NewFetchError(kind, op, 0, err)
}

// notFound guarantees a geocoding error is reported as KindNotFound while
// keeping the original cause in the chain.
func notFound(op string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == KindNotFound {
		return err
	}
	return NewFetchError(KindNotFound, op, 0, err)
}
