package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/obs"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	errMissingAPIKey = errors.New("api key is not configured")
	errNoHTTPClient  = errors.New("http client not configured")
	errEmptyResult   = errors.New("empty result list")
)

// statusError is returned inside the circuit breaker for 5xx responses so
// they count towards tripping it.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// upstream bundles the HTTP client and the circuit breakers for one API host.
// Each endpoint (op) trips independently. Requests are attempted exactly once;
// there is no retry.
type upstream struct {
	name   string
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*breaker
}

// breaker remembers the kind of the failure that last counted against it so
// that fast-failed calls keep reporting it.
type breaker struct {
	circuit *gobreaker.CircuitBreaker

	mu       sync.Mutex
	lastKind weather.Kind
}

func (b *breaker) fail(kind weather.Kind) {
	b.mu.Lock()
	b.lastKind = kind
	b.mu.Unlock()
}

func (b *breaker) kind() weather.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastKind
}

func newUpstream(name string, client *http.Client) *upstream {
	return &upstream{
		name:     name,
		client:   client,
		breakers: make(map[string]*breaker),
	}
}

func (u *upstream) breakerFor(op string) *breaker {
	u.mu.Lock()
	defer u.mu.Unlock()

	if b, ok := u.breakers[op]; ok {
		return b
	}
	b := &breaker{
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        u.name + "." + op,
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		lastKind: weather.KindFailure,
	}
	u.breakers[op] = b
	return b
}

// getJSON performs a single GET against endpoint and decodes the JSON body
// into out. Failures are classified as:
//
//	transport error        -> KindNetwork
//	429                    -> KindRateLimited
//	other non-2xx, bad body -> KindFailure
//	open circuit           -> kind of the failure that tripped it
func (u *upstream) getJSON(ctx context.Context, op, endpoint string, values url.Values, out any) (err error) {
	defer obs.Time(ctx, u.name+"."+op)(&err)

	if u.client == nil {
		return weather.NewFetchError(weather.KindFailure, op, 0, errNoHTTPClient)
	}

	target := endpoint
	if len(values) > 0 {
		target = fmt.Sprintf("%s?%s", endpoint, values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return weather.NewFetchError(weather.KindFailure, op, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	b := u.breakerFor(op)
	result, err := b.circuit.Execute(func() (interface{}, error) {
		resp, execErr := u.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			return nil, &statusError{Code: resp.StatusCode, Body: readSnippet(resp.Body)}
		}
		return resp, nil
	})
	if err != nil {
		var se *statusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			return weather.NewFetchError(b.kind(), op, 0, fmt.Errorf("%w: %v", weather.ErrCircuitOpen, err))
		case errors.As(err, &se):
			b.fail(weather.KindFailure)
			return weather.NewFetchError(weather.KindFailure, op, se.Code, se)
		default:
			b.fail(weather.KindNetwork)
			return weather.NewFetchError(weather.KindNetwork, op, 0, redact(err))
		}
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return weather.NewFetchError(weather.KindFailure, op, 0, fmt.Errorf("unexpected result type from circuit breaker"))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return weather.NewFetchError(weather.KindRateLimited, op, resp.StatusCode, bodyError(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return weather.NewFetchError(weather.KindFailure, op, resp.StatusCode, bodyError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return weather.NewFetchError(weather.KindFailure, op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// bodyError returns the start of an error response body as an error, or nil if empty.
func bodyError(r io.Reader) error {
	if s := readSnippet(r); s != "" {
		return errors.New(s)
	}
	return nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}

// redact strips the query string (which carries the api key) from URL errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if parsed, perr := url.Parse(ue.URL); perr == nil {
			parsed.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: parsed.String(), Err: ue.Err}
		}
	}
	return err
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
