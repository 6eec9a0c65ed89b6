package providers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-dashboard/internal/obs"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// geocoder.ApiKey is package-global; guard writes to it.
var googleKeyMu sync.Mutex

// GoogleGeocoder resolves places through the Google Geocoding API.
// It is an alternative to OpenWeather direct geocoding.
type GoogleGeocoder struct {
	apiKey string
	// timeout bounds each lookup; the library's own HTTP client has none.
	timeout time.Duration
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string, timeout time.Duration) *GoogleGeocoder {
	googleKeyMu.Lock()
	geocoder.ApiKey = apiKey
	googleKeyMu.Unlock()
	return &GoogleGeocoder{
		apiKey:  apiKey,
		timeout: timeout,
		lookup:  geocoder.Geocoding,
	}
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, place string) (_ weather.Coordinates, err error) {
	const op = "geocode"
	defer obs.Time(ctx, "google."+op)(&err)

	if strings.TrimSpace(place) == "" {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, errEmptyResult)
	}
	if g.apiKey == "" {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, errMissingAPIKey)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{City: place})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0,
			weather.NewFetchError(weather.KindNetwork, op, 0, ctx.Err()))
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
