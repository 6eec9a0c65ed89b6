package weather

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/i474232898/weather-dashboard/internal/cache"
)

const (
	tagCurrent    cache.Tag = "current"
	tagAirQuality cache.Tag = "air_quality"
	tagHistory    cache.Tag = "history"
	tagForecast   cache.Tag = "forecast"
	tagAdditional cache.Tag = "additional"
)

// TTLs holds the per-function expiry of memoized results.
type TTLs struct {
	Current    time.Duration
	AirQuality time.Duration
	History    time.Duration
	Forecast   time.Duration
	Additional time.Duration
}

// DefaultTTLs returns the dashboard's default expiries.
func DefaultTTLs() TTLs {
	return TTLs{
		Current:    10 * time.Minute,
		AirQuality: 30 * time.Minute,
		History:    time.Hour,
		Forecast:   30 * time.Minute,
		Additional: 30 * time.Minute,
	}
}

// Service is the retrieval layer: it geocodes places, calls the upstream
// providers and memoizes their normalized results.
type Service struct {
	geocoder   Geocoder
	conditions ConditionsProvider
	history    HistoryProvider
	cache      *cache.Cache
	ttl        TTLs
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, conditions ConditionsProvider, history HistoryProvider, c *cache.Cache, ttl TTLs) *Service {
	return &Service{
		geocoder:   geocoder,
		conditions: conditions,
		history:    history,
		cache:      c,
		ttl:        ttl,
	}
}

// Resolve geocodes a place. It is never cached: every logical request
// re-derives its coordinates.
func (s *Service) Resolve(ctx context.Context, place string) (Coordinates, error) {
	coords, err := s.geocoder.Resolve(ctx, place)
	if err != nil {
		return Coordinates{}, notFound("geocode", err)
	}
	return coords, nil
}

// FetchCurrent resolves place and returns its current conditions.
func (s *Service) FetchCurrent(ctx context.Context, place string) (CurrentConditions, error) {
	return cache.Memoize(ctx, s.cache, cache.NewKey(tagCurrent, place), s.ttl.Current, func() (CurrentConditions, error) {
		coords, err := s.Resolve(ctx, place)
		if err != nil {
			return CurrentConditions{}, err
		}

		cur, err := s.conditions.Current(ctx, coords)
		if err != nil {
			return CurrentConditions{}, asFetchError(KindFailure, "current", err)
		}
		cur.Coordinates = coords
		return cur, nil
	})
}

// RefreshCurrent drops any memoized current conditions for place and fetches them again.
func (s *Service) RefreshCurrent(ctx context.Context, place string) error {
	s.cache.Invalidate(cache.NewKey(tagCurrent, place))
	_, err := s.FetchCurrent(ctx, place)
	return err
}

// FetchAirQuality returns the representative air-quality index at the given coordinates.
func (s *Service) FetchAirQuality(ctx context.Context, lat, lon float64) (AirQuality, error) {
	return cache.Memoize(ctx, s.cache, cache.NewKey(tagAirQuality, lat, lon), s.ttl.AirQuality, func() (AirQuality, error) {
		coords := Coordinates{Lat: lat, Lon: lon}
		aq, err := s.conditions.AirQuality(ctx, coords)
		if err != nil {
			return AirQuality{}, asFetchError(KindFailure, "air_quality", err)
		}
		aq.Coordinates = coords
		return aq, nil
	})
}

// FetchHistorical returns the daily records for place over [start, end], in date order.
// Days the upstream reports outside the range are dropped.
// Range validation is the caller's responsibility.
func (s *Service) FetchHistorical(ctx context.Context, place string, start, end time.Time) ([]HistoricalDay, error) {
	key := cache.NewKey(tagHistory, place, start.Format(DateLayout), end.Format(DateLayout))
	return cache.Memoize(ctx, s.cache, key, s.ttl.History, func() ([]HistoricalDay, error) {
		days, err := s.history.History(ctx, place, start, end)
		if err != nil {
			return nil, asFetchError(KindFailure, "history", err)
		}
		days = withinRange(days, start, end)
		sort.SliceStable(days, func(i, j int) bool {
			return days[i].Date.Before(days[j].Date)
		})
		return days, nil
	})
}

// withinRange keeps the days whose calendar date falls in [start, end].
func withinRange(days []HistoricalDay, start, end time.Time) []HistoricalDay {
	from, to := start.Format(DateLayout), end.Format(DateLayout)
	kept := days[:0]
	for _, d := range days {
		if day := d.Date.Format(DateLayout); day >= from && day <= to {
			kept = append(kept, d)
		}
	}
	return kept
}

// FetchForecast resolves place and returns the full 3-hour forecast.
func (s *Service) FetchForecast(ctx context.Context, place string) ([]ForecastEntry, error) {
	return cache.Memoize(ctx, s.cache, cache.NewKey(tagForecast, place), s.ttl.Forecast, func() ([]ForecastEntry, error) {
		coords, err := s.Resolve(ctx, place)
		if err != nil {
			return nil, err
		}

		entries, err := s.conditions.Forecast(ctx, coords)
		if err != nil {
			return nil, asFetchError(KindFailure, "forecast", err)
		}
		return entries, nil
	})
}

// FetchAdditional returns the UV index and hourly outlook at the given coordinates.
func (s *Service) FetchAdditional(ctx context.Context, lat, lon float64) (AdditionalWeather, error) {
	return cache.Memoize(ctx, s.cache, cache.NewKey(tagAdditional, lat, lon), s.ttl.Additional, func() (AdditionalWeather, error) {
		extra, err := s.conditions.Additional(ctx, Coordinates{Lat: lat, Lon: lon})
		if err != nil {
			return AdditionalWeather{}, asFetchError(KindFailure, "additional", err)
		}
		return extra, nil
	})
}

// ClearCache drops every memoized result.
func (s *Service) ClearCache() {
	log.Println("INFO: clearing all memoized weather results")
	s.cache.ClearAll()
}
