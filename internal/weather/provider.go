package weather

import (
	"context"
	"time"
)

// Geocoder resolves a free-text place name to coordinates.
// Implementations return a *FetchError of KindNotFound on any failure.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (Coordinates, error)
}

// ConditionsProvider abstracts a coordinate-addressed weather source (e.g. OpenWeatherMap).
type ConditionsProvider interface {
	Current(ctx context.Context, at Coordinates) (CurrentConditions, error)
	AirQuality(ctx context.Context, at Coordinates) (AirQuality, error)
	Forecast(ctx context.Context, at Coordinates) ([]ForecastEntry, error)
	Additional(ctx context.Context, at Coordinates) (AdditionalWeather, error)
}

// HistoryProvider abstracts a daily-history source addressed by place name
// (e.g. Visual Crossing). The range is inclusive.
type HistoryProvider interface {
	History(ctx context.Context, place string, start, end time.Time) ([]HistoricalDay, error)
}
