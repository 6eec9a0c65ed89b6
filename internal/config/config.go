package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	GeocoderOpenWeather = "openweather"
	GeocoderGoogle      = "google"
)

type AppConfig struct {
	OpenWeatherAPIKey    string
	VisualCrossingAPIKey string
	GoogleGeocodingKey   string

	// Upstream hosts; overridable to point at mocks.
	OpenWeatherBaseURL    string
	VisualCrossingBaseURL string

	// Geocoder selects the place resolver: "openweather" or "google".
	Geocoder string

	// HTTPTimeout applies to every upstream call.
	HTTPTimeout time.Duration

	// Expiry of memoized results per fetcher.
	TTLs weather.TTLs

	// Places whose current conditions are pre-fetched every WarmInterval.
	WarmPlaces   []string
	WarmInterval time.Duration

	Port string
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.VisualCrossingAPIKey = os.Getenv("VISUALCROSSING_API_KEY")
	cfg.GoogleGeocodingKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.VisualCrossingBaseURL = os.Getenv("VISUALCROSSING_BASE_URL")

	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", GeocoderOpenWeather))
	if cfg.Geocoder != GeocoderOpenWeather && cfg.Geocoder != GeocoderGoogle {
		return nil, fmt.Errorf("invalid GEOCODER %q: must be %q or %q", cfg.Geocoder, GeocoderOpenWeather, GeocoderGoogle)
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	defaults := weather.DefaultTTLs()
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CURRENT_TTL", defaults.Current, &cfg.TTLs.Current},
		{"AIR_QUALITY_TTL", defaults.AirQuality, &cfg.TTLs.AirQuality},
		{"HISTORY_TTL", defaults.History, &cfg.TTLs.History},
		{"FORECAST_TTL", defaults.Forecast, &cfg.TTLs.Forecast},
		{"ADDITIONAL_TTL", defaults.Additional, &cfg.TTLs.Additional},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def.String()); err != nil {
			return nil, err
		}
	}

	cfg.WarmPlaces = splitList(os.Getenv("WARM_PLACES"))
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.OpenWeatherAPIKey == "" {
		log.Println("WARN: OPENWEATHER_API_KEY is not set; current, forecast and air-quality fetches will fail")
	}
	if cfg.VisualCrossingAPIKey == "" {
		log.Println("WARN: VISUALCROSSING_API_KEY is not set; historical fetches will fail")
	}

	return cfg, nil
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
