package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap API host.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider talks to OpenWeatherMap. It implements both
// weather.Geocoder (direct geocoding) and weather.ConditionsProvider.
type OpenWeatherProvider struct {
	apiKey  string
	baseURL string
	*upstream
}

func NewOpenWeatherProvider(client *http.Client, baseURL, apiKey string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		upstream: newUpstream("openweather", client),
	}
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Resolve returns the best-ranked match for place. Every failure, including
// transport errors and unparseable bodies, is reported as KindNotFound with
// the cause kept in the chain.
func (p *OpenWeatherProvider) Resolve(ctx context.Context, place string) (weather.Coordinates, error) {
	const op = "geocode"

	if strings.TrimSpace(place) == "" {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, errEmptyResult)
	}
	if p.apiKey == "" {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("q", place)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var matches []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
	}
	if err := p.getJSON(ctx, op, p.baseURL+"/geo/1.0/direct", values, &matches); err != nil {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, err)
	}
	if len(matches) == 0 {
		return weather.Coordinates{}, weather.NewFetchError(weather.KindNotFound, op, 0, errEmptyResult)
	}

	return weather.Coordinates{Lat: matches[0].Lat, Lon: matches[0].Lon}, nil
}

func (p *OpenWeatherProvider) coordValues(at weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", formatCoord(at.Lat))
	values.Set("lon", formatCoord(at.Lon))
	values.Set("appid", p.apiKey)
	return values
}

// Current fetches current conditions in metric units.
func (p *OpenWeatherProvider) Current(ctx context.Context, at weather.Coordinates) (weather.CurrentConditions, error) {
	const op = "current"
	if p.apiKey == "" {
		return weather.CurrentConditions{}, weather.NewFetchError(weather.KindFailure, op, 0, errMissingAPIKey)
	}

	values := p.coordValues(at)
	values.Set("units", "metric")

	var payload struct {
		Dt   int64  `json:"dt"`
		Name string `json:"name"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Visibility *float64       `json:"visibility"`
		Weather    []owmCondition `json:"weather"`
	}
	if err := p.getJSON(ctx, op, p.baseURL+"/data/2.5/weather", values, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	cur := weather.CurrentConditions{
		Place:       payload.Name,
		Timestamp:   ts,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Pressure:    payload.Main.Pressure,
		Visibility:  payload.Visibility,
		Condition:   weather.ConditionUnknown,
	}
	if len(payload.Weather) > 0 {
		cur.Description = payload.Weather[0].Description
		cur.Icon = payload.Weather[0].Icon
		cur.Condition = mapOpenWeatherCondition(payload.Weather[0].Main)
	}
	return cur, nil
}

// AirQuality fetches the air-pollution list and returns its first entry.
func (p *OpenWeatherProvider) AirQuality(ctx context.Context, at weather.Coordinates) (weather.AirQuality, error) {
	const op = "air_quality"
	if p.apiKey == "" {
		return weather.AirQuality{}, weather.NewFetchError(weather.KindFailure, op, 0, errMissingAPIKey)
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
		} `json:"list"`
	}
	if err := p.getJSON(ctx, op, p.baseURL+"/data/2.5/air_pollution", p.coordValues(at), &payload); err != nil {
		return weather.AirQuality{}, err
	}
	if len(payload.List) == 0 {
		return weather.AirQuality{}, weather.NewFetchError(weather.KindFailure, op, 0, errEmptyResult)
	}

	first := payload.List[0]
	return weather.AirQuality{
		Index:       first.Main.AQI,
		Label:       weather.AQILabel(first.Main.AQI),
		Components:  first.Components,
		Timestamp:   time.Unix(first.Dt, 0).UTC(),
		Coordinates: at,
	}, nil
}

// Forecast fetches the 3-hour interval forecast (about 5 days) in metric units.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, at weather.Coordinates) ([]weather.ForecastEntry, error) {
	const op = "forecast"
	if p.apiKey == "" {
		return nil, weather.NewFetchError(weather.KindFailure, op, 0, errMissingAPIKey)
	}

	values := p.coordValues(at)
	values.Set("units", "metric")

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     float64 `json:"temp"`
				TempMin  float64 `json:"temp_min"`
				TempMax  float64 `json:"temp_max"`
				Humidity float64 `json:"humidity"`
			} `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
	}
	if err := p.getJSON(ctx, op, p.baseURL+"/data/2.5/forecast", values, &payload); err != nil {
		return nil, err
	}

	entries := make([]weather.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		e := weather.ForecastEntry{
			Timestamp:   time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			Condition:   weather.ConditionUnknown,
		}
		if len(item.Weather) > 0 {
			e.Description = item.Weather[0].Description
			e.Icon = item.Weather[0].Icon
			e.Condition = mapOpenWeatherCondition(item.Weather[0].Main)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Additional fetches the current UV index and hourly outlook from One Call 3.0.
func (p *OpenWeatherProvider) Additional(ctx context.Context, at weather.Coordinates) (weather.AdditionalWeather, error) {
	const op = "additional"
	if p.apiKey == "" {
		return weather.AdditionalWeather{}, weather.NewFetchError(weather.KindFailure, op, 0, errMissingAPIKey)
	}

	values := p.coordValues(at)
	values.Set("exclude", "minutely,daily,alerts")
	values.Set("units", "metric")

	var payload struct {
		Current struct {
			UVI *float64 `json:"uvi"`
		} `json:"current"`
		Hourly []struct {
			Dt       int64          `json:"dt"`
			Temp     float64        `json:"temp"`
			Humidity float64        `json:"humidity"`
			UVI      *float64       `json:"uvi"`
			Weather  []owmCondition `json:"weather"`
		} `json:"hourly"`
	}
	if err := p.getJSON(ctx, op, p.baseURL+"/data/3.0/onecall", values, &payload); err != nil {
		return weather.AdditionalWeather{}, err
	}

	extra := weather.AdditionalWeather{
		UVI:    payload.Current.UVI,
		Hourly: make([]weather.HourlyEntry, 0, len(payload.Hourly)),
	}
	for _, h := range payload.Hourly {
		entry := weather.HourlyEntry{
			Timestamp:   time.Unix(h.Dt, 0).UTC(),
			Temperature: h.Temp,
			Humidity:    h.Humidity,
			UVI:         h.UVI,
		}
		if len(h.Weather) > 0 {
			entry.Description = h.Weather[0].Description
		}
		extra.Hourly = append(extra.Hourly, entry)
	}
	return extra, nil
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
