package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultVisualCrossingBaseURL is the Visual Crossing timeline endpoint.
const DefaultVisualCrossingBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// VisualCrossingProvider implements weather.HistoryProvider. The timeline API
// is addressed by place name, so no geocoding step is needed.
type VisualCrossingProvider struct {
	apiKey  string
	baseURL string
	*upstream
}

func NewVisualCrossingProvider(client *http.Client, baseURL, apiKey string) *VisualCrossingProvider {
	if baseURL == "" {
		baseURL = DefaultVisualCrossingBaseURL
	}
	return &VisualCrossingProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		upstream: newUpstream("visualcrossing", client),
	}
}

// History returns the daily records for place over the inclusive range, in date order.
func (p *VisualCrossingProvider) History(ctx context.Context, place string, start, end time.Time) ([]weather.HistoricalDay, error) {
	const op = "history"
	if p.apiKey == "" {
		return nil, weather.NewFetchError(weather.KindFailure, op, 0, errMissingAPIKey)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		p.baseURL,
		url.PathEscape(place),
		start.Format(weather.DateLayout),
		end.Format(weather.DateLayout),
	)

	values := url.Values{}
	values.Set("unitGroup", "metric")
	values.Set("key", p.apiKey)
	values.Set("contentType", "json")

	var payload struct {
		ResolvedAddress string `json:"resolvedAddress"`
		Days            []struct {
			Datetime   string   `json:"datetime"`
			Temp       *float64 `json:"temp"`
			TempMax    *float64 `json:"tempmax"`
			TempMin    *float64 `json:"tempmin"`
			Humidity   *float64 `json:"humidity"`
			Precip     *float64 `json:"precip"`
			Conditions string   `json:"conditions"`
		} `json:"days"`
	}
	if err := p.getJSON(ctx, op, endpoint, values, &payload); err != nil {
		return nil, err
	}

	days := make([]weather.HistoricalDay, 0, len(payload.Days))
	for _, d := range payload.Days {
		date, err := time.Parse(weather.DateLayout, d.Datetime)
		if err != nil {
			return nil, weather.NewFetchError(weather.KindFailure, op, 0, fmt.Errorf("parse day %q: %w", d.Datetime, err))
		}
		days = append(days, weather.HistoricalDay{
			Date:          date,
			Temperature:   d.Temp,
			TempMax:       d.TempMax,
			TempMin:       d.TempMin,
			Humidity:      d.Humidity,
			Precipitation: d.Precip,
			Conditions:    d.Conditions,
			Condition:     mapVisualCrossingCondition(d.Conditions),
		})
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// mapVisualCrossingCondition maps free-text conditions such as
// "Rain, Partially cloudy" to a Condition, most severe first.
func mapVisualCrossingCondition(text string) weather.Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return weather.ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(t, "snow", "sleet", "ice", "blizzard"):
		return weather.ConditionSnow
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(t, "fog", "mist", "haze", "smoke"):
		return weather.ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(t, "clear", "sunny"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
