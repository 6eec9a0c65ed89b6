package weather

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date format used for historical ranges.
const DateLayout = "2006-01-02"

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinates is a geographic point in degrees. Only a Geocoder produces them.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// CurrentConditions is the normalized current weather for a place.
type CurrentConditions struct {
	Place       string      `json:"place"`
	Timestamp   time.Time   `json:"timestamp"` // always UTC
	Temperature float64     `json:"temperatureC"`
	Humidity    float64     `json:"humidityPercent"`
	WindSpeed   float64     `json:"windSpeedMs"`
	Pressure    float64     `json:"pressureHpa"`
	Visibility  *float64    `json:"visibilityM"` // nil when the upstream omits it
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Condition   Condition   `json:"condition"`
	Coordinates Coordinates `json:"coordinates"`
}

// AirQuality is the representative air-quality reading for a coordinate pair.
type AirQuality struct {
	Index       int                `json:"aqi"`
	Label       string             `json:"label"`
	Components  map[string]float64 `json:"components,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Coordinates Coordinates        `json:"coordinates"`
}

var aqiLabels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AQILabel returns the qualitative name of an index on the 1-5 scale.
func AQILabel(index int) string {
	if l, ok := aqiLabels[index]; ok {
		return l
	}
	return "Unknown"
}

// HistoricalDay is one daily observation. Nil fields were not reported upstream.
type HistoricalDay struct {
	Date          time.Time `json:"date"`
	Temperature   *float64  `json:"temperatureC"`
	TempMax       *float64  `json:"tempMaxC,omitempty"`
	TempMin       *float64  `json:"tempMinC,omitempty"`
	Humidity      *float64  `json:"humidityPercent"`
	Precipitation *float64  `json:"precipMm"`
	Conditions    string    `json:"conditions,omitempty"`
	Condition     Condition `json:"condition"`
}

// ForecastEntry is one 3-hour forecast interval.
type ForecastEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperatureC"`
	TempMin     float64   `json:"tempMinC"`
	TempMax     float64   `json:"tempMaxC"`
	Humidity    float64   `json:"humidityPercent"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Condition   Condition `json:"condition"`
}

// IconURL returns the OpenWeather image URL for the entry's icon code.
func (f ForecastEntry) IconURL() string {
	if f.Icon == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + f.Icon + "@2x.png"
}

// intervalsPerDay is the number of 3-hour forecast entries in a day.
const intervalsPerDay = 8

// DailyForecast picks one entry per day from a 3-hour forecast, starting
// with the first entry.
func DailyForecast(entries []ForecastEntry) []ForecastEntry {
	daily := make([]ForecastEntry, 0, (len(entries)+intervalsPerDay-1)/intervalsPerDay)
	for i := 0; i < len(entries); i += intervalsPerDay {
		daily = append(daily, entries[i])
	}
	return daily
}

// HourlyEntry is one hour of the additional (One Call) data.
type HourlyEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperatureC"`
	Humidity    float64   `json:"humidityPercent"`
	UVI         *float64  `json:"uvi"`
	Description string    `json:"description"`
}

// AdditionalWeather carries the current UV index and the hourly outlook.
type AdditionalWeather struct {
	UVI    *float64      `json:"uvi"`
	Hourly []HourlyEntry `json:"hourly"`
}
