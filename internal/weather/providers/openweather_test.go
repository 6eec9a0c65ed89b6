package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newOpenWeatherServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	mux := http.NewServeMux()
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			if r.URL.Query().Get("appid") != "test-key" {
				http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestResolveReturnsFirstMatch(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/geo/1.0/direct": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
			}
			if r.URL.Query().Get("q") != "Bengaluru" {
				t.Errorf("expected q=Bengaluru, got %q", r.URL.Query().Get("q"))
			}
			writeJSON(w, `[{"name":"Bengaluru","lat":12.9767936,"lon":77.590082,"country":"IN"},{"name":"Other","lat":1,"lon":2}]`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	coords, err := p.Resolve(context.Background(), "Bengaluru")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coords.Lat != 12.9767936 || coords.Lon != 77.590082 {
		t.Fatalf("unexpected coordinates %+v", coords)
	}
}

func TestResolveFailuresAreNotFound(t *testing.T) {
	tests := []struct {
		name    string
		place   string
		handler http.HandlerFunc
		wantHit bool
	}{
		{
			name:  "empty result list",
			place: "Atlantis",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `[]`)
			},
			wantHit: true,
		},
		{
			name:  "unparseable body",
			place: "Atlantis",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `not json`)
			},
			wantHit: true,
		},
		{
			name:  "upstream error status",
			place: "Atlantis",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadRequest)
			},
			wantHit: true,
		},
		{
			name:  "empty place",
			place: "",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `[{"lat":1,"lon":1}]`)
			},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newOpenWeatherServer(t, map[string]http.HandlerFunc{"/geo/1.0/direct": tt.handler})
			p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")

			_, err := p.Resolve(context.Background(), tt.place)
			if !errors.Is(err, weather.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if got := atomic.LoadInt32(hits) > 0; got != tt.wantHit {
				t.Fatalf("expected upstream hit=%v, got %v", tt.wantHit, got)
			}
		})
	}
}

func TestResolveTransportErrorIsNotFoundWithNetworkCause(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, base, "test-key")
	_, err := p.Resolve(context.Background(), "Bengaluru")
	if !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, weather.ErrNetwork) {
		t.Fatalf("expected network cause in chain, got %v", err)
	}
}

func TestCurrentUsesGivenCoordinatesAndMetricUnits(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("lat") != "12.97" || q.Get("lon") != "77.59" {
				t.Errorf("unexpected coordinates lat=%s lon=%s", q.Get("lat"), q.Get("lon"))
			}
			if q.Get("units") != "metric" {
				t.Errorf("expected metric units, got %q", q.Get("units"))
			}
			writeJSON(w, `{"dt":1700000000,"name":"Bengaluru","main":{"temp":24.5,"humidity":61,"pressure":1012},
				"wind":{"speed":3.1},"visibility":6000,"weather":[{"main":"Clouds","description":"broken clouds","icon":"04d"}]}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	cur, err := p.Current(context.Background(), weather.Coordinates{Lat: 12.97, Lon: 77.59})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Temperature != 24.5 || cur.Humidity != 61 || cur.WindSpeed != 3.1 || cur.Pressure != 1012 {
		t.Fatalf("unexpected conditions %+v", cur)
	}
	if cur.Visibility == nil || *cur.Visibility != 6000 {
		t.Fatalf("expected visibility 6000, got %v", cur.Visibility)
	}
	if cur.Condition != weather.ConditionCloudy {
		t.Fatalf("expected cloudy, got %s", cur.Condition)
	}
	if !cur.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected timestamp %v", cur.Timestamp)
	}
}

func TestCurrentMissingVisibilityIsUnavailable(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"dt":1700000000,"main":{"temp":10,"humidity":50,"pressure":1000},"wind":{"speed":1}}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	cur, err := p.Current(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Visibility != nil {
		t.Fatalf("expected nil visibility, got %v", *cur.Visibility)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, weather.ErrRateLimited},
		{http.StatusUnauthorized, weather.ErrFailure},
		{http.StatusNotFound, weather.ErrFailure},
		{http.StatusBadGateway, weather.ErrFailure},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
				"/data/2.5/forecast": func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				},
			})
			p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")

			_, err := p.Forecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var fe *weather.FetchError
			if !errors.As(err, &fe) || fe.Status != tt.status {
				t.Fatalf("expected status %d recorded, got %v", tt.status, err)
			}
		})
	}
}

func TestAirQualityReturnsFirstEntry(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/air_pollution": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"list":[{"dt":1700000000,"main":{"aqi":3},"components":{"pm2_5":41.2,"no2":12}},{"dt":1700003600,"main":{"aqi":5}}]}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	aq, err := p.AirQuality(context.Background(), weather.Coordinates{Lat: 12.97, Lon: 77.59})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aq.Index != 3 || aq.Label != "Moderate" {
		t.Fatalf("unexpected air quality %+v", aq)
	}
	if aq.Components["pm2_5"] != 41.2 {
		t.Fatalf("expected pm2_5 component, got %v", aq.Components)
	}
}

func TestAirQualityEmptyListIsFailure(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/air_pollution": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"list":[]}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	_, err := p.AirQuality(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if !errors.Is(err, weather.ErrFailure) {
		t.Fatalf("expected ErrFailure, got %v", err)
	}
}

func TestAirQualityTimeoutIsNetworkError(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/air_pollution": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			writeJSON(w, `{"list":[{"main":{"aqi":1}}]}`)
		},
	})

	p := NewOpenWeatherProvider(&http.Client{Timeout: 50 * time.Millisecond}, srv.URL, "test-key")
	_, err := p.AirQuality(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if !errors.Is(err, weather.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestForecastReturnsAllIntervals(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/forecast": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"list":[
				{"dt":1700000000,"main":{"temp":20,"temp_min":19,"temp_max":21,"humidity":70},"weather":[{"main":"Rain","description":"light rain","icon":"10d"}]},
				{"dt":1700010800,"main":{"temp":22,"temp_min":21,"temp_max":23,"humidity":65},"weather":[{"main":"Clear","description":"clear sky","icon":"01d"}]},
				{"dt":1700021600,"main":{"temp":18,"temp_min":17,"temp_max":19,"humidity":80},"weather":[]}
			]}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	entries, err := p.Forecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Condition != weather.ConditionRain || entries[0].Icon != "10d" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[2].Condition != weather.ConditionUnknown {
		t.Fatalf("expected unknown condition without weather items, got %s", entries[2].Condition)
	}
}

func TestAdditionalParsesUVAndHourly(t *testing.T) {
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/3.0/onecall": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("exclude") != "minutely,daily,alerts" {
				t.Errorf("unexpected exclude %q", r.URL.Query().Get("exclude"))
			}
			writeJSON(w, `{"current":{"uvi":7.5},"hourly":[{"dt":1700000000,"temp":25,"humidity":55,"uvi":6,"weather":[{"description":"haze"}]}]}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	extra, err := p.Additional(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extra.UVI == nil || *extra.UVI != 7.5 {
		t.Fatalf("expected uvi 7.5, got %v", extra.UVI)
	}
	if len(extra.Hourly) != 1 || extra.Hourly[0].Description != "haze" {
		t.Fatalf("unexpected hourly %+v", extra.Hourly)
	}
}

func TestMissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "http://127.0.0.1:1", "")

	if _, err := p.Resolve(context.Background(), "Pune"); !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Current(context.Background(), weather.Coordinates{}); !errors.Is(err, weather.ErrFailure) {
		t.Fatalf("expected ErrFailure, got %v", err)
	}
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	srv, hits := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/weather": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	for i := 0; i < 7; i++ {
		_, err := p.Current(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
		if !errors.Is(err, weather.ErrFailure) {
			t.Fatalf("call %d: expected ErrFailure, got %v", i, err)
		}
	}

	if got := atomic.LoadInt32(hits); got != 5 {
		t.Fatalf("expected breaker to stop calls after 5 failures, got %d upstream hits", got)
	}
}

func TestBreakersAreScopedPerEndpoint(t *testing.T) {
	var geoHits int32
	srv, _ := newOpenWeatherServer(t, map[string]http.HandlerFunc{
		"/data/2.5/forecast": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"/geo/1.0/direct": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&geoHits, 1)
			writeJSON(w, `[{"name":"Bengaluru","lat":12.9767936,"lon":77.590082}]`)
		},
		"/data/2.5/weather": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"dt":1700000000,"main":{"temp":24.5,"humidity":61}}`)
		},
	})

	p := NewOpenWeatherProvider(srv.Client(), srv.URL, "test-key")
	for i := 0; i < 6; i++ {
		if _, err := p.Forecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2}); err == nil {
			t.Fatalf("call %d: expected forecast error", i)
		}
	}

	coords, err := p.Resolve(context.Background(), "Bengaluru")
	if err != nil {
		t.Fatalf("geocoding must not share the forecast breaker: %v", err)
	}
	if got := atomic.LoadInt32(&geoHits); got != 1 {
		t.Fatalf("expected 1 geocoding request, got %d", got)
	}
	if _, err := p.Current(context.Background(), coords); err != nil {
		t.Fatalf("current must not share the forecast breaker: %v", err)
	}
}

func TestOpenCircuitKeepsNetworkKind(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, baseURL, "test-key")
	for i := 0; i < 6; i++ {
		_, err := p.Current(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
		if !errors.Is(err, weather.ErrNetwork) {
			t.Fatalf("call %d: expected ErrNetwork, got %v", i, err)
		}
		if errors.Is(err, weather.ErrFailure) {
			t.Fatalf("call %d: network error reported as generic failure: %v", i, err)
		}
	}

	_, err := p.Current(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	if !errors.Is(err, weather.ErrCircuitOpen) {
		t.Fatalf("expected fast-fail from open circuit, got %v", err)
	}
	var fe *weather.FetchError
	if !errors.As(err, &fe) || !fe.Transient() {
		t.Fatalf("expected transient FetchError, got %v", err)
	}
}
