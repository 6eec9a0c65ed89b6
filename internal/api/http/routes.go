package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// now is the clock used to reject historical ranges starting in the future.
var now = time.Now

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/geocode", func(c *fiber.Ctx) error {
		q, err := parsePlaceQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		coords, err := service.Resolve(c.UserContext(), q.Place)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"place":       q.Place,
			"coordinates": coords,
		})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parsePlaceQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx := c.UserContext()
		current, err := service.FetchCurrent(ctx, q.Place)
		if err != nil {
			return err
		}

		// Air quality is supplementary: its failure is shown as unavailable.
		var air *weather.AirQuality
		if aq, err := service.FetchAirQuality(ctx, current.Coordinates.Lat, current.Coordinates.Lon); err == nil {
			air = &aq
		}

		return c.JSON(fiber.Map{
			"current":    current,
			"airQuality": air,
		})
	})

	v1.Get("/air-quality", func(c *fiber.Ctx) error {
		q, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		aq, err := service.FetchAirQuality(c.UserContext(), q.Lat, q.Lon)
		if err != nil {
			return err
		}
		return c.JSON(aq)
	})

	v1.Get("/weather/additional", func(c *fiber.Ctx) error {
		q, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		extra, err := service.FetchAdditional(c.UserContext(), q.Lat, q.Lon)
		if err != nil {
			return err
		}
		return c.JSON(extra)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		days, err := service.FetchHistorical(c.UserContext(), req.Place, req.Start, req.End)
		if err != nil {
			return err
		}

		if strings.EqualFold(c.Query("format"), "csv") {
			return writeHistoryCSV(c, days)
		}

		return c.JSON(fiber.Map{
			"place":       req.Place,
			"start":       req.Start.Format(weather.DateLayout),
			"end":         req.End.Format(weather.DateLayout),
			"days":        days,
			"summary":     weather.SummarizeHistory(days),
			"correlation": weather.CorrelateHistory(days),
		})
	})

	v1.Get("/weather/compare", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		others := strings.Split(c.Query("with"), ",")
		cmp, err := service.Compare(c.UserContext(), req.Place, others, req.Start, req.End)
		if err != nil {
			return err
		}
		return c.JSON(cmp)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		q, err := parsePlaceQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		entries, err := service.FetchForecast(c.UserContext(), q.Place)
		if err != nil {
			return err
		}

		if c.QueryBool("daily") {
			entries = weather.DailyForecast(entries)
		}
		return c.JSON(fiber.Map{
			"place":   q.Place,
			"entries": entries,
		})
	})

	v1.Post("/cache/clear", func(c *fiber.Ctx) error {
		service.ClearCache()
		return c.JSON(fiber.Map{"cleared": true})
	})
}

// placeQuery holds the free-text place parameter.
type placeQuery struct {
	Place string `validate:"required"`
}

func parsePlaceQuery(c *fiber.Ctx) (placeQuery, error) {
	q := placeQuery{Place: c.Query("place")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// coordsQuery holds latitude/longitude query parameters.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordsQuery(c *fiber.Ctx) (coordsQuery, error) {
	var q coordsQuery

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return q, errors.New("invalid lat")
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return q, errors.New("invalid lon")
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the history and compare endpoints.
type historyQuery struct {
	Place string    `validate:"required"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	q, err := parsePlaceQuery(c)
	if err != nil {
		return err
	}
	h.Place = q.Place

	startStr := c.Query("start")
	endStr := c.Query("end")
	if startStr == "" || endStr == "" {
		return errors.New("start and end query parameters are required")
	}

	if h.Start, err = parseDate(startStr); err != nil {
		return err
	}
	if h.End, err = parseDate(endStr); err != nil {
		return err
	}

	if err := validate.Struct(h); err != nil {
		return errors.New("start date must be before end date")
	}

	t := now().UTC()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if h.Start.After(today) {
		return errors.New("start date cannot be in the future")
	}
	return nil
}

// parseDate accepts a calendar date (YYYY-MM-DD).
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(weather.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD")
	}
	return d, nil
}
