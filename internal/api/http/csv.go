package httpapi

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var historyCSVHeader = []string{"Date", "Temperature (°C)", "Humidity (%)", "Precipitation (mm)"}

// writeHistoryCSV renders the historical table as a CSV download.
// Unavailable values are written as empty cells.
func writeHistoryCSV(c *fiber.Ctx, days []weather.HistoricalDay) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(historyCSVHeader); err != nil {
		return err
	}
	for _, d := range days {
		row := []string{
			d.Date.Format(weather.DateLayout),
			formatOptional(d.Temperature),
			formatOptional(d.Humidity),
			formatOptional(d.Precipitation),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Attachment("historical_weather.csv")
	return c.Send(buf.Bytes())
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
