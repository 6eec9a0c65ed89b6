package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/obs"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates or assigns an X-Request-ID and stores it in the
// request's user context for upstream call logging.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDHeader, reqID)
		c.SetUserContext(obs.WithRequestID(c.UserContext(), reqID))
		return c.Next()
	}
}
