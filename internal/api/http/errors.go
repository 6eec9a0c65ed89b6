package httpapi

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/obs"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrorHandler renders fetch failures and fiber errors as
// {"error": true, "kind": ..., "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *weather.FetchError
	if errors.As(err, &fe) {
		log.Printf("req_id=%s path=%s fetch failed: %v", obs.RequestID(c.UserContext()), c.Path(), err)
		return c.Status(statusFor(fe.Kind)).JSON(fiber.Map{
			"error":   true,
			"kind":    fe.Kind,
			"message": fe.Message(),
		})
	}

	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func statusFor(kind weather.Kind) int {
	switch kind {
	case weather.KindNotFound:
		return fiber.StatusNotFound
	case weather.KindRateLimited:
		return fiber.StatusTooManyRequests
	case weather.KindNetwork:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}
