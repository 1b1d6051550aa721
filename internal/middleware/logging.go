package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request once the response status is known.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			// Render the error now so the logged status is the one sent.
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		// Ctx strings point into buffers fiber reuses after the handler
		// returns, and hooks may keep the entry longer than that.
		status := c.Response().StatusCode()
		entry := logrus.WithFields(logrus.Fields{
			"method":     utils.CopyString(c.Method()),
			"path":       utils.CopyString(c.Path()),
			"status":     status,
			"duration":   time.Since(start).Milliseconds(),
			"ip":         utils.CopyString(c.IP()),
			"user_agent": utils.CopyString(c.Get(fiber.HeaderUserAgent)),
			"user_id":    c.Locals(LocalUserID),
			"request_id": utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID)),
		})
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("Request processed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
		return nil
	}
}
