package api

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger logs every request, scrapes of /metrics only at debug level
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		startTime := time.Now()
		err = c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
		}

		code := c.Response().StatusCode()

		requestLogger := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("latency", time.Since(startTime).String()).
			Logger()

		var event *zerolog.Event
		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			event = requestLogger.Warn()
		case code >= http.StatusInternalServerError:
			event = requestLogger.Error()
		case c.Path() == "/metrics":
			event = requestLogger.Debug()
		default:
			event = requestLogger.Info()
		}

		event.Msg(msg)

		return err
	}
}
