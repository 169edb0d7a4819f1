package routes

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/transitlog/pkg/util"
)

func sendError(c *fiber.Ctx, status int, err error) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}

// sendReduced runs the value through sheriff, adding the detailed group with ?detailed=true
func sendReduced(c *fiber.Ctx, value interface{}) error {
	groups := []string{"basic"}
	if c.QueryBool("detailed", false) {
		groups = append(groups, "detailed")
	}

	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, value)
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, fmt.Errorf("sheriff could not reduce response: %w", err))
	}

	return c.JSON(reduced)
}

// parseTime accepts unix seconds or an ISO-8601 timestamp
func parseTime(value string) (time.Time, error) {
	if unixTime, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(unixTime, 0).UTC(), nil
	}

	return util.ParseRecordedAt(value)
}

// journeyKey unescapes the :key param, keys contain slashes so clients send them escaped
func journeyKey(c *fiber.Ctx) (string, error) {
	return url.PathUnescape(c.Params("key"))
}
