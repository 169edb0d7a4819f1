package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/transitlog/pkg/clock"
)

func ClockRouter(router fiber.Router, scheduler *clock.Scheduler) {
	sendState := func(c *fiber.Ctx) error {
		return c.JSON(scheduler.State())
	}

	router.Get("/", sendState)

	router.Post("/live", func(c *fiber.Ctx) error {
		scheduler.EnableLive()
		return sendState(c)
	})

	router.Post("/manual", func(c *fiber.Ctx) error {
		scheduler.DisableLive()
		return sendState(c)
	})

	router.Post("/now", func(c *fiber.Ctx) error {
		scheduler.SetNow()
		return sendState(c)
	})

	router.Post("/time", func(c *fiber.Ctx) error {
		value := c.Query("time")
		if value == "" {
			return sendError(c, fiber.StatusBadRequest, errors.New("time is required"))
		}

		at, err := parseTime(value)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, err)
		}

		scheduler.SetTime(at)
		return sendState(c)
	})

	router.Post("/visibility", func(c *fiber.Ctx) error {
		scheduler.SetForeground(c.QueryBool("foreground", true))
		return sendState(c)
	})

	router.Post("/update", func(c *fiber.Ctx) error {
		scheduler.ManualUpdate()
		return sendState(c)
	})
}
