package routes

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/clock"
	"github.com/travigo/transitlog/pkg/feeds"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/journeyview"
)

type journeysHandler struct {
	store     *journeystore.Store
	builder   *journeyview.Builder
	scheduler *clock.Scheduler
}

func JourneysRouter(router fiber.Router, store *journeystore.Store, builder *journeyview.Builder, scheduler *clock.Scheduler) {
	handler := &journeysHandler{
		store:     store,
		builder:   builder,
		scheduler: scheduler,
	}

	router.Get("/", handler.listJourneys)
	router.Post("/:producer", handler.replaceJourneys)
	router.Get("/:key", handler.getJourney)
	router.Get("/:key/view", handler.getJourneyView)
}

func (h *journeysHandler) listJourneys(c *fiber.Ctx) error {
	return sendReduced(c, h.store.Journeys())
}

func (h *journeysHandler) replaceJourneys(c *fiber.Ctx) error {
	producer, err := journeystore.ParseProducer(c.Params("producer"))
	if err != nil {
		return sendError(c, fiber.StatusNotFound, err)
	}

	var document feeds.Document
	if err := c.BodyParser(&document); err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	journeys := feeds.Normalise(document.Journeys)

	if err := h.store.Replace(c.Context(), producer, journeys); err != nil {
		log.Error().Err(err).Str("producer", string(producer)).Msg("Failed to replace journeys")
		return sendError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"producer": producer,
		"journeys": len(journeys),
		"merged":   len(h.store.Journeys()),
	})
}

func (h *journeysHandler) getJourney(c *fiber.Ctx) error {
	key, err := journeyKey(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	journey, exists := h.store.Journey(key)
	if !exists {
		return sendError(c, fiber.StatusNotFound, fmt.Errorf("journey %s not found", key))
	}

	return sendReduced(c, journey)
}

func (h *journeysHandler) getJourneyView(c *fiber.Ctx) error {
	key, err := journeyKey(c)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err)
	}

	journey, exists := h.store.Journey(key)
	if !exists {
		return sendError(c, fiber.StatusNotFound, fmt.Errorf("journey %s not found", key))
	}

	var at time.Time
	if queryTime := c.Query("time"); queryTime != "" {
		at, err = parseTime(queryTime)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, err)
		}
	} else {
		at = h.scheduler.Now()
	}

	view, err := h.builder.Build(journey, at)
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, err)
	}

	return sendReduced(c, view)
}

func ViewsRouter(router fiber.Router, views func() []*journeyview.View) {
	router.Get("/", func(c *fiber.Ctx) error {
		return sendReduced(c, views())
	})
}
