package api

import (
	"sync"

	"github.com/adjust/rmq/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/api/routes"
	"github.com/travigo/transitlog/pkg/clock"
	"github.com/travigo/transitlog/pkg/consumer"
	"github.com/travigo/transitlog/pkg/journeystore"
	"github.com/travigo/transitlog/pkg/journeyview"
	"github.com/travigo/transitlog/pkg/metrics"
)

// ViewsListener is the scheduler listener name used to refresh the cached views
const ViewsListener = "journey-views"

type Server struct {
	App *fiber.App

	Store     *journeystore.Store
	Builder   *journeyview.Builder
	Scheduler *clock.Scheduler
	Metrics   *metrics.Collector

	RedisClient     *redis.Client
	QueueConnection rmq.Connection

	mu    sync.RWMutex
	views []*journeyview.View
}

func (s *Server) Setup() {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)
	group.Get("health", adaptor.HTTPHandler(consumer.NewHealthHandler(s.RedisClient)))

	if s.QueueConnection != nil {
		group.Get("queues", adaptor.HTTPHandler(consumer.NewStatsHandler(s.QueueConnection)))
	}

	routes.JourneysRouter(group.Group("/journeys"), s.Store, s.Builder, s.Scheduler)
	routes.ViewsRouter(group.Group("/views"), s.Views)
	routes.ClockRouter(group.Group("/clock"), s.Scheduler)

	s.Scheduler.Register(ViewsListener, s.RefreshViews, true)

	s.App = webApp
}

// RefreshViews rebuilds every journey view at the scheduler time
func (s *Server) RefreshViews(auto bool) error {
	at := s.Scheduler.Now()

	views, err := s.Builder.BuildAll(s.Store.Journeys(), at)
	if err != nil {
		s.Metrics.ObserveViewBuildError()
		return err
	}

	s.mu.Lock()
	s.views = views
	s.mu.Unlock()

	log.Debug().Bool("auto", auto).Time("time", at).Int("views", len(views)).Msg("Refreshed journey views")

	return nil
}

func (s *Server) Views() []*journeyview.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.views
}

func (s *Server) Listen(listen string) error {
	log.Info().Str("listen", listen).Msg("Starting web api")

	return s.App.Listen(listen)
}
