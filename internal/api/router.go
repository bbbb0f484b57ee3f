package api

import (
	"github.com/Freeeeeet/thesis_tracker/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services сервисы, которые обслуживает REST API
type Services struct {
	Guidance           *service.GuidanceService
	Milestones         *service.MilestoneService
	SupervisorRequests *service.SupervisorRequestService
	Users              *service.UserService
}

type RouterConfig struct {
	JWTSecret          string
	RateLimitPerMinute int
}

// NewRouter собирает fiber-приложение со всеми маршрутами /v1
func NewRouter(svc Services, cfg RouterConfig, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "thesis-tracker",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "thesis-tracker"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	guidanceHandler := NewGuidanceHandler(svc.Guidance, logger)
	availabilityHandler := NewAvailabilityHandler(svc.Guidance, logger)
	milestoneHandler := NewMilestoneHandler(svc.Milestones, logger)
	requestHandler := NewSupervisorRequestHandler(svc.SupervisorRequests, logger)
	userHandler := NewUserHandler(svc.Users, logger)

	limited := RateLimitMiddleware(cfg.RateLimitPerMinute, logger)

	v1 := app.Group("/v1", AuthMiddleware([]byte(cfg.JWTSecret)))

	v1.Get("/me", userHandler.Me)
	v1.Put("/me/telegram", userHandler.BindTelegram)
	v1.Delete("/me/telegram", userHandler.UnbindTelegram)

	guidance := v1.Group("/guidance")
	guidance.Get("/", guidanceHandler.List)
	guidance.Get("/upcoming", guidanceHandler.Upcoming)
	guidance.Get("/pending", guidanceHandler.Pending)
	guidance.Post("/", limited, guidanceHandler.Create)
	guidance.Get("/:id", guidanceHandler.Get)
	guidance.Post("/:id/reschedule", limited, guidanceHandler.Reschedule)
	guidance.Post("/:id/cancel", guidanceHandler.Cancel)
	guidance.Patch("/:id/notes", guidanceHandler.UpdateNotes)
	guidance.Post("/:id/approve", guidanceHandler.Approve)
	guidance.Post("/:id/reject", guidanceHandler.Reject)
	guidance.Post("/:id/summary", guidanceHandler.SubmitSummary)
	guidance.Post("/:id/approve-summary", guidanceHandler.ApproveSummary)

	supervisors := v1.Group("/supervisors")
	supervisors.Get("/:id/availability", availabilityHandler.BusySlots)
	supervisors.Get("/:id/availability/check", limited, availabilityHandler.Check)

	v1.Get("/thesis/:id/milestones", milestoneHandler.List)
	v1.Post("/thesis/:id/milestones/init", milestoneHandler.Init)
	v1.Post("/milestones/:id/progress", milestoneHandler.SubmitProgress)
	v1.Post("/milestones/:id/validate", milestoneHandler.Validate)

	requests := v1.Group("/supervisor-requests")
	requests.Get("/", requestHandler.List)
	requests.Post("/", limited, requestHandler.Create)
	requests.Post("/:id/approve", requestHandler.Approve)
	requests.Post("/:id/reject", requestHandler.Reject)
	requests.Post("/:id/cancel", requestHandler.Cancel)

	return app
}
