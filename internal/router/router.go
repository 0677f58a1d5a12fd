package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-assessment-api/internal/access"
	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler             *handler.CourseHandler
	QuestionHandler           *handler.QuestionHandler
	QuestionSetHandler        *handler.QuestionSetHandler
	AssignmentHandler         *handler.AssignmentHandler
	AssignmentQuestionHandler *handler.AssignmentQuestionHandler
	SubmissionHandler         *handler.SubmissionHandler
	ActivityHandler           *handler.ActivityHandler
}

// Register wires the HTTP routes into the fiber application. Handlers left
// nil are skipped.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses"))
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(api.Group("/questions"))
	}
	if deps.QuestionSetHandler != nil {
		deps.QuestionSetHandler.Register(api.Group("/question-sets"))
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments")
		deps.AssignmentHandler.Register(assignments)
		if deps.AssignmentQuestionHandler != nil {
			deps.AssignmentQuestionHandler.Register(assignments)
		}
	}

	if deps.SubmissionHandler != nil {
		limit := middleware.RateLimit("submission-create", cfg.SubmissionRateLimit, time.Minute)
		deps.SubmissionHandler.Register(api.Group("/submissions"), limit)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", middleware.Authorize(access.ActionRead, access.ResourceActivity))
		deps.ActivityHandler.Register(activity)
	}
}
