package handler

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timecapsule/internal/service"
)

// Deps are the collaborators the HTTP routes need.
type Deps struct {
	DB       *sql.DB
	Capsules service.CapsuleService
	// Gatherer backs /metrics. Nil skips the route.
	Gatherer prometheus.Gatherer
	Log      *slog.Logger
	Now      Clock
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	capsules := app.Group("/capsules")
	capsules.Post("/", CreateCapsule(d.Capsules, d.Now))
	capsules.Get("/", ListCapsules(d.Capsules, d.Now))
	capsules.Get("/:id", GetCapsule(d.Capsules, d.Now))
	capsules.Delete("/:id", DeleteCapsule(d.Capsules))

	capsules.Post("/:id/uploads", UploadAttachment(d.Capsules, d.Log))
	capsules.Get("/:id/uploads", ListAttachments(d.Capsules))
	capsules.Delete("/:id/uploads/:key", DeleteAttachment(d.Capsules))
}
