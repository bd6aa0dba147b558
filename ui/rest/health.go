package rest

import (
	"context"
	"time"

	"github.com/AzielCF/az-tweetcast/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// Pinger is anything the health endpoint can probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Health struct {
	DB        Pinger
	StartedAt time.Time
}

func InitRestHealth(app fiber.Router, db Pinger) Health {
	handler := Health{DB: db, StartedAt: time.Now()}

	group := app.Group("/health")
	group.Get("/status", handler.GetStatus)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	results := map[string]any{
		"uptime":   time.Since(h.StartedAt).Round(time.Second).String(),
		"database": "ok",
	}

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			results["database"] = err.Error()
			return c.Status(503).JSON(utils.ResponseData{
				Status:  503,
				Code:    "SERVICE_UNAVAILABLE",
				Message: "Database unreachable",
				Results: results,
			})
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: results,
	})
}
