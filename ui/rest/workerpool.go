package rest

import (
	"github.com/AzielCF/az-tweetcast/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

// schedulePool is set when schedules run in parallel.
var schedulePool *msgworker.Pool

// UseSchedulePool exposes pool through the stats endpoint.
func UseSchedulePool(pool *msgworker.Pool) {
	schedulePool = pool
}

// GetWorkerPoolStats returns real-time statistics of the schedule worker pool
func GetWorkerPoolStats(c *fiber.Ctx) error {
	if schedulePool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Schedule worker pool not enabled",
		})
	}

	return c.JSON(schedulePool.GetStats())
}
