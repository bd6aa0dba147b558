package rest

import (
	"context"
	"errors"
	"strconv"

	pkgError "github.com/AzielCF/az-tweetcast/pkg/error"
	"github.com/AzielCF/az-tweetcast/pkg/utils"
	scheduleApp "github.com/AzielCF/az-tweetcast/schedules/application"
	domainSchedule "github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ScheduleExecutor runs a schedule on demand.
type ScheduleExecutor interface {
	ExecuteNow(ctx context.Context, scheduleID string) (domainSchedule.ExecutionResult, error)
}

type Schedule struct {
	Service  *scheduleApp.ScheduleService
	Executor ScheduleExecutor
}

func InitRestSchedule(app fiber.Router, service *scheduleApp.ScheduleService, executor ScheduleExecutor) Schedule {
	rest := Schedule{Service: service, Executor: executor}

	app.Get("/schedules", rest.ListSchedules)
	app.Post("/schedules", rest.CreateSchedule)
	app.Get("/schedules/:id", rest.GetSchedule)
	app.Put("/schedules/:id", rest.UpdateSchedule)
	app.Delete("/schedules/:id", rest.DeleteSchedule)
	app.Patch("/schedules/:id/active", rest.SetActive)
	app.Post("/schedules/:id/execute", rest.ExecuteNow)
	app.Get("/schedules/:id/next-run", rest.NextRun)
	app.Get("/schedules/:id/executions", rest.ListExecutions)
	app.Get("/schedules/:id/history", rest.ListHistory)
	app.Delete("/schedules/:id/history", rest.ClearHistory)

	app.Get("/executions/:execution_id", rest.GetExecution)
	app.Delete("/executions/:execution_id", rest.DeleteExecution)

	return rest
}

// httpError maps domain failures onto the GenericError family rendered by Recovery.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	var generic pkgError.GenericError
	if errors.As(err, &generic) {
		return generic
	}
	switch {
	case errors.Is(err, domainSchedule.ErrScheduleNotFound), errors.Is(err, domainSchedule.ErrExecutionNotFound):
		return pkgError.NotFoundError(err.Error())
	case errors.Is(err, domainSchedule.ErrDuplicateSchedule):
		return pkgError.ConflictError(err.Error())
	}
	logrus.WithError(err).Error("[REST] Unexpected error")
	return pkgError.InternalServerError(err.Error())
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ResponseData{
		Status:  fiber.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: err.Error(),
	})
}

func (h *Schedule) ListSchedules(c *fiber.Ctx) error {
	filter := domainSchedule.ScheduleFilter{
		UserID:     c.Query("user_id"),
		ActiveOnly: c.QueryBool("active", false),
		Limit:      c.QueryInt("limit", 0),
		Offset:     c.QueryInt("offset", 0),
	}
	schedules, err := h.Service.List(c.UserContext(), filter)
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedules fetched",
		Results: schedules,
	})
}

func (h *Schedule) CreateSchedule(c *fiber.Ctx) error {
	var req domainSchedule.Schedule
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	utils.PanicIfNeeded(httpError(h.Service.Create(c.UserContext(), &req)))

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  fiber.StatusCreated,
		Code:    "SUCCESS",
		Message: "Schedule created",
		Results: req,
	})
}

func (h *Schedule) GetSchedule(c *fiber.Ctx) error {
	sch, err := h.Service.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule fetched",
		Results: sch,
	})
}

func (h *Schedule) UpdateSchedule(c *fiber.Ctx) error {
	var req domainSchedule.Schedule
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	req.ID = c.Params("id")
	utils.PanicIfNeeded(httpError(h.Service.Update(c.UserContext(), &req)))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule updated",
		Results: req,
	})
}

func (h *Schedule) DeleteSchedule(c *fiber.Ctx) error {
	utils.PanicIfNeeded(httpError(h.Service.Delete(c.UserContext(), c.Params("id"))))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule deleted",
	})
}

func (h *Schedule) SetActive(c *fiber.Ctx) error {
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	sch, err := h.Service.SetActive(c.UserContext(), c.Params("id"), req.Active)
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule updated",
		Results: sch,
	})
}

// ExecuteNow answers 200 even when nothing was sent; the result carries the reason.
func (h *Schedule) ExecuteNow(c *fiber.Ctx) error {
	res, err := h.Executor.ExecuteNow(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: res.Message,
		Results: res,
	})
}

func (h *Schedule) NextRun(c *fiber.Ctx) error {
	next, err := h.Service.NextRun(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Next run computed",
		Results: map[string]any{"next_run_at": next},
	})
}

func (h *Schedule) ListExecutions(c *fiber.Ctx) error {
	execs, err := h.Service.ListExecutions(c.UserContext(), c.Params("id"), c.QueryInt("limit", 20))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Executions fetched",
		Results: execs,
	})
}

func (h *Schedule) ListHistory(c *fiber.Ctx) error {
	items, err := h.Service.ListHistory(c.UserContext(), c.Params("id"), c.QueryInt("limit", 100))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History fetched",
		Results: items,
	})
}

func (h *Schedule) ClearHistory(c *fiber.Ctx) error {
	n, err := h.Service.ClearHistory(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Deleted " + strconv.FormatInt(n, 10) + " history rows",
		Results: map[string]any{"deleted": n},
	})
}

func (h *Schedule) GetExecution(c *fiber.Ctx) error {
	detail, err := h.Service.GetExecution(c.UserContext(), c.Params("execution_id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Execution fetched",
		Results: detail,
	})
}

func (h *Schedule) DeleteExecution(c *fiber.Ctx) error {
	n, err := h.Service.DeleteExecution(c.UserContext(), c.Params("execution_id"))
	utils.PanicIfNeeded(httpError(err))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Execution deleted",
		Results: map[string]any{"deleted": n},
	})
}
