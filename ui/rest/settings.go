package rest

import (
	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	settingsApp "github.com/AzielCF/az-tweetcast/core/settings/application"
	"github.com/AzielCF/az-tweetcast/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Settings struct {
	Service *settingsApp.SettingsService
}

func InitRestSettings(app fiber.Router, service *settingsApp.SettingsService) Settings {
	rest := Settings{Service: service}
	app.Get("/settings", rest.GetSettings)
	app.Put("/settings/scheduler", rest.SetSchedulerPaused)
	app.Put("/settings/rewrite-prompt", rest.SetRewritePrompt)
	return rest
}

func (h *Settings) GetSettings(c *fiber.Ctx) error {
	dynamic, err := h.Service.GetDynamicSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings fetched",
		Results: map[string]any{
			"dynamic": dynamic,
			"static":  coreconfig.GetAllSettings(),
		},
	})
}

func (h *Settings) SetSchedulerPaused(c *fiber.Ctx) error {
	var req struct {
		Paused bool `json:"paused"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	utils.PanicIfNeeded(h.Service.SetSchedulerPaused(c.UserContext(), req.Paused))

	msg := "Scheduler resumed"
	if req.Paused {
		msg = "Scheduler paused"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: msg,
		Results: map[string]any{"paused": req.Paused},
	})
}

func (h *Settings) SetRewritePrompt(c *fiber.Ctx) error {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	utils.PanicIfNeeded(h.Service.SetDefaultRewritePrompt(c.UserContext(), req.Prompt))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Default rewrite prompt updated",
	})
}
