package api

import (
	"pdfcrop/store"

	"github.com/gofiber/fiber/v2"
)

type CheckHandler struct {
	presets store.PresetStorer
}

// NewCheckHandler takes the preset store to probe; nil means the service
// runs without presets.
func NewCheckHandler(presets store.PresetStorer) *CheckHandler {
	return &CheckHandler{presets: presets}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	status := fiber.Map{"result": "ok", "presets": "disabled"}
	if h.presets != nil {
		if _, err := h.presets.ListPresets(c.UserContext()); err != nil {
			return NewError(fiber.StatusServiceUnavailable, "preset store unavailable")
		}
		status["presets"] = "ok"
	}
	return c.JSON(status)
}
