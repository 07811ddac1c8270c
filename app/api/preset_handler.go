package api

import (
	"errors"
	"pdfcrop/store"
	"pdfcrop/types"

	"github.com/gofiber/fiber/v2"
)

type PresetHandler struct {
	presetStore store.PresetStorer
}

func NewPresetHandler(presetStore store.PresetStorer) *PresetHandler {
	return &PresetHandler{
		presetStore: presetStore,
	}
}

func (h *PresetHandler) HandleSetPreset(c *fiber.Ctx) error {
	var params types.PresetParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	preset := params.ToPreset()
	if err := h.presetStore.SavePreset(c.UserContext(), preset); err != nil {
		return err
	}

	saved, err := h.presetStore.GetPresetByName(c.UserContext(), preset.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *PresetHandler) HandleGetPreset(c *fiber.Ctx) error {
	name := c.Params("name")
	preset, err := h.presetStore.GetPresetByName(c.UserContext(), name)
	if errors.Is(err, store.ErrPresetNotFound) {
		return ErrNotFound(name, "preset")
	}
	if err != nil {
		return err
	}
	return c.JSON(preset)
}

func (h *PresetHandler) HandleListPresets(c *fiber.Ctx) error {
	presets, err := h.presetStore.ListPresets(c.UserContext())
	if err != nil {
		return err
	}
	if presets == nil {
		presets = []types.Preset{}
	}
	return c.JSON(presets)
}

func (h *PresetHandler) HandleDeletePreset(c *fiber.Ctx) error {
	name := c.Params("name")
	err := h.presetStore.DeletePreset(c.UserContext(), name)
	if errors.Is(err, store.ErrPresetNotFound) {
		return ErrNotFound(name, "preset")
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
