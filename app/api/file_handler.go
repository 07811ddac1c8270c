package api

import (
	"errors"
	"fmt"
	"log/slog"
	"pdfcrop/filestore"
	"pdfcrop/pdfdoc"
	"pdfcrop/store"
	"pdfcrop/types"
	"time"

	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	files         *filestore.Store
	presets       store.PresetStorer
	defaultMargin float64
	logger        *slog.Logger
}

func NewFileHandler(files *filestore.Store, presets store.PresetStorer, defaultMargin float64) *FileHandler {
	return &FileHandler{
		files:         files,
		presets:       presets,
		defaultMargin: defaultMargin,
		logger:        slog.Default(),
	}
}

// HandleCrop accepts a multipart upload ("file") with optional top, right,
// bottom, left, margin and preset fields and answers with the cropped PDF.
func (h *FileHandler) HandleCrop(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Filename == "" {
		return ErrNoFile()
	}
	if !filestore.AllowedFile(fileHeader.Filename) {
		return ErrInvalidFileType()
	}

	var params types.MarginParams
	if err := c.BodyParser(&params); err != nil {
		return ErrBadRequest()
	}

	spec, err := h.resolveMargins(c, &params)
	if err != nil {
		return err
	}

	filename := filestore.SecureFilename(fileHeader.Filename)
	if filename == "" || !filestore.AllowedFile(filename) {
		return ErrInvalidFileType()
	}

	input := h.files.UploadPath(filename)
	if err := c.SaveFile(fileHeader, input); err != nil {
		return err
	}
	defer h.files.Remove(input)

	start := time.Now()
	out, err := h.files.CreateOutput(filename)
	if err != nil {
		return err
	}
	output := out.Name()
	pages, err := pdfdoc.CropFileTo(input, out, spec)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %w", pdfdoc.ErrEncode, closeErr)
	}
	if err != nil {
		h.files.Remove(output)
		h.logger.Warn("crop failed", "file", filename, "margins", spec.String(), "error", err)
		return processingError(err)
	}
	h.logger.Info("pdf cropped",
		"file", filename,
		"pages", pages,
		"margins", spec.String(),
		"took", time.Since(start))

	return c.Download(output, filestore.OutputName(filename))
}

// resolveMargins layers the request fields over the preset (if named) or the
// service default margin.
func (h *FileHandler) resolveMargins(c *fiber.Ctx, params *types.MarginParams) (types.MarginSpec, error) {
	defaults := types.MarginSpec{
		Top:    h.defaultMargin,
		Right:  h.defaultMargin,
		Bottom: h.defaultMargin,
		Left:   h.defaultMargin,
	}

	if params.Preset != "" {
		if h.presets == nil {
			return types.MarginSpec{}, ErrNotFound(params.Preset, "preset")
		}
		preset, err := h.presets.GetPresetByName(c.UserContext(), params.Preset)
		if errors.Is(err, store.ErrPresetNotFound) {
			return types.MarginSpec{}, ErrNotFound(params.Preset, "preset")
		}
		if err != nil {
			return types.MarginSpec{}, err
		}
		defaults = preset.Margins
	}

	return params.ToSpec(defaults)
}
