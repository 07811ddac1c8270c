package api

import (
	"errors"
	"fmt"
	"log/slog"
	"pdfcrop/cropper"
	"pdfcrop/pdfdoc"
	"pdfcrop/types"

	"github.com/gofiber/fiber/v2"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiError Error
	if errors.As(err, &apiError) {
		return c.Status(apiError.Code).JSON(apiError)
	}

	var valError types.ValidationError
	if errors.As(err, &valError) {
		return c.Status(valError.Status).JSON(valError)
	}

	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		code = fiberError.Code
		message = fiberError.Message
	}

	apiError = NewError(code, message)
	slog.Default().Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"code", apiError.Code,
		"error", err.Error())
	return c.Status(apiError.Code).JSON(apiError)
}

// processingError turns a cropping failure into the message shown to the
// user. Anything unexpected is passed on to ErrorHandler.
func processingError(err error) error {
	var rotErr *cropper.UnsupportedRotationError
	switch {
	case errors.As(err, &rotErr):
		return NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("Error processing PDF: %s", rotErr.Error()))
	case errors.Is(err, pdfdoc.ErrMalformedInput):
		return NewError(fiber.StatusUnprocessableEntity, "Error processing PDF: the file is not a valid PDF document")
	case errors.Is(err, pdfdoc.ErrEncode):
		return NewError(fiber.StatusInternalServerError, "Error processing PDF: the cropped document could not be written")
	}
	return err
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func NewValidationError(errors map[string]string) types.ValidationError {
	return types.NewValidationError(errors)
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid request",
	}
}

func ErrNoFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "No file selected",
	}
}

func ErrInvalidFileType() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "Invalid file type. Please upload a PDF file.",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
