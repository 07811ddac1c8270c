package types

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinMargin = 0.0
	MaxMargin = 50.0

	// DefaultMargin is applied to every side when a request names no margins at all.
	DefaultMargin = 10.0
)

var validate = validator.New()

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// MarginSpec holds the four visual margins of a crop request, in percent of
// the page box. Build it with NewMarginSpec so that an out-of-range value can
// never reach the cropper.
type MarginSpec struct {
	Top    float64 `json:"top" yaml:"top" validate:"gte=0,lte=50"`
	Right  float64 `json:"right" yaml:"right" validate:"gte=0,lte=50"`
	Bottom float64 `json:"bottom" yaml:"bottom" validate:"gte=0,lte=50"`
	Left   float64 `json:"left" yaml:"left" validate:"gte=0,lte=50"`
}

func NewMarginSpec(top, right, bottom, left float64) (MarginSpec, error) {
	m := MarginSpec{Top: top, Right: right, Bottom: bottom, Left: left}
	if errors := m.Validate(); len(errors) > 0 {
		return MarginSpec{}, NewValidationError(errors)
	}
	return m, nil
}

// Uniform returns a MarginSpec trimming the same percentage from every side.
func Uniform(percent float64) (MarginSpec, error) {
	return NewMarginSpec(percent, percent, percent, percent)
}

func (m MarginSpec) IsZero() bool {
	return m == MarginSpec{}
}

func (m MarginSpec) String() string {
	return fmt.Sprintf("top=%g right=%g bottom=%g left=%g", m.Top, m.Right, m.Bottom, m.Left)
}

func (m *MarginSpec) Validate() map[string]string {
	if err := validate.Struct(m); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[fieldKey(e.Field())] = fmt.Sprintf("Invalid %s margin value: must be between %g and %g", fieldKey(e.Field()), MinMargin, MaxMargin)
		}
		return errors
	}
	return nil
}

// MarginParams is the textual margin input of a crop request. Empty fields
// fall back to Margin, then to the preset or service defaults.
type MarginParams struct {
	Top    string `form:"top"`
	Right  string `form:"right"`
	Bottom string `form:"bottom"`
	Left   string `form:"left"`
	Margin string `form:"margin"`
	Preset string `form:"preset" validate:"omitempty,max=64"`
}

func (params *MarginParams) Validate() map[string]string {
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[fieldKey(e.Field())] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// ToSpec resolves the textual input against defaults and validates the
// result as a whole. Either every side is valid or nothing is returned.
func (params *MarginParams) ToSpec(defaults MarginSpec) (MarginSpec, error) {
	if errors := params.Validate(); len(errors) > 0 {
		return MarginSpec{}, NewValidationError(errors)
	}

	base := defaults
	if params.Margin != "" {
		v, err := parseMargin(params.Margin)
		if err != nil {
			return MarginSpec{}, NewValidationError(map[string]string{"margin": "Invalid margin value"})
		}
		base = MarginSpec{Top: v, Right: v, Bottom: v, Left: v}
	}

	errors := make(map[string]string)
	side := func(name, raw string, fallback float64) float64 {
		if raw == "" {
			return fallback
		}
		v, err := parseMargin(raw)
		if err != nil {
			errors[name] = fmt.Sprintf("Invalid %s margin value", name)
			return 0
		}
		return v
	}

	top := side("top", params.Top, base.Top)
	right := side("right", params.Right, base.Right)
	bottom := side("bottom", params.Bottom, base.Bottom)
	left := side("left", params.Left, base.Left)
	if len(errors) > 0 {
		return MarginSpec{}, NewValidationError(errors)
	}

	return NewMarginSpec(top, right, bottom, left)
}

// parseMargin accepts any finite real number; the range is checked later.
func parseMargin(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("margin %q is not a finite number", s)
	}
	return v, nil
}

func fieldKey(field string) string {
	return strings.ToLower(field)
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}
