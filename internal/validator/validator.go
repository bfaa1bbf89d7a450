package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps a struct validator with the session request rules registered.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates s and returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Engine exposes the underlying validator, e.g. for gin's binding.
func (v *Validator) Engine() *validator.Validate {
	return v.structValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("session_mode", validateSessionMode)
	validate.RegisterValidation("choice_text", validateChoiceText)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSessionMode(fl validator.FieldLevel) bool {
	switch models.SessionMode(fl.Field().String()) {
	case models.ModeExam, models.ModePractice:
		return true
	}
	return false
}

// A choice is compared verbatim against the question's choices, so it only
// has to carry something besides whitespace.
func validateChoiceText(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
