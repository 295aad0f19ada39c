// Package security provides request validation for the HTTP adapters
package security

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	apperrors "github.com/alchemorsel/studio/pkg/errors"
)

// ValidationService validates request DTOs with struct tags
type ValidationService struct {
	validator *validator.Validate
}

// NewValidationService creates a new validation service
func NewValidationService() *ValidationService {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validation rules
	_ = validate.RegisterValidation("recipe_language", validateLanguage)
	_ = validate.RegisterValidation("no_markup", validateNoMarkup)

	return &ValidationService{validator: validate}
}

// ValidateStruct returns nil or a VALIDATION_FAILED AppError listing every
// failing field
func (v *ValidationService) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError(err.Error())
	}

	fields := make([]apperrors.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, apperrors.FieldError{
			Field:   e.Field(),
			Value:   e.Value(),
			Tag:     e.Tag(),
			Message: message(e),
		})
	}
	return apperrors.NewFieldErrors(fields)
}

func message(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "recipe_language":
		return fmt.Sprintf("%s is not a supported language", field)
	case "no_markup":
		return fmt.Sprintf("%s must not contain markup", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Custom validation functions

// validateLanguage accepts supported language codes and the empty string
func validateLanguage(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := recipe.ParseLanguage(value)
	return err == nil
}

// validateNoMarkup rejects text carrying HTML tags or script URLs
func validateNoMarkup(fl validator.FieldLevel) bool {
	lower := strings.ToLower(fl.Field().String())
	for _, danger := range []string{"<script", "</", "javascript:", "onerror=", "onload="} {
		if strings.Contains(lower, danger) {
			return false
		}
	}
	return true
}
