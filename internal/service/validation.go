package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"visitor-counter/internal/domain"
	apperrors "visitor-counter/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names so error details match the wire format
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
}

// validateRecord returns a validation AppError describing every bad field
func validateRecord(record domain.VisitRecord) *apperrors.AppError {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	details := make(map[string]interface{})
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			details[e.Field()] = e.Tag()
		}
	} else {
		details["record"] = err.Error()
	}

	return apperrors.NewValidationError("invalid visit record", details)
}
