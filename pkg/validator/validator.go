package validator

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/mindease/booking-api/pkg/errors"
)

// Validator checks request DTOs against their `validate` tags.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns a ValidationError describing the first failing field.
func (val *Validator) Validate(obj interface{}) error {
	err := val.v.Struct(obj)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return apperrors.Validation("invalid field " + first.Field() + ": failed " + first.Tag() + " check")
	}
	return apperrors.Validation(err.Error())
}
