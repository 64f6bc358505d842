package domain

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Limits bounds request values that are configured rather than fixed.
type Limits struct {
	MinDuration int
	MaxDuration int
}

// DefaultLimits mirrors the service defaults for workout duration in minutes.
var DefaultLimits = Limits{MinDuration: 10, MaxDuration: 120}

type requestValidator struct {
	validate *validator.Validate
	limits   Limits
}

func newRequestValidator(limits Limits) *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v, limits: limits}
}

func (v *requestValidator) workout(req PlanRequest) error {
	verr := v.structFields(req)
	if req.DurationMinutes < v.limits.MinDuration || req.DurationMinutes > v.limits.MaxDuration {
		verr.Fields = append(verr.Fields, FieldError{
			Field: "duration_minutes",
			Rule:  "range",
			Param: strconv.Itoa(v.limits.MinDuration) + ".." + strconv.Itoa(v.limits.MaxDuration),
		})
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (v *requestValidator) check(payload any) error {
	verr := v.structFields(payload)
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (v *requestValidator) structFields(payload any) *ValidationError {
	verr := &ValidationError{}
	err := v.validate.Struct(payload)
	if err == nil {
		return verr
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Fields = append(verr.Fields, FieldError{Field: "request", Rule: err.Error()})
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return verr
}

// fieldPath drops the struct type prefix from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
