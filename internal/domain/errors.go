package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest rejects malformed or out-of-range input before generation starts.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoEligibleExercises means the constraints leave no exercise to build a plan from.
	ErrNoEligibleExercises = errors.New("no eligible exercises for the requested constraints")
	// ErrPrimaryServiceUnavailable covers generative service errors, timeouts and unusable output.
	// It is recovered by the fallback path and never returned to callers.
	ErrPrimaryServiceUnavailable = errors.New("primary generation service unavailable")
	// ErrSideEffectWrite marks a failed cache or log write. Logged only.
	ErrSideEffectWrite = errors.New("side effect write failed")
	// ErrPlanNotFound is returned for unknown or expired plan identifiers.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPreferencesNotFound is returned when no recent request is cached for a user.
	ErrPreferencesNotFound = errors.New("preferences not found")
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every rejected field. It matches ErrInvalidRequest.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", f.Field, f.Rule, f.Param))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Rule))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidRequest.
func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }
