package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// --- Error Definitions ---
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrValidationFailed    = errors.New("validation failed")
	ErrNoActiveGoal        = errors.New("no active goal")
	ErrConflictingIdentity = errors.New("email or mobile already registered")
	ErrStoreFailure        = errors.New("store failure")
	ErrInconsistentGoal    = errors.New("goal fields are partially set")
)

// ValidationError lists the offending fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}
