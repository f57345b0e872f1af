package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("access denied")
)

// EntityError names the entity a NotFound or Forbidden outcome is about.
// Kind is ErrNotFound or ErrForbidden.
type EntityError struct {
	Kind   error
	Entity string
}

func NotFound(entity string) *EntityError {
	return &EntityError{Kind: ErrNotFound, Entity: entity}
}

func Forbidden(entity string) *EntityError {
	return &EntityError{Kind: ErrForbidden, Entity: entity}
}

func (e *EntityError) Error() string {
	if errors.Is(e.Kind, ErrForbidden) {
		return fmt.Sprintf("you cannot edit this %s", e.Entity)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

func (e *EntityError) Unwrap() error {
	return e.Kind
}

// ConflictError is returned by storages when a unique column already holds
// the value being written.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
