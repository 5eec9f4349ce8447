package store

import (
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// It also matches domain.ErrNotFound.
	ErrNotFound = fmt.Errorf("entity %w", domain.ErrNotFound)

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the database rejects an entity
	// because of a constraint. Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnavailable is returned when the database cannot be reached.
	ErrUnavailable = fmt.Errorf("store unavailable: %w", domain.ErrTransient)

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrCVFileNotFound indicates that the referenced CV file does not exist.
	ErrCVFileNotFound = fmt.Errorf("%w: cv file", ErrNotFound)

	// ErrApplicationNotFound indicates that the referenced application does
	// not exist.
	ErrApplicationNotFound = fmt.Errorf("%w: application", ErrNotFound)

	// ErrFitScoreNotFound indicates that no fit score is cached for the key.
	ErrFitScoreNotFound = fmt.Errorf("%w: fit score", ErrNotFound)
)
