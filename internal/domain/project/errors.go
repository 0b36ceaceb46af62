package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectNotFound indicates the project doesn't exist locally or remotely.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrUnknownStage indicates a stage name outside the authoring sequence.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrStaleRevision indicates the record changed since the caller loaded it.
	ErrStaleRevision = errors.New("record revision is stale")
	// ErrInconsistentStatus indicates stageStatus disagrees with currentStage.
	ErrInconsistentStatus = errors.New("stage status inconsistent with current stage")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("stage validation failed")
)

// ValidationError explains why a stage cannot be completed yet.
type ValidationError struct {
	Stage   Stage
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(stage Stage, fields []string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Fields:  fields,
	}
}

func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}

func itoaPair(label string, have, want int) string {
	return fmt.Sprintf("%s %d of %d", label, have, want)
}
