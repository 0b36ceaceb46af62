package microflow

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind indicates a micro-flow kind other than structure or deliverables.
	ErrUnknownKind = errors.New("unknown micro-flow kind")
	// ErrNoDraft indicates the engine's sink has no open project.
	ErrNoDraft = errors.New("no project draft to build on")
	// ErrEmptySuggestion indicates a generator returned nothing usable.
	ErrEmptySuggestion = errors.New("generator returned an empty suggestion")
)

// GenerationError describes a generation request that fell back to template content.
type GenerationError struct {
	Kind    Kind
	Timeout bool
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generating %s suggestions timed out: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generating %s suggestions: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
