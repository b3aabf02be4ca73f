package mapping

import "errors"

var (
	// ErrInvalidAnnotation is returned when annotation metadata cannot be registered.
	ErrInvalidAnnotation = errors.New("invalid annotation definition")

	// ErrAttributeAccess is returned when an attribute value cannot be extracted.
	ErrAttributeAccess = errors.New("attribute access failed")
)
