package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStoreLoad         = errors.New("store load failed")
	ErrStoreNotLoaded    = errors.New("store tier not loaded")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrGeneration        = errors.New("answer generation failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrTemporary         = errors.New("temporary failure")
	ErrUnavailable       = errors.New("feature unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
