package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProvider marks an embedding or completion backend failure. Fatal for
	// the current operation; retry policy is layered on top by the caller.
	ErrProvider = errors.New("provider failure")
	// ErrEmbeddingService marks embedding-specific provider failures.
	ErrEmbeddingService = errors.New("embedding service failure")

	ErrIndexNotFound    = errors.New("index not found")
	ErrNotInitialized   = errors.New("index not initialized")
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrStoryNotFound  = errors.New("story not found")
	ErrUploadNotFound = errors.New("upload not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTemporary      = errors.New("temporary failure")
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
