package errors

import "errors"

var (
	ErrInvalid        = errors.New("invalid")
	ErrNotFound       = errors.New("not found")
	ErrInternal       = errors.New("internal")
	ErrNotInitialized = errors.New("index not initialized")
	ErrEmptyContext   = errors.New("no relevant results for context")
	ErrZeroVector     = errors.New("zero-norm embedding")
	ErrModelInit      = errors.New("embedding model init failed")
	ErrFetchImage     = errors.New("fetch image")
	ErrDecodeImage    = errors.New("decode image")
)

// IsNoResults reports whether err is the expected "nothing found" condition
// rather than a hard failure, so callers can present it as such.
func IsNoResults(err error) bool {
	return errors.Is(err, ErrEmptyContext)
}

func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}
