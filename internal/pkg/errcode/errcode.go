package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrInternal
	ErrNoResults
	ErrAIUnavailable
	ErrIndexNotReady
	ErrInvalidImage
	ErrTooMany
)
