package voting

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReputationWrite means a score increment failed after the vote set
	// was changed. The surrounding transaction is rolled back.
	ErrReputationWrite = errors.New("reputation write failed")

	// ErrConflict is returned by stores for retryable write conflicts.
	ErrConflict = errors.New("write conflict")
)
