package memory

import "errors"

var (
	// ErrValidation marks rejected input (empty text, bad priority, bad time).
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a lookup for an id the user's record does not contain.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyCompleted marks a second completion attempt on a done task.
	ErrAlreadyCompleted = errors.New("task already completed")

	// ErrCorruptStore marks a user file that exists but cannot be decoded.
	ErrCorruptStore = errors.New("corrupt user record")

	// ErrStoreWrite marks a failed persist; in-memory state was rolled back.
	ErrStoreWrite = errors.New("store write failed")
)
