package domain

import "errors"

var (
	// ErrSessionNotFound is returned by session stores when no live record exists.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionInvalid is returned when a session is absent or expired.
	ErrSessionInvalid = errors.New("quiz session invalid or expired")
	// ErrIndexOutOfRange indicates a question index outside [0, total).
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrAlreadyAnswered rejects a resubmission for an answered question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrOutOfOrder rejects answers that would leave a gap in the answer list.
	ErrOutOfOrder = errors.New("previous questions must be answered first")
	// ErrInvalidOption indicates the submitted option is not one of the question's options.
	ErrInvalidOption = errors.New("option not found")
	// ErrSessionExists is returned when creating a session under a taken id.
	ErrSessionExists = errors.New("quiz session already exists")
	// ErrConcurrentUpdate is returned when an optimistic update keeps losing races.
	ErrConcurrentUpdate = errors.New("quiz session modified concurrently")
)
