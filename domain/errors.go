package domain

import "errors"

var (
	// ErrUnauthenticated indicates no caller identity could be established.
	ErrUnauthenticated = errors.New("caller identity missing")
	// ErrForbidden indicates the caller is not a member of the target project.
	ErrForbidden = errors.New("caller is not a project member")
	// ErrTaskNotFound indicates the referenced task does not exist, or does
	// not belong to the claimed project.
	ErrTaskNotFound = errors.New("task not found")
	// ErrProjectNotFound indicates the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrConcurrencyConflict indicates that storage rejected an update due to
	// a concurrent modification; callers may re-read and retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError reports a malformed commit payload.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return "invalid payload: " + e.Reason }
