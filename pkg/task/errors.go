package task

import "errors"

// Expected failure kinds. Callers match with errors.Is; anything else
// coming out of a Store is an infrastructure fault to be logged and
// translated to a generic server error.
var (
	// ErrNotFound covers both a nonexistent id and an id owned by someone
	// else. The two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("task not found")

	// ErrHierarchy marks a self-parenting, missing-parent or
	// cycle-creating parent change.
	ErrHierarchy = errors.New("hierarchy violation")

	// ErrCompletionBlocked marks a pending->done transition attempted
	// while a descendant is still pending.
	ErrCompletionBlocked = errors.New("completion blocked")

	// ErrDeletionBlocked marks an attempt to delete a completed task.
	ErrDeletionBlocked = errors.New("deletion blocked")

	// ErrValidation marks structurally invalid input, such as an update
	// with zero provided fields.
	ErrValidation = errors.New("validation failed")
)
