// Package engine coordinates task mutations and reads on top of a
// task.Store. Every operation is scoped to an explicit owner id; there is
// no ambient request state. Mutations that depend on the shape or state of
// a subtree run their read-check-write sequence inside a single store
// transaction, where reads take row locks.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Waterbottle88/todolist-api/pkg/hierarchy"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// Bounds on caller-provided text fields.
const (
	MaxTitleLen       = 255
	MaxDescriptionLen = 2000
)

// Engine exposes the task operations to transport layers.
type Engine struct {
	store task.Store
}

// New creates an Engine.
func New(store task.Store) *Engine {
	return &Engine{store: store}
}

// CreateInput is the caller-provided part of a new task. Zero values fall
// back to defaults: status pending, priority medium.
type CreateInput struct {
	Title       string
	Description string
	Priority    task.Priority
	Status      task.Status
	ParentID    *string
}

// Create validates the input and the proposed parent, then inserts the
// task. Parent validation and the insert share one transaction so a
// concurrent delete of the parent cannot commit in between.
func (e *Engine) Create(ctx context.Context, ownerID string, in CreateInput) (*task.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", task.ErrValidation)
	}
	if len(in.Title) > MaxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", task.ErrValidation, MaxTitleLen)
	}
	if len(in.Description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", task.ErrValidation, MaxDescriptionLen)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", task.ErrValidation, in.Status)
	}
	if in.Priority != 0 && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be between %d and %d", task.ErrValidation, task.PriorityCritical, task.PriorityLowest)
	}

	var created *task.Task
	err := e.store.InTx(ctx, func(s task.Store) error {
		if in.ParentID != nil {
			if err := hierarchy.ValidateNewParent(ctx, s, ownerID, *in.ParentID); err != nil {
				return err
			}
		}
		t := &task.Task{
			OwnerID:     ownerID,
			ParentID:    in.ParentID,
			Status:      in.Status,
			Priority:    in.Priority,
			Title:       in.Title,
			Description: in.Description,
		}
		// A fresh task has no descendants, so a caller-specified initial
		// done status passes the completion gate trivially.
		if t.Status == task.StatusDone {
			now := time.Now().Truncate(time.Microsecond)
			t.CompletedAt = &now
		}
		var err error
		created, err = s.Create(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get fetches one task.
func (e *Engine) Get(ctx context.Context, ownerID, id string) (*task.Task, error) {
	return e.store.Get(ctx, ownerID, id)
}

// Update applies a partial field patch. Status is deliberately not
// patchable here; Complete and Reopen own that transition and its
// completed_at side effect. A parent change is validated against the
// hierarchy invariants inside the same transaction as the write.
func (e *Engine) Update(ctx context.Context, ownerID, id string, p task.Patch) (*task.Task, error) {
	if p.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", task.ErrValidation)
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", task.ErrValidation)
		}
		if len(*p.Title) > MaxTitleLen {
			return nil, fmt.Errorf("%w: title exceeds %d characters", task.ErrValidation, MaxTitleLen)
		}
	}
	if p.Description != nil && len(*p.Description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", task.ErrValidation, MaxDescriptionLen)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be between %d and %d", task.ErrValidation, task.PriorityCritical, task.PriorityLowest)
	}

	var updated *task.Task
	err := e.store.InTx(ctx, func(s task.Store) error {
		if _, err := s.Get(ctx, ownerID, id); err != nil {
			return err
		}
		if p.SetParent {
			if err := hierarchy.ValidateReparent(ctx, s, ownerID, id, p.ParentID); err != nil {
				return err
			}
		}
		var err error
		updated, err = s.Update(ctx, ownerID, id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete transitions a task pending->done. The transition is gated on
// every transitive descendant already being done; the descendant walk, the
// status check and the write happen in one transaction with the subtree
// rows locked, so a concurrent reopen of a child cannot slip between the
// check and the write. Completing an already-done task is an idempotent
// no-op.
func (e *Engine) Complete(ctx context.Context, ownerID, id string) (*task.Task, error) {
	var out *task.Task
	err := e.store.InTx(ctx, func(s task.Store) error {
		t, err := s.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if t.Status == task.StatusDone {
			out = t
			return nil
		}

		descendants, err := hierarchy.CollectDescendants(ctx, s, ownerID, id)
		if err != nil {
			return err
		}
		pending := 0
		for _, d := range descendants {
			if d.Status == task.StatusPending {
				pending++
			}
		}
		if pending > 0 {
			return fmt.Errorf("%w: %d subtasks are still pending", task.ErrCompletionBlocked, pending)
		}

		now := time.Now().Truncate(time.Microsecond)
		out, err = s.SetStatus(ctx, ownerID, id, task.StatusDone, &now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reopen transitions a task done->pending and clears completed_at. Always
// allowed; ancestors that were completed on top of this task keep their
// done status. Reopening a pending task is an idempotent no-op.
func (e *Engine) Reopen(ctx context.Context, ownerID, id string) (*task.Task, error) {
	var out *task.Task
	err := e.store.InTx(ctx, func(s task.Store) error {
		t, err := s.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if t.Status == task.StatusPending {
			out = t
			return nil
		}
		out, err = s.SetStatus(ctx, ownerID, id, task.StatusPending, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes a task together with its entire subtree in one
// transaction: all descendants and the root disappear, or none do.
// Completed tasks are not deletable.
func (e *Engine) Delete(ctx context.Context, ownerID, id string) error {
	return e.store.InTx(ctx, func(s task.Store) error {
		t, err := s.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if t.Status == task.StatusDone {
			return fmt.Errorf("%w: completed tasks cannot be deleted", task.ErrDeletionBlocked)
		}
		ids, err := hierarchy.CollectDescendantIDs(ctx, s, ownerID, id)
		if err != nil {
			return err
		}
		return s.SoftDelete(ctx, ownerID, append(ids, id))
	})
}

// List returns one page of the owner's tasks. The query is normalized
// here: pagination clamped, unknown sort fields dropped, default ordering
// applied. Mutually exclusive filter toggles are the transport layer's job
// to reject before the query reaches this point.
func (e *Engine) List(ctx context.Context, ownerID string, q task.Query) (*task.Page, error) {
	q.Normalize()
	items, total, err := e.store.List(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	return task.NewPage(items, total, q.Page, q.Size), nil
}
