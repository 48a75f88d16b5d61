// Package hierarchy enforces the parent/child invariants of the task tree
// and resolves transitive descendants. It speaks to storage only through
// the Reader interface, so the same algorithms run against the Postgres
// store and against in-memory stores in tests.
package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// Reader is the read access the hierarchy checks need. task.Store
// satisfies it.
type Reader interface {
	Get(ctx context.Context, ownerID, id string) (*task.Task, error)
	ChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]task.Task, error)
}

// ValidateNewParent checks that a proposed parent for a brand-new task
// exists within the owner's task set.
func ValidateNewParent(ctx context.Context, r Reader, ownerID, parentID string) error {
	if _, err := r.Get(ctx, ownerID, parentID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return fmt.Errorf("%w: parent task does not exist", task.ErrHierarchy)
		}
		return err
	}
	return nil
}

// ValidateReparent checks that moving taskID under parentID keeps the tree
// a tree: the parent must exist, must not be the task itself, and must not
// be one of the task's own descendants. A nil parent always succeeds (the
// task detaches to root).
//
// The cycle check walks the parent chain upward from the candidate parent.
// The walk is bounded by tree depth and terminates even on an inconsistent
// chain: a parent reference that resolves to nothing ends the walk, and an
// already-visited node stops it.
func ValidateReparent(ctx context.Context, r Reader, ownerID, taskID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == taskID {
		return fmt.Errorf("%w: a task cannot be its own parent", task.ErrHierarchy)
	}
	if err := ValidateNewParent(ctx, r, ownerID, *parentID); err != nil {
		return err
	}

	seen := make(map[string]bool)
	cur := *parentID
	for {
		if cur == taskID {
			return fmt.Errorf("%w: moving task would create a circular reference", task.ErrHierarchy)
		}
		if seen[cur] {
			return nil
		}
		seen[cur] = true

		t, err := r.Get(ctx, ownerID, cur)
		if err != nil {
			if errors.Is(err, task.ErrNotFound) {
				return nil
			}
			return err
		}
		if t.ParentID == nil {
			return nil
		}
		cur = *t.ParentID
	}
}

// CollectDescendants returns every transitive descendant of taskID within
// one owner's task set, via breadth-first frontier expansion: each round
// fetches all children of the current frontier and the new ids become the
// next frontier. Empty for a leaf. The seen set guards against revisiting
// a node should the stored tree ever be inconsistent.
func CollectDescendants(ctx context.Context, r Reader, ownerID, taskID string) ([]task.Task, error) {
	var out []task.Task
	seen := map[string]bool{taskID: true}
	frontier := []string{taskID}

	for len(frontier) > 0 {
		children, err := r.ChildrenOf(ctx, ownerID, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			next = append(next, c.ID)
		}
		frontier = next
	}
	return out, nil
}

// CollectDescendantIDs is CollectDescendants reduced to the id set.
func CollectDescendantIDs(ctx context.Context, r Reader, ownerID, taskID string) ([]string, error) {
	descendants, err := CollectDescendants(ctx, r, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(descendants))
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
