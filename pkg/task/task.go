package task

import (
	"context"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Priority is an ordinal urgency level. Lower values are more urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
	PriorityLowest   Priority = 5
)

// Valid reports whether p is within the known range.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLowest
}

// String returns the human-readable label for p.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	}
	return "unknown"
}

// Task is a unit of work owned by a single user. Tasks form a tree via
// ParentID; a nil ParentID marks a root task.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	ParentID    *string    `json:"parent_id"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched. The parent
// pointer is only changed when SetParent is true; a nil ParentID with
// SetParent detaches the task to root.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	ParentID    *string
	SetParent   bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && !p.SetParent
}

// Store is the contract for owner-scoped task persistence. Every method
// only sees tasks belonging to the given owner, and soft-deleted rows are
// excluded throughout. Reads performed inside InTx must take row-level
// locks so check-then-act sequences serialize against concurrent writers
// touching the same rows.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, ownerID, id string) (*Task, error)
	ChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]Task, error)
	Update(ctx context.Context, ownerID, id string, p Patch) (*Task, error)
	SetStatus(ctx context.Context, ownerID, id string, status Status, completedAt *time.Time) (*Task, error)
	SoftDelete(ctx context.Context, ownerID string, ids []string) error
	List(ctx context.Context, ownerID string, q Query) ([]Task, int, error)
	CountByStatus(ctx context.Context, ownerID string) (map[Status]int, error)
	CountByPriority(ctx context.Context, ownerID string) (map[Priority]int, error)
	InTx(ctx context.Context, fn func(Store) error) error
	EnsureTable(ctx context.Context) error
}
