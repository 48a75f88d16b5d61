package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgx shared by a pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

const taskCols = "id, owner_id, parent_id, status, priority, title, description, created_at, updated_at, completed_at"

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			owner_id     TEXT NOT NULL,
			parent_id    TEXT,
			status       TEXT NOT NULL DEFAULT 'pending',
			priority     INTEGER NOT NULL DEFAULT 3,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			deleted_at   TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id) WHERE deleted_at IS NULL`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_owner_parent ON tasks(owner_id, parent_id) WHERE deleted_at IS NULL`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner_id, status) WHERE deleted_at IS NULL`)
	return err
}

// InTx runs fn inside a single transaction. Nested calls join the
// enclosing transaction. Get and ChildrenOf performed through the store fn
// receives take FOR UPDATE row locks, which is what serializes
// collect-check-write sequences on a subtree against concurrent writers.
func (s *PgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PgStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PgStore) lockClause() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// Create inserts a new task. ID and timestamps are assigned here; the
// caller provides everything else, already validated.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	t.ID = uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == 0 {
		t.Priority = PriorityMedium
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO tasks (id, owner_id, parent_id, status, priority, title, description, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OwnerID, t.ParentID, t.Status, t.Priority, t.Title, t.Description, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get retrieves a single live task by id within one owner's set.
func (s *PgStore) Get(ctx context.Context, ownerID, id string) (*Task, error) {
	var t Task
	err := s.db.QueryRow(ctx, `
		SELECT `+taskCols+` FROM tasks
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`+s.lockClause(), id, ownerID).
		Scan(&t.ID, &t.OwnerID, &t.ParentID, &t.Status, &t.Priority, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// ChildrenOf returns every live task whose parent is in parentIDs.
func (s *PgStore) ChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]Task, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+taskCols+` FROM tasks
		WHERE owner_id = $1 AND parent_id = ANY($2) AND deleted_at IS NULL`+s.lockClause(), ownerID, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("children of: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Update applies a partial field patch and returns the updated row.
func (s *PgStore) Update(ctx context.Context, ownerID, id string, p Patch) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)

	setClauses := "updated_at = $1"
	args := []any{now}
	argIdx := 2

	if p.Title != nil {
		setClauses += fmt.Sprintf(", title = $%d", argIdx)
		args = append(args, *p.Title)
		argIdx++
	}
	if p.Description != nil {
		setClauses += fmt.Sprintf(", description = $%d", argIdx)
		args = append(args, *p.Description)
		argIdx++
	}
	if p.Priority != nil {
		setClauses += fmt.Sprintf(", priority = $%d", argIdx)
		args = append(args, *p.Priority)
		argIdx++
	}
	if p.SetParent {
		setClauses += fmt.Sprintf(", parent_id = $%d", argIdx)
		args = append(args, p.ParentID)
		argIdx++
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d AND owner_id = $%d AND deleted_at IS NULL RETURNING %s`,
		setClauses, argIdx, argIdx+1, taskCols)

	var t Task
	err := s.db.QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.OwnerID, &t.ParentID, &t.Status, &t.Priority, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return &t, nil
}

// SetStatus flips the status and the completion timestamp together.
// completedAt carries the side effect: non-nil on pending->done, nil on
// done->pending.
func (s *PgStore) SetStatus(ctx context.Context, ownerID, id string, status Status, completedAt *time.Time) (*Task, error) {
	now := time.Now().Truncate(time.Microsecond)
	var t Task
	err := s.db.QueryRow(ctx, `
		UPDATE tasks SET status = $1, completed_at = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5 AND deleted_at IS NULL
		RETURNING `+taskCols,
		status, completedAt, now, id, ownerID).
		Scan(&t.ID, &t.OwnerID, &t.ParentID, &t.Status, &t.Priority, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("set status of task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set status of task %s: %w", id, err)
	}
	return &t, nil
}

// SoftDelete marks every task in ids as deleted. Already-deleted rows are
// skipped, so the call is idempotent.
func (s *PgStore) SoftDelete(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().Truncate(time.Microsecond)
	_, err := s.db.Exec(ctx, `
		UPDATE tasks SET deleted_at = $1, updated_at = $1
		WHERE owner_id = $2 AND id = ANY($3) AND deleted_at IS NULL`,
		now, ownerID, ids)
	if err != nil {
		return fmt.Errorf("soft delete tasks: %w", err)
	}
	return nil
}

// List returns one page of the owner's tasks matching q plus the total
// match count. q is expected to be normalized.
func (s *PgStore) List(ctx context.Context, ownerID string, q Query) ([]Task, int, error) {
	where, args := buildWhere(ownerID, q.Filter)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	order := make([]string, 0, len(q.Sort))
	for _, key := range q.Sort {
		if !sortFields[key.Field] {
			continue
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		order = append(order, key.Field+" "+dir)
	}
	if len(order) == 0 {
		order = append(order, "created_at DESC")
	}

	limitIdx := len(args) + 1
	args = append(args, q.Size, (q.Page-1)*q.Size)
	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskCols, where, strings.Join(order, ", "), limitIdx, limitIdx+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	items, err := scanTaskRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// buildWhere assembles the WHERE clause shared by the count and page
// queries.
func buildWhere(ownerID string, f Filter) (string, []any) {
	conds := []string{"owner_id = $1", "deleted_at IS NULL"}
	args := []any{ownerID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Priority != nil {
		add("priority = $%d", *f.Priority)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.ParentID != nil {
		add("parent_id = $%d", *f.ParentID)
	}
	if f.RootOnly {
		conds = append(conds, "parent_id IS NULL")
	}
	if f.SubtasksOnly {
		conds = append(conds, "parent_id IS NOT NULL")
	}
	if f.CreatedAfter != nil {
		add("created_at >= $%d", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		add("created_at <= $%d", *f.CreatedBefore)
	}
	if f.CompletedAfter != nil {
		add("completed_at >= $%d", *f.CompletedAfter)
	}
	if f.CompletedBefore != nil {
		add("completed_at <= $%d", *f.CompletedBefore)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountByStatus returns live task counts grouped by status.
func (s *PgStore) CountByStatus(ctx context.Context, ownerID string) (map[Status]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*) FROM tasks
		WHERE owner_id = $1 AND deleted_at IS NULL GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return counts, nil
}

// CountByPriority returns live task counts grouped by priority.
func (s *PgStore) CountByPriority(ctx context.Context, ownerID string) (map[Priority]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT priority, COUNT(*) FROM tasks
		WHERE owner_id = $1 AND deleted_at IS NULL GROUP BY priority`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count by priority: %w", err)
	}
	defer rows.Close()

	counts := make(map[Priority]int)
	for rows.Next() {
		var p Priority
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		counts[p] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return counts, nil
}

func scanTaskRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.ParentID, &t.Status, &t.Priority, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
