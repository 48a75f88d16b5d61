package task

import (
	"fmt"
	"strings"
	"time"
)

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects a subset of one owner's tasks. All predicates are
// optional and combine with AND. RootOnly and SubtasksOnly are mutually
// exclusive; rejecting a request that sets both is the caller's job.
type Filter struct {
	Status          *Status
	Priority        *Priority
	Search          string // substring match over title or description
	ParentID        *string
	RootOnly        bool
	SubtasksOnly    bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	CompletedAfter  *time.Time
	CompletedBefore *time.Time
}

// CheckRanges rejects inverted date ranges. Bounds are inclusive, so an
// after bound equal to its before bound is a valid single-instant range.
func (f Filter) CheckRanges() error {
	if err := checkRange(f.CreatedAfter, f.CreatedBefore, "created"); err != nil {
		return err
	}
	return checkRange(f.CompletedAfter, f.CompletedBefore, "completed")
}

func checkRange(after, before *time.Time, name string) error {
	if after != nil && before != nil && before.Before(*after) {
		return fmt.Errorf("%w: %s_before must not precede %s_after", ErrValidation, name, name)
	}
	return nil
}

// ParseTime parses a filter bound, accepting RFC3339 or a bare date.
func ParseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: invalid time %q, want RFC3339 or YYYY-MM-DD", ErrValidation, s)
}

// Sort is a single ordering key.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads a comma-separated field list; a leading '-' flips that
// field to descending. Unknown fields are left in and dropped by
// Normalize.
func ParseSort(s string) []Sort {
	if s == "" {
		return nil
	}
	var keys []Sort
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := Sort{Field: part}
		if strings.HasPrefix(part, "-") {
			key.Field = part[1:]
			key.Desc = true
		}
		keys = append(keys, key)
	}
	return keys
}

// sortFields is the allow-list of sortable columns. Unrecognized fields
// are dropped, not rejected.
var sortFields = map[string]bool{
	"id":           true,
	"title":        true,
	"status":       true,
	"priority":     true,
	"created_at":   true,
	"updated_at":   true,
	"completed_at": true,
}

// Query is a filtered, sorted, paginated listing request.
type Query struct {
	Filter Filter
	Sort   []Sort
	Page   int
	Size   int
}

// Normalize clamps pagination, drops unknown sort fields and applies the
// default ordering (created_at descending) when no valid key remains.
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	// Filter into a fresh slice; the caller's Sort slice stays intact.
	kept := make([]Sort, 0, len(q.Sort))
	for _, s := range q.Sort {
		if sortFields[s.Field] {
			kept = append(kept, s)
		}
	}
	q.Sort = kept
	if len(q.Sort) == 0 {
		q.Sort = []Sort{{Field: "created_at", Desc: true}}
	}
}

// Page is one page of a listing result.
type Page struct {
	Items    []Task `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	Size     int    `json:"page_size"`
	LastPage int    `json:"last_page"`
}

// NewPage assembles a result page, deriving the last page number from the
// total and page size.
func NewPage(items []Task, total, page, size int) *Page {
	if items == nil {
		items = []Task{}
	}
	last := (total + size - 1) / size
	if last < 1 {
		last = 1
	}
	return &Page{Items: items, Total: total, Page: page, Size: size, LastPage: last}
}
