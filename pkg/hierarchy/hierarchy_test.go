package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// fakeReader is a map-backed Reader. Tasks are declared as id -> parent id
// ("" for root).
type fakeReader struct {
	owner string
	tasks map[string]string
}

func newFakeReader(owner string, edges map[string]string) *fakeReader {
	return &fakeReader{owner: owner, tasks: edges}
}

func (r *fakeReader) Get(_ context.Context, ownerID, id string) (*task.Task, error) {
	parent, ok := r.tasks[id]
	if !ok || ownerID != r.owner {
		return nil, fmt.Errorf("get task %s: %w", id, task.ErrNotFound)
	}
	t := &task.Task{ID: id, OwnerID: ownerID}
	if parent != "" {
		p := parent
		t.ParentID = &p
	}
	return t, nil
}

func (r *fakeReader) ChildrenOf(_ context.Context, ownerID string, parentIDs []string) ([]task.Task, error) {
	if ownerID != r.owner {
		return nil, nil
	}
	want := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	var out []task.Task
	for id, parent := range r.tasks {
		if parent != "" && want[parent] {
			p := parent
			out = append(out, task.Task{ID: id, OwnerID: ownerID, ParentID: &p})
		}
	}
	return out, nil
}

const owner = "user-1"

func ptr(s string) *string { return &s }

func TestValidateNewParent(t *testing.T) {
	r := newFakeReader(owner, map[string]string{"a": ""})

	if err := ValidateNewParent(context.Background(), r, owner, "a"); err != nil {
		t.Errorf("existing parent: %v", err)
	}
	if err := ValidateNewParent(context.Background(), r, owner, "ghost"); !errors.Is(err, task.ErrHierarchy) {
		t.Errorf("missing parent: err = %v, want ErrHierarchy", err)
	}
	// Other owner's task is indistinguishable from a missing one.
	if err := ValidateNewParent(context.Background(), r, "user-2", "a"); !errors.Is(err, task.ErrHierarchy) {
		t.Errorf("foreign parent: err = %v, want ErrHierarchy", err)
	}
}

func TestValidateReparent(t *testing.T) {
	// a -> b -> c -> d, plus a sibling branch a -> e.
	r := newFakeReader(owner, map[string]string{
		"a": "",
		"b": "a",
		"c": "b",
		"d": "c",
		"e": "a",
	})

	cases := []struct {
		name    string
		taskID  string
		parent  *string
		wantErr bool
	}{
		{"detach to root", "b", nil, false},
		{"self parent", "b", ptr("b"), true},
		{"direct child", "a", ptr("b"), true},
		{"deep descendant", "a", ptr("d"), true},
		{"grandchild cycle", "b", ptr("d"), true},
		{"missing parent", "b", ptr("ghost"), true},
		{"sibling branch", "e", ptr("c"), false},
		{"upward move", "d", ptr("a"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReparent(context.Background(), r, owner, tc.taskID, tc.parent)
			if tc.wantErr && !errors.Is(err, task.ErrHierarchy) {
				t.Errorf("err = %v, want ErrHierarchy", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestValidateReparentDanglingChain verifies the walk terminates when a
// parent reference resolves to nothing mid-chain.
func TestValidateReparentDanglingChain(t *testing.T) {
	r := newFakeReader(owner, map[string]string{
		"a": "",
		"b": "vanished", // parent row no longer exists
		"c": "b",
	})
	if err := ValidateReparent(context.Background(), r, owner, "a", ptr("c")); err != nil {
		t.Fatalf("dangling chain should validate cleanly: %v", err)
	}
}

func collectSorted(t *testing.T, r Reader, id string) []string {
	t.Helper()
	ids, err := CollectDescendantIDs(context.Background(), r, owner, id)
	if err != nil {
		t.Fatalf("collect %s: %v", id, err)
	}
	sort.Strings(ids)
	return ids
}

func TestCollectDescendants(t *testing.T) {
	// a has two children; b's branch goes three levels deep.
	r := newFakeReader(owner, map[string]string{
		"a":  "",
		"b":  "a",
		"c":  "a",
		"d":  "b",
		"e":  "b",
		"f":  "d",
		"g":  "",
		"g1": "g",
	})

	cases := []struct {
		root string
		want []string
	}{
		{"a", []string{"b", "c", "d", "e", "f"}},
		{"b", []string{"d", "e", "f"}},
		{"d", []string{"f"}},
		{"f", nil},
		{"c", nil},
		{"g", []string{"g1"}},
	}
	for _, tc := range cases {
		t.Run(tc.root, func(t *testing.T) {
			got := collectSorted(t, r, tc.root)
			if len(got) != len(tc.want) {
				t.Fatalf("descendants of %s = %v, want %v", tc.root, got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("descendants of %s = %v, want %v", tc.root, got, tc.want)
				}
			}
		})
	}
}

func TestCollectDescendantsDeepChain(t *testing.T) {
	edges := map[string]string{"n000": ""}
	for i := 1; i < 100; i++ {
		edges[fmt.Sprintf("n%03d", i)] = fmt.Sprintf("n%03d", i-1)
	}
	r := newFakeReader(owner, edges)

	ids, err := CollectDescendantIDs(context.Background(), r, owner, "n000")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(ids) != 99 {
		t.Errorf("descendants = %d, want 99", len(ids))
	}
}

func TestCollectDescendantsScopedToOwner(t *testing.T) {
	r := newFakeReader(owner, map[string]string{"a": "", "b": "a"})
	ids, err := CollectDescendantIDs(context.Background(), r, "user-2", "a")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("foreign owner sees %d descendants, want 0", len(ids))
	}
}
