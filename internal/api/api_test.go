package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Waterbottle88/todolist-api/pkg/engine"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// stubEngine records the last call and returns canned results.
type stubEngine struct {
	lastOwner string
	lastPatch task.Patch
	lastQuery task.Query
	taskOut   *task.Task
	err       error
}

func (s *stubEngine) Create(_ context.Context, ownerID string, in engine.CreateInput) (*task.Task, error) {
	s.lastOwner = ownerID
	return s.taskOut, s.err
}

func (s *stubEngine) Get(_ context.Context, ownerID, id string) (*task.Task, error) {
	s.lastOwner = ownerID
	return s.taskOut, s.err
}

func (s *stubEngine) Update(_ context.Context, ownerID, id string, p task.Patch) (*task.Task, error) {
	s.lastOwner = ownerID
	s.lastPatch = p
	return s.taskOut, s.err
}

func (s *stubEngine) Complete(_ context.Context, ownerID, id string) (*task.Task, error) {
	s.lastOwner = ownerID
	return s.taskOut, s.err
}

func (s *stubEngine) Reopen(_ context.Context, ownerID, id string) (*task.Task, error) {
	s.lastOwner = ownerID
	return s.taskOut, s.err
}

func (s *stubEngine) Delete(_ context.Context, ownerID, id string) error {
	s.lastOwner = ownerID
	return s.err
}

func (s *stubEngine) List(_ context.Context, ownerID string, q task.Query) (*task.Page, error) {
	s.lastOwner = ownerID
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return task.NewPage(nil, 0, 1, task.DefaultPageSize), nil
}

func (s *stubEngine) Stats(_ context.Context, ownerID string) (*engine.Stats, error) {
	s.lastOwner = ownerID
	return &engine.Stats{ProductivityBand: "No Data", MostCommonPriority: "none"}, s.err
}

func doRequest(t *testing.T, stub *stubEngine, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	New(stub).ServeHTTP(rec, req)
	return rec
}

func TestMissingUserHeader(t *testing.T) {
	stub := &stubEngine{taskOut: &task.Task{ID: "t1"}}
	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/t1"},
		{http.MethodDelete, "/api/tasks/t1"},
		{http.MethodPost, "/api/tasks/t1/complete"},
		{http.MethodGet, "/api/tasks/stats"},
	}
	for _, tc := range paths {
		rec := doRequest(t, stub, tc.method, tc.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without user: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestCreateTask(t *testing.T) {
	stub := &stubEngine{taskOut: &task.Task{ID: "t1", Title: "x"}}
	rec := doRequest(t, stub, http.MethodPost, "/api/tasks", `{"title":"x"}`, "user-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if stub.lastOwner != "user-1" {
		t.Errorf("owner = %q, want user-1", stub.lastOwner)
	}
}

func TestCreateTaskBadJSON(t *testing.T) {
	stub := &stubEngine{}
	rec := doRequest(t, stub, http.MethodPost, "/api/tasks", `{"title":`, "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", task.ErrNotFound, http.StatusNotFound},
		{"validation", task.ErrValidation, http.StatusBadRequest},
		{"hierarchy", task.ErrHierarchy, http.StatusUnprocessableEntity},
		{"completion blocked", task.ErrCompletionBlocked, http.StatusConflict},
		{"deletion blocked", task.ErrDeletionBlocked, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubEngine{err: tc.err}
			rec := doRequest(t, stub, http.MethodPost, "/api/tasks/t1/complete", "", "user-1")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestUpdateParentTristate(t *testing.T) {
	t.Run("absent leaves parent alone", func(t *testing.T) {
		stub := &stubEngine{taskOut: &task.Task{ID: "t1"}}
		doRequest(t, stub, http.MethodPatch, "/api/tasks/t1", `{"title":"x"}`, "user-1")
		if stub.lastPatch.SetParent {
			t.Error("SetParent = true for a patch without parent_id")
		}
	})
	t.Run("null detaches to root", func(t *testing.T) {
		stub := &stubEngine{taskOut: &task.Task{ID: "t1"}}
		doRequest(t, stub, http.MethodPatch, "/api/tasks/t1", `{"parent_id":null}`, "user-1")
		if !stub.lastPatch.SetParent || stub.lastPatch.ParentID != nil {
			t.Errorf("patch = %+v, want SetParent with nil parent", stub.lastPatch)
		}
	})
	t.Run("string sets parent", func(t *testing.T) {
		stub := &stubEngine{taskOut: &task.Task{ID: "t1"}}
		doRequest(t, stub, http.MethodPatch, "/api/tasks/t1", `{"parent_id":"p9"}`, "user-1")
		if !stub.lastPatch.SetParent || stub.lastPatch.ParentID == nil || *stub.lastPatch.ParentID != "p9" {
			t.Errorf("patch = %+v, want parent p9", stub.lastPatch)
		}
	})
	t.Run("non-string rejected", func(t *testing.T) {
		stub := &stubEngine{taskOut: &task.Task{ID: "t1"}}
		rec := doRequest(t, stub, http.MethodPatch, "/api/tasks/t1", `{"parent_id":42}`, "user-1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListParamValidation(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"conflicting toggles", "root_only=true&subtasks_only=true"},
		{"bad status", "status=archived"},
		{"bad priority", "priority=nine"},
		{"priority out of range", "priority=0"},
		{"bad bool", "root_only=banana"},
		{"bad time", "created_after=yesterday"},
		{"inverted created range", "created_after=2026-05-02&created_before=2026-05-01"},
		{"inverted completed range", "completed_after=2026-05-02&completed_before=2026-05-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubEngine{}
			rec := doRequest(t, stub, http.MethodGet, "/api/tasks?"+tc.query, "", "user-1")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestListParamParsing(t *testing.T) {
	stub := &stubEngine{}
	rec := doRequest(t, stub, http.MethodGet,
		"/api/tasks?status=done&priority=2&search=milk&root_only=true&sort=-priority,title&page=2&page_size=10",
		"", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	q := stub.lastQuery
	if q.Filter.Status == nil || *q.Filter.Status != task.StatusDone {
		t.Errorf("status filter = %v", q.Filter.Status)
	}
	if q.Filter.Priority == nil || *q.Filter.Priority != task.PriorityHigh {
		t.Errorf("priority filter = %v", q.Filter.Priority)
	}
	if q.Filter.Search != "milk" {
		t.Errorf("search = %q", q.Filter.Search)
	}
	if !q.Filter.RootOnly {
		t.Error("root_only not set")
	}
	if len(q.Sort) != 2 || q.Sort[0].Field != "priority" || !q.Sort[0].Desc || q.Sort[1].Field != "title" || q.Sort[1].Desc {
		t.Errorf("sort = %v", q.Sort)
	}
	if q.Page != 2 || q.Size != 10 {
		t.Errorf("page=%d size=%d", q.Page, q.Size)
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	stub := &stubEngine{}
	rec := doRequest(t, stub, http.MethodDelete, "/api/tasks/t1", "", "user-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	stub := &stubEngine{}
	rec := doRequest(t, stub, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
