package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Waterbottle88/todolist-api/pkg/engine"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

type createRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	Status      string  `json:"status"`
	ParentID    *string `json:"parent_id"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	t, err := s.engine.Create(r.Context(), owner, engine.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    task.Priority(req.Priority),
		Status:      task.Status(req.Status),
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	t, err := s.engine.Get(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateRequest distinguishes "parent_id absent" from "parent_id: null":
// the raw message is nil when the key is missing and the literal null when
// the caller detaches the task to root.
type updateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *int            `json:"priority"`
	ParentID    json.RawMessage `json:"parent_id"`
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	p := task.Patch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Priority != nil {
		prio := task.Priority(*req.Priority)
		p.Priority = &prio
	}
	if req.ParentID != nil {
		p.SetParent = true
		if !bytes.Equal(bytes.TrimSpace(req.ParentID), []byte("null")) {
			var parent string
			if err := json.Unmarshal(req.ParentID, &parent); err != nil {
				writeError(w, http.StatusBadRequest, "parent_id must be a string or null")
				return
			}
			p.ParentID = &parent
		}
	}

	t, err := s.engine.Update(r.Context(), owner, mux.Vars(r)["id"], p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	t, err := s.engine.Complete(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskReopen(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	t, err := s.engine.Reopen(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	if err := s.engine.Delete(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.engine.List(r.Context(), owner, *q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID")
		return
	}
	st, err := s.engine.Stats(r.Context(), owner)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// parseListQuery turns the listing query params into a task.Query,
// rejecting shapes the engine documents as preconditions: conflicting
// root/subtask toggles, inverted date ranges, unknown enum values.
func parseListQuery(r *http.Request) (*task.Query, error) {
	v := r.URL.Query()
	var q task.Query

	if s := v.Get("status"); s != "" {
		st := task.Status(s)
		if !st.Valid() {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		q.Filter.Status = &st
	}
	if s := v.Get("priority"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || !task.Priority(n).Valid() {
			return nil, fmt.Errorf("invalid priority %q", s)
		}
		prio := task.Priority(n)
		q.Filter.Priority = &prio
	}
	q.Filter.Search = v.Get("search")
	if s := v.Get("parent_id"); s != "" {
		q.Filter.ParentID = &s
	}

	var err error
	if q.Filter.RootOnly, err = parseBool(v.Get("root_only")); err != nil {
		return nil, err
	}
	if q.Filter.SubtasksOnly, err = parseBool(v.Get("subtasks_only")); err != nil {
		return nil, err
	}
	if q.Filter.RootOnly && q.Filter.SubtasksOnly {
		return nil, fmt.Errorf("root_only and subtasks_only are mutually exclusive")
	}

	if q.Filter.CreatedAfter, err = task.ParseTime(v.Get("created_after")); err != nil {
		return nil, err
	}
	if q.Filter.CreatedBefore, err = task.ParseTime(v.Get("created_before")); err != nil {
		return nil, err
	}
	if q.Filter.CompletedAfter, err = task.ParseTime(v.Get("completed_after")); err != nil {
		return nil, err
	}
	if q.Filter.CompletedBefore, err = task.ParseTime(v.Get("completed_before")); err != nil {
		return nil, err
	}
	if err := q.Filter.CheckRanges(); err != nil {
		return nil, err
	}

	q.Sort = task.ParseSort(v.Get("sort"))
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Size, _ = strconv.Atoi(v.Get("page_size"))
	return &q, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}
