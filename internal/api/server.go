// Package api is the HTTP surface over the task engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Waterbottle88/todolist-api/pkg/engine"
	"github.com/Waterbottle88/todolist-api/pkg/task"
)

// TaskEngine is what the handlers need from the engine. *engine.Engine
// satisfies it.
type TaskEngine interface {
	Create(ctx context.Context, ownerID string, in engine.CreateInput) (*task.Task, error)
	Get(ctx context.Context, ownerID, id string) (*task.Task, error)
	Update(ctx context.Context, ownerID, id string, p task.Patch) (*task.Task, error)
	Complete(ctx context.Context, ownerID, id string) (*task.Task, error)
	Reopen(ctx context.Context, ownerID, id string) (*task.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string, q task.Query) (*task.Page, error)
	Stats(ctx context.Context, ownerID string) (*engine.Stats, error)
}

// Server is the HTTP API server.
type Server struct {
	engine TaskEngine
	router *mux.Router
}

// New creates a Server with all routes registered.
func New(eng TaskEngine) *Server {
	s := &Server{engine: eng, router: mux.NewRouter()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/tasks", s.handleTaskList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tasks", s.handleTaskCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/tasks/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tasks/{id}", s.handleTaskGet).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tasks/{id}", s.handleTaskUpdate).Methods(http.MethodPatch)
	s.router.HandleFunc("/api/tasks/{id}", s.handleTaskDelete).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/tasks/{id}/complete", s.handleTaskComplete).Methods(http.MethodPost)
	s.router.HandleFunc("/api/tasks/{id}/reopen", s.handleTaskReopen).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownerID extracts the acting user. Token verification happens upstream;
// the gateway forwards the authenticated principal in this header.
func ownerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps the engine's failure kinds onto status codes.
// Anything outside the taxonomy is an infrastructure fault: logged, and
// reported as a generic 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, task.ErrHierarchy):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, task.ErrCompletionBlocked), errors.Is(err, task.ErrDeletionBlocked):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
