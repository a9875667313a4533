// Package web exposes the JSON command API. It is the stand-in for the
// chat-platform command layer: each endpoint resolves the acting
// identity from the X-Actor header and forwards the request to the
// calendar store, which owns all validation and authorization.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gracecal/internal/config"
	"gracecal/internal/ics"
	"gracecal/internal/lifecycle"
	appLog "gracecal/internal/log"
	"gracecal/internal/model"
	"gracecal/internal/store"
)

// Server provides the HTTP command API.
type Server struct {
	cfg   *config.Config
	store *store.Store
	auth  lifecycle.Authorizer
	loc   *time.Location
	mux   *http.ServeMux
}

// NewServer constructs a Server around the store.
func NewServer(cfg *config.Config, st *store.Store, auth lifecycle.Authorizer, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{cfg: cfg, store: st, auth: auth, loc: loc, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the request handler, wrapped in basic auth when
// credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("GET /api/events/{event}", s.handleEventDetail)
	s.mux.HandleFunc("POST /api/events/{event}/tasks", s.handleAddTask)
	s.mux.HandleFunc("POST /api/events/{event}/tasks/{task}/progress", s.handleProgress)
	s.mux.HandleFunc("POST /api/events/{event}/tasks/{task}/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /api/events/{event}/tasks/{task}/review", s.handleReview)
	s.mux.HandleFunc("GET /api/areas/{area}/tasks", s.handleAreaTasks)
	s.mux.HandleFunc("GET /calendar.ics", s.handleFeed)
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards every endpoint except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gracecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventSummary is the list-view DTO.
type eventSummary struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TaskCount int    `json:"task_count"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.store.ListEvents()
	out := make([]eventSummary, 0, len(events))
	for _, ev := range events {
		out = append(out, eventSummary{
			Index:     ev.Index,
			Title:     ev.Title,
			StartDate: ev.StartDate.String(),
			EndDate:   ev.EndDate.String(),
			TaskCount: len(ev.Tasks),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addEventRequest struct {
	Title       string `json:"title"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireManager(w, r, "only managers may add events")
	if !ok {
		return
	}
	var req addEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := model.NewEvent(req.Title, req.StartDate, req.EndDate, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	index, err := s.store.AddEvent(ev)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	appLog.Info("event added", "index", index, "title", ev.Title, "actor", actor)
	writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	eventIndex, ok := pathIndex(w, r, "event")
	if !ok {
		return
	}
	ev, err := s.store.EventByIndex(eventIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type addTaskRequest struct {
	Title        string   `json:"title"`
	Area         string   `json:"area"`
	Deadline     string   `json:"deadline"`
	Responsibles []string `json:"responsibles"`
	Tools        []string `json:"tools"`
	Details      string   `json:"details"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireManager(w, r, "only managers may add tasks")
	if !ok {
		return
	}
	eventIndex, ok := pathIndex(w, r, "event")
	if !ok {
		return
	}
	var req addTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := model.NewTask(req.Area, req.Title, req.Deadline, req.Responsibles, req.Tools, req.Details)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	index, err := s.store.AddTask(eventIndex, task)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	appLog.Info("task added", "event", eventIndex, "task", index, "title", task.Title, "actor", actor)
	writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

type progressRequest struct {
	Percent int `json:"percent"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	s.handleTransition(w, r, &req, func(actor string) lifecycle.Transition {
		return lifecycle.UpdateProgress{Actor: actor, Percent: req.Percent}
	})
}

type submitRequest struct {
	Link     string `json:"link"`
	Reviewer string `json:"reviewer"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	s.handleTransition(w, r, &req, func(actor string) lifecycle.Transition {
		return lifecycle.Submit{Actor: actor, Link: req.Link, Reviewer: req.Reviewer}
	})
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	s.handleTransition(w, r, &req, func(actor string) lifecycle.Transition {
		return lifecycle.Review{Actor: actor, Approve: req.Approve}
	})
}

// handleTransition factors the shared shape of the three lifecycle
// endpoints: decode indices and body, build the transition for the
// acting identity, apply through the store, return the updated task.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, body any, build func(actor string) lifecycle.Transition) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "X-Actor header is required")
		return
	}
	eventIndex, ok := pathIndex(w, r, "event")
	if !ok {
		return
	}
	taskIndex, ok := pathIndex(w, r, "task")
	if !ok {
		return
	}
	if !decodeBody(w, r, body) {
		return
	}
	task, err := s.store.ApplyTransition(eventIndex, taskIndex, build(actor), s.auth)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// areaTaskDTO flattens an (event, task) pair for listings.
type areaTaskDTO struct {
	EventIndex   int      `json:"event_index"`
	EventTitle   string   `json:"event_title"`
	TaskIndex    int      `json:"task_index"`
	Title        string   `json:"title"`
	Deadline     string   `json:"deadline"`
	Progress     int      `json:"progress"`
	State        string   `json:"state"`
	Responsibles []string `json:"responsibles"`
}

func (s *Server) handleAreaTasks(w http.ResponseWriter, r *http.Request) {
	area, err := model.ParseArea(r.PathValue("area"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	pairs := s.store.TasksForArea(area)
	out := make([]areaTaskDTO, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, areaTaskDTO{
			EventIndex:   p.Event.Index,
			EventTitle:   p.Event.Title,
			TaskIndex:    p.Task.Index,
			Title:        p.Task.Title,
			Deadline:     p.Task.Deadline.String(),
			Progress:     p.Task.Progress,
			State:        string(p.Task.State),
			Responsibles: p.Task.Responsibles,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	feed := ics.Feed(s.store.Snapshot(), s.loc, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(feed))
}

// requireManager resolves the acting identity and rejects non-managers.
// Creation endpoints gate here; lifecycle endpoints leave authorization
// to the state machine so its error ordering holds.
func (s *Server) requireManager(w http.ResponseWriter, r *http.Request, reason string) (string, bool) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "X-Actor header is required")
		return "", false
	}
	if !s.auth.IsManager(actor) {
		writeDomainError(w, &model.AuthorizationError{Actor: actor, Reason: reason})
		return "", false
	}
	return actor, true
}

func pathIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid "+name+" index")
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *model.ValidationError
		authz      *model.AuthorizationError
		notFound   *model.NotFoundError
		badState   *model.InvalidStateError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &authz):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &badState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("internal error on command API", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
