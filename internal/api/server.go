// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/store"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/trigger"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// Refresher rebuilds the compiled trigger cache. Trigger mutations call it
// so the running match engine picks up changes without a restart.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Server exposes the trigger registry, target registry and match feed over
// HTTP for operator tooling.
type Server struct {
	triggers types.TriggerStore
	targets  types.TargetStore
	matches  types.MatchStore
	cache    Refresher
	mux      *http.ServeMux
}

// NewServer creates a Server over the given stores. cache may be nil when no
// live match engine needs notifying (e.g. offline tooling).
func NewServer(triggers types.TriggerStore, targets types.TargetStore, matches types.MatchStore, cache Refresher) *Server {
	s := &Server{
		triggers: triggers,
		targets:  targets,
		matches:  matches,
		cache:    cache,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /triggers", s.handleListTriggers)
	s.mux.HandleFunc("POST /triggers", s.handleCreateTrigger)
	s.mux.HandleFunc("GET /triggers/{id}", s.handleGetTrigger)
	s.mux.HandleFunc("PUT /triggers/{id}", s.handleUpdateTrigger)
	s.mux.HandleFunc("DELETE /triggers/{id}", s.handleDeleteTrigger)
	s.mux.HandleFunc("GET /targets", s.handleListTargets)
	s.mux.HandleFunc("POST /targets", s.handleUpsertTarget)
	s.mux.HandleFunc("GET /feed", s.handleFeed)
	return s
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ServeHTTP tags every request with an id and logs it, then delegates to the
// internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.mux.ServeHTTP(rec, r)

	slog.Info("http request",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerRequest is the JSON body for POST /triggers and PUT /triggers/{id}.
// On update, nil fields leave the stored values untouched.
type triggerRequest struct {
	Name          *string `json:"name"`
	Text          *string `json:"text"`
	Flags         *int64  `json:"flags"`
	ScopeTargetID *int64  `json:"scope_target_id"`
	Enabled       *bool   `json:"enabled"`
}

func (s *Server) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	triggers, err := s.triggers.ListTriggers(r.Context())
	if err != nil {
		slog.Error("list triggers failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if triggers == nil {
		triggers = []*types.Trigger{}
	}
	writeJSON(w, http.StatusOK, triggers)
}

func (s *Server) handleCreateTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Text == nil || *req.Text == "" {
		http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
		return
	}

	t := &types.Trigger{
		Name:          *req.Text,
		RawText:       *req.Text,
		Pattern:       trigger.Derive(*req.Text),
		ScopeTargetID: req.ScopeTargetID,
		Enabled:       true,
	}
	if req.Name != nil && *req.Name != "" {
		t.Name = *req.Name
	}
	if req.Flags != nil {
		t.Flags = *req.Flags
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}

	created, err := s.triggers.CreateTrigger(r.Context(), t)
	if err != nil {
		slog.Error("create trigger failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	s.refreshCache(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.triggers.GetTrigger(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"trigger not found"}`, http.StatusNotFound)
			return
		}
		slog.Error("get trigger failed", "id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	t, err := s.triggers.GetTrigger(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"trigger not found"}`, http.StatusNotFound)
			return
		}
		slog.Error("get trigger failed", "id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Text != nil && *req.Text != "" {
		t.RawText = *req.Text
		t.Pattern = trigger.Derive(*req.Text)
	}
	if req.Name != nil && *req.Name != "" {
		t.Name = *req.Name
	}
	if req.Flags != nil {
		t.Flags = *req.Flags
	}
	if req.ScopeTargetID != nil {
		t.ScopeTargetID = req.ScopeTargetID
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}

	updated, err := s.triggers.UpdateTrigger(r.Context(), t)
	if err != nil {
		slog.Error("update trigger failed", "id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	s.refreshCache(r.Context())
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.triggers.DeleteTrigger(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"trigger not found"}`, http.StatusNotFound)
			return
		}
		slog.Error("delete trigger failed", "id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	s.refreshCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.targets.ListTargets(r.Context())
	if err != nil {
		slog.Error("list targets failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if targets == nil {
		targets = []*types.Target{}
	}
	writeJSON(w, http.StatusOK, targets)
}

// targetRequest is the JSON body for POST /targets. Empty handle/title/kind
// leave the stored values untouched on merge.
type targetRequest struct {
	ExternalID int64  `json:"external_id"`
	Handle     string `json:"handle"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
}

func (s *Server) handleUpsertTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.ExternalID == 0 {
		http.Error(w, `{"error":"external_id is required"}`, http.StatusBadRequest)
		return
	}

	target, err := s.targets.UpsertTarget(r.Context(), req.ExternalID, req.Handle, req.Title, types.TargetKind(req.Kind))
	if err != nil {
		slog.Error("upsert target failed", "external_id", req.ExternalID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// feedItem is a match record joined with its source target, newest first.
type feedItem struct {
	*types.MatchRecord
	SourceTitle  string `json:"source_title,omitempty"`
	SourceHandle string `json:"source_handle,omitempty"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.matches.ListRecentMatchRecords(r.Context(), limit)
	if err != nil {
		slog.Error("list match records failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	items := make([]feedItem, 0, len(records))
	titles := map[int64]*types.Target{}
	for _, rec := range records {
		item := feedItem{MatchRecord: rec}
		if rec.TargetID != nil {
			target, ok := titles[*rec.TargetID]
			if !ok {
				target, err = s.targets.GetTargetByID(r.Context(), *rec.TargetID)
				if err != nil {
					slog.Warn("load target for feed failed", "target_id", *rec.TargetID, "error", err)
				}
				titles[*rec.TargetID] = target
			}
			if target != nil {
				item.SourceTitle = target.Title
				item.SourceHandle = target.Handle
			}
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) refreshCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Refresh(ctx); err != nil {
		slog.Error("cache refresh after trigger mutation failed", "error", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
