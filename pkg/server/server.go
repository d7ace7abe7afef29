// Package server exposes the pipeline over HTTP: source and item
// management, moderation actions, pipeline triggers, and the
// social-distribution handoff endpoints.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hudhud-news/hudhud/internal/store"
	"github.com/hudhud-news/hudhud/pkg/automation"
	"github.com/hudhud-news/hudhud/pkg/feed"
	"github.com/hudhud-news/hudhud/pkg/filter"
	"github.com/hudhud-news/hudhud/pkg/scrape"
)

// Server provides the HTTP API.
type Server struct {
	store    store.Store
	engine   *filter.Engine
	fetcher  *feed.Fetcher
	scraper  *scrape.Scraper
	pipeline *automation.Pipeline
	port     int
	logger   *zap.Logger
}

// New creates a new HTTP server.
func New(st store.Store, engine *filter.Engine, fetcher *feed.Fetcher, scraper *scrape.Scraper, pipeline *automation.Pipeline, port int, logger *zap.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    st,
		engine:   engine,
		fetcher:  fetcher,
		scraper:  scraper,
		pipeline: pipeline,
		port:     port,
		logger:   logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/v1/sources", s.handleListSources)
	mux.HandleFunc("POST /api/v1/sources", s.handleCreateSource)
	mux.HandleFunc("POST /api/v1/sources/{id}/fetch", s.handleFetchSource)

	mux.HandleFunc("GET /api/v1/items", s.handleListItems)
	mux.HandleFunc("GET /api/v1/items/stats", s.handleItemStats)
	mux.HandleFunc("POST /api/v1/items/{id}/approve", s.handleApproveItem)
	mux.HandleFunc("POST /api/v1/items/{id}/reject", s.handleRejectItem)

	mux.HandleFunc("POST /api/v1/fetch", s.handleFetchAll)
	mux.HandleFunc("POST /api/v1/scrape", s.handleScrape)
	mux.HandleFunc("GET /api/v1/filter/stats", s.handleFilterStats)

	mux.HandleFunc("GET /api/v1/queue", s.handleQueue)
	mux.HandleFunc("POST /api/v1/queue/{id}/retry", s.handleRetry)

	mux.HandleFunc("GET /api/v1/social/pending", s.handleSocialPending)
	mux.HandleFunc("POST /api/v1/social/{id}/posted", s.handleSocialPosted)
	mux.HandleFunc("POST /api/v1/social/{id}/failed", s.handleSocialFailed)

	mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleNotificationRead)

	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	sources, err := s.store.ListSources(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sources, "count": len(sources)})
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var src store.FeedSource
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode source: %w", err))
		return
	}
	if src.Name == "" || src.FeedURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and feed_url are required"))
		return
	}
	if err := s.store.CreateSource(r.Context(), &src); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Server) handleFetchSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := s.fetcher.FetchFeed(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	opts := store.ItemListOpts{Limit: 50}
	q := r.URL.Query()
	if st := q.Get("status"); st != "" {
		opts.Status = store.ItemStatus(st)
	}
	if src := q.Get("source"); src != "" {
		if id, err := strconv.ParseInt(src, 10, 64); err == nil {
			opts.SourceID = id
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 200 {
			opts.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	items, err := s.store.ListItems(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items, "count": len(items)})
}

func (s *Server) handleItemStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountItemsByStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleApproveItem approves an item and starts its automation run.
// The pipeline outcome rides along in the response; a pipeline that
// cannot start does not undo the approval.
func (s *Server) handleApproveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.UpdateItemStatus(r.Context(), id, store.ItemApproved); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	resp := map[string]any{"id": id, "status": store.ItemApproved}
	entry, err := s.pipeline.Start(r.Context(), id)
	switch {
	case err == nil:
		resp["queue_entry"] = entry
	case errors.Is(err, store.ErrAlreadyQueued):
		resp["queue_error"] = "already queued"
	default:
		s.logger.Warn("automation start after approval", zap.Int64("item_id", id), zap.Error(err))
		resp["queue_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRejectItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.UpdateItemStatus(r.Context(), id, store.ItemRejected); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": store.ItemRejected})
}

func (s *Server) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.fetcher.FetchAllActiveFeeds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	batch := 10
	if v := r.URL.Query().Get("batch"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			batch = n
		}
	}
	result, err := s.scraper.ProcessScrapeQueue(r.Context(), batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFilterStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	opts := store.QueueListOpts{Limit: 50}
	q := r.URL.Query()
	if st := q.Get("status"); st != "" {
		opts.Status = store.AutomationStatus(st)
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 200 {
			opts.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	entries, total, err := s.pipeline.Queue(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries, "count": len(entries), "total": total})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := s.pipeline.Retry(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, automation.ErrNotFailed):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSocialPending(w http.ResponseWriter, r *http.Request) {
	posts, err := s.pipeline.PendingSocialPosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": posts, "count": len(posts)})
}

func (s *Server) handleSocialPosted(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.pipeline.MarkSocialPosted(r.Context(), id, body.PostID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, store.ErrInvalidTransition):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": store.AutoCompleted})
}

func (s *Server) handleSocialFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.pipeline.MarkSocialFailed(r.Context(), id, body.Error); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, store.ErrInvalidTransition):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := s.store.ListNotifications(r.Context(), unreadOnly, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": notifications, "count": len(notifications)})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.MarkNotificationRead(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
