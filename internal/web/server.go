// Package web provides an HTTP status server for the mask-gate daemon.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/status"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	pageEventLimit    = 10
)

// EventSource lists recently confirmed transitions, newest first.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]logic.Event, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	events     EventSource
}

// New creates a Server that reads state from the given tracker. events may be
// nil, which disables /events.json and the history table. metrics, if non-nil,
// is mounted at /metrics.
func New(addr string, tracker *status.Tracker, events EventSource, metrics http.Handler) *Server {
	s := &Server{tracker: tracker, events: events}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/events.json", s.handleEvents)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's request handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()

	var recent []logic.Event
	if s.events != nil {
		var err error
		recent, err = s.events.Recent(r.Context(), pageEventLimit)
		if err != nil {
			slog.Warn("load recent events", "err", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, recent); err != nil {
		slog.Warn("render status page", "err", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// EventsJSON is the /events.json envelope.
type EventsJSON struct {
	Events []EventJSON `json:"events"`
}

// EventJSON is one confirmed transition.
type EventJSON struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Event      string  `json:"event"`
	State      string  `json:"state"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.NotFound(w, r)
		return
	}

	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("load events", "err", err)
		http.Error(w, "failed to load events", http.StatusInternalServerError)
		return
	}

	out := EventsJSON{Events: make([]EventJSON, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, EventJSON{
			ID:         e.ID,
			Timestamp:  e.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(e.Type),
			State:      string(e.State),
			Label:      e.Label,
			Confidence: e.Confidence,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
