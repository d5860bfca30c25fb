// Package http serves a run over HTTP: point queries, run properties, metrics, and a
// server-sent event stream of step events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/logging"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Model is the read side of a run.
type Model interface {
	BigValueAt(ctx context.Context, coord []int) (*big.Int, error)
	Properties() domain.Properties
}

// Server answers queries against a Model. Models are not safe for concurrent use, so every
// access goes through Lock, which a stepping goroutine must share.
type Server struct {
	Model   Model
	Lock    sync.Locker
	Streams *StreamManager
	Metrics http.Handler
	Logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLock shares l with whoever steps the model.
func WithLock(l sync.Locker) Option {
	return func(s *Server) {
		s.Lock = l
	}
}

// WithMetricsHandler replaces the default registry handler served at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewServer creates a server for model.
func NewServer(model Model, opts ...Option) *Server {
	s := &Server{
		Model:   model,
		Lock:    &sync.Mutex{},
		Streams: NewStreamManager(),
		Metrics: promhttp.Handler(),
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.GetHealth)
	r.Get("/properties", s.GetProperties)
	r.Get("/value", s.GetValue)
	r.Get("/events", s.SubscribeEvents)
	r.Method(http.MethodGet, "/metrics", s.Metrics)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetProperties handles GET /properties.
func (s *Server) GetProperties(w http.ResponseWriter, r *http.Request) {
	s.Lock.Lock()
	props := s.Model.Properties()
	s.Lock.Unlock()
	s.writeJSON(w, props)
}

// ValueResponse is the body of GET /value.
type ValueResponse struct {
	Coord []int    `json:"coord"`
	Value *big.Int `json:"value"`
}

// GetValue handles GET /value?coord=x,y,z.
func (s *Server) GetValue(w http.ResponseWriter, r *http.Request) {
	coord, err := ParseCoord(r.URL.Query().Get("coord"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Lock.Lock()
	v, err := s.Model.BigValueAt(r.Context(), coord)
	s.Lock.Unlock()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDimension) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("value error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("value lookup failed", "coord", coord, "error", err)
		return
	}
	s.writeJSON(w, ValueResponse{Coord: coord, Value: v})
}

// ParseCoord parses a comma separated coordinate such as "3,-1,0".
func ParseCoord(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("missing coordinate")
	}
	parts := strings.Split(raw, ",")
	coord := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate component %q", p)
		}
		coord[i] = n
	}
	return coord, nil
}

// Hooks returns lifecycle hooks that broadcast step and growth events to /events subscribers.
func (s *Server) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) { s.broadcast(e) },
		OnGrow:    func(_ context.Context, e *domain.GrowEvent) { s.broadcast(e) },
	}
}

func (s *Server) broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("event encode failed", "error", err)
		return
	}
	s.Streams.Broadcast(string(data))
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{subscribers: make(map[chan string]struct{})}
}

// Subscribe registers a new subscriber. The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}
	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every subscriber. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()
	s.Logger.Debug("SSE client connected", "remote", r.RemoteAddr)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE client disconnected", "remote", r.RemoteAddr)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
