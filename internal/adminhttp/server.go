// Package adminhttp is the read-only operator surface layered above the
// frontend API (spec §6.1): liveness, a synchronous key lookup, and a
// live tail of a store's event topic. It is debug/ops tooling, never a
// replacement for pkg/frontend.
//
// Grounded on internal/http/server.go: a chi router built
// in createRouter, a *http.Server started in a goroutine, a
// defaultShutdownTimeout-bounded graceful Stop, and writeJSON/Response
// for the envelope shape.
package adminhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nimbuskv/broker/pkg/bus"
	"github.com/nimbuskv/broker/pkg/data"
	"github.com/nimbuskv/broker/pkg/frontend"
)

const defaultShutdownTimeout = 5 * time.Second

// storeHandle is what RegisterStore binds a store name to: a frontend
// for synchronous reads, plus the bus/topic pair needed to tail events.
type storeHandle struct {
	fe         *frontend.Frontend
	bus        bus.Bus
	eventTopic string
}

// Server is the admin HTTP surface for one or more registered stores.
type Server struct {
	addr              string
	readHeaderTimeout time.Duration
	log               *slog.Logger

	stores     map[string]storeHandle
	httpServer *http.Server
}

// NewServer builds a Server listening on addr (e.g. ":8080").
func NewServer(addr string, readHeaderTimeout time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr:              addr,
		readHeaderTimeout: readHeaderTimeout,
		log:               log,
		stores:            make(map[string]storeHandle),
	}
}

// RegisterStore exposes a store's frontend and event topic under
// /stores/{name}/...
func (s *Server) RegisterStore(name string, fe *frontend.Frontend, b bus.Bus, eventTopic string) {
	s.stores[name] = storeHandle{fe: fe, bus: b, eventTopic: eventTopic}
}

func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/stores/{store}/keys/{key}", s.handleGetKey)
	r.Get("/stores/{store}/events", s.handleEventsTail)
	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("admin http server error", "error", err)
		}
	}()
	s.log.Info("admin http server started", "addr", s.addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin http shutdown: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("failed to encode admin response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, okResponse("alive"))
}

func (s *Server) lookupStore(w http.ResponseWriter, name string) (storeHandle, bool) {
	h, ok := s.stores[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errResponse("no_such_store"))
		return storeHandle{}, false
	}
	return h, true
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupStore(w, chi.URLParam(r, "store"))
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	res := h.fe.Get(r.Context(), data.String(key))
	if !res.IsOk() {
		s.writeJSON(w, http.StatusNotFound, errResponse(string(res.Err.Kind)))
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse(toJSON(res.Value)))
}

// handleEventsTail streams the store's event topic as JSON lines until
// the client disconnects, for operators watching replication live.
func (s *Server) handleEventsTail(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupStore(w, chi.URLParam(r, "store"))
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	ch := h.bus.Subscribe(r.Context(), h.eventTopic)
	enc := json.NewEncoder(w)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := enc.Encode(toJSON(ev)); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
