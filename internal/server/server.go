// Package server exposes counter scopes over websockets. Each connection owns
// one scope: a dropped connection keeps it for a grace period so the client can
// resume, and an explicit quit disposes of it.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Options configures a Server.
type Options struct {
	Store *phlux.Store
	Codec *phlux.Codec
	Repo  persist.Repository

	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer

	// ResumeGrace is how long a disconnected scope stays in memory.
	ResumeGrace time.Duration

	Logger *logrus.Entry
}

// Server owns the websocket sessions and their scopes.
type Server struct {
	store    *phlux.Store
	codec    *phlux.Codec
	repo     persist.Repository
	gatherer prometheus.Gatherer
	grace    time.Duration
	logger   *logrus.Entry

	upgrader websocket.Upgrader
	server   *http.Server

	mu           sync.Mutex
	shuttingDown bool
	attached     map[phlux.Key]int
	pending      map[phlux.Key]*expiry
	sessions     map[*session]struct{}
	wg           sync.WaitGroup
}

// New creates a Server. Store, Codec and Repo are required.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Server{
		store:    opts.Store,
		codec:    opts.Codec,
		repo:     opts.Repo,
		gatherer: opts.Gatherer,
		grace:    opts.ResumeGrace,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		attached: make(map[phlux.Key]int),
		pending:  make(map[phlux.Key]*expiry),
		sessions: make(map[*session]struct{}),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", s.handleSession)
	mux.HandleFunc("GET /api/scopes", s.handleListScopes)
	mux.HandleFunc("GET /api/scopes/{key}", s.handleGetScope)
	mux.HandleFunc("GET /api/saved", s.handleListSaved)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve accepts connections on l until Shutdown is called. Cleartext
// HTTP/2 is accepted next to HTTP/1.1; websocket upgrades use the latter.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.WithField("addr", l.Addr().String()).Info("Server listening")
	err := srv.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting connections and closes every session. Open
// sessions are treated as dropped: their scopes are saved so clients can
// resume against the next server. Scopes are left in the repository.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.mu.Lock()
	s.shuttingDown = true
	srv := s.server
	for sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()
	return err
}

type scopeView struct {
	Key   phlux.Key      `json:"key"`
	State phlux.State    `json:"state"`
	Tasks []phlux.TaskID `json:"tasks"`
}

func (s *Server) handleListScopes(w http.ResponseWriter, r *http.Request) {
	views := make([]scopeView, 0, s.store.Len())
	for _, key := range s.store.Keys() {
		if rec, ok := s.store.Get(key); ok {
			views = append(views, scopeView{Key: key, State: rec.State(), Tasks: rec.TaskIDs()})
		}
	}
	writeJSON(w, views)
}

func (s *Server) handleGetScope(w http.ResponseWriter, r *http.Request) {
	key := phlux.Key(r.PathValue("key"))
	rec, ok := s.store.Get(key)
	if !ok {
		http.Error(w, "scope not found", http.StatusNotFound)
		return
	}
	writeJSON(w, scopeView{Key: key, State: rec.State(), Tasks: rec.TaskIDs()})
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.repo.(persist.Lister)
	if !ok {
		http.Error(w, "repository cannot list saved scopes", http.StatusNotImplemented)
		return
	}
	keys, err := lister.Keys(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list saved scopes")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []phlux.Key{}
	}
	writeJSON(w, keys)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
