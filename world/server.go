package world

import (
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/warren/checkpoint"
	"github.com/chazu/warren/interp"
)

// Server is the world's operator RPC surface: Connect unary handlers over
// plain HTTP with a JSON codec.
type Server struct {
	worker   *Worker
	service  *Service
	sessions *SessionStore
	mux      *http.ServeMux

	stopSweeper func()
}

// NewServer wraps a running interpreter in its RPC surface. store may be
// nil to disable checkpoint procedures.
func NewServer(i *interp.Interpreter, stepBudget int, store *checkpoint.Store) *Server {
	worker := NewWorker(i, stepBudget)
	sessions := NewSessionStore()
	service := NewService(worker, store, sessions)

	s := &Server{
		worker:   worker,
		service:  service,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}
	s.stopSweeper = sessions.StartSweeper(time.Minute)

	codec := connect.WithCodec(jsonCodec{})
	s.mux.Handle(ProcEval, connect.NewUnaryHandler(ProcEval, service.Eval, codec))
	s.mux.Handle(ProcSpawn, connect.NewUnaryHandler(ProcSpawn, service.Spawn, codec))
	s.mux.Handle(ProcKill, connect.NewUnaryHandler(ProcKill, service.Kill, codec))
	s.mux.Handle(ProcThreads, connect.NewUnaryHandler(ProcThreads, service.Threads, codec))
	s.mux.Handle(ProcSnapshot, connect.NewUnaryHandler(ProcSnapshot, service.Snapshot, codec))
	s.mux.Handle(ProcRestore, connect.NewUnaryHandler(ProcRestore, service.Restore, codec))
	s.mux.Handle(ProcRegistryNames, connect.NewUnaryHandler(ProcRegistryNames, service.RegistryNames, codec))
	s.mux.Handle(ProcOpenSession, connect.NewUnaryHandler(ProcOpenSession, service.OpenSession, codec))
	return s
}

// Handler returns the HTTP handler serving the Connect procedures.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Worker returns the interpreter worker, shared with the listener.
func (s *Server) Worker() *Worker {
	return s.worker
}

// ListenAndServe serves the RPC surface on addr, blocking.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Stop shuts down the worker and background sweeps.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
