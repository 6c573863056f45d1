package world

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/warren/checkpoint"
	"github.com/chazu/warren/interp"
)

// Procedure paths for the world service.
const (
	ProcEval          = "/warren.v1.WorldService/Eval"
	ProcSpawn         = "/warren.v1.WorldService/Spawn"
	ProcKill          = "/warren.v1.WorldService/Kill"
	ProcThreads       = "/warren.v1.WorldService/Threads"
	ProcSnapshot      = "/warren.v1.WorldService/Snapshot"
	ProcRestore       = "/warren.v1.WorldService/Restore"
	ProcRegistryNames = "/warren.v1.WorldService/RegistryNames"
	ProcOpenSession   = "/warren.v1.WorldService/OpenSession"
)

// EvalRequest submits a parsed program (ESTree JSON) for execution.
type EvalRequest struct {
	Source   string `json:"source"`
	MaxSteps int    `json:"maxSteps,omitempty"`
	Session  string `json:"session,omitempty"`
}

type EvalResponse struct {
	Success      bool   `json:"success"`
	Value        string `json:"value,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SpawnRequest starts a thread running a registry-named function.
type SpawnRequest struct {
	Registry string `json:"registry"`
}

type SpawnResponse struct {
	ThreadID int64 `json:"threadId"`
}

type KillRequest struct {
	ThreadID int64 `json:"threadId"`
}

type KillResponse struct {
	Killed bool `json:"killed"`
}

type ThreadsRequest struct{}

type ThreadInfo struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type ThreadsResponse struct {
	Threads []ThreadInfo `json:"threads"`
}

type SnapshotRequest struct{}

type SnapshotResponse struct {
	CheckpointID int64 `json:"checkpointId"`
	Records      int   `json:"records"`
}

type RestoreRequest struct {
	CheckpointID int64 `json:"checkpointId,omitempty"` // 0 means latest
}

type RestoreResponse struct {
	CheckpointID int64 `json:"checkpointId"`
}

type RegistryNamesRequest struct{}

type RegistryNamesResponse struct {
	Names []string `json:"names"`
}

type OpenSessionRequest struct{}

type OpenSessionResponse struct {
	Session string `json:"session"`
}

// Service implements the world's operator API over the worker.
type Service struct {
	worker   *Worker
	store    *checkpoint.Store
	sessions *SessionStore
}

// NewService creates a Service. store may be nil when checkpointing is
// disabled.
func NewService(worker *Worker, store *checkpoint.Store, sessions *SessionStore) *Service {
	return &Service{worker: worker, store: store, sessions: sessions}
}

// Eval parses and runs a program to completion (or its step budget).
func (s *Service) Eval(ctx context.Context, req *connect.Request[EvalRequest]) (*connect.Response[EvalResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if req.Msg.Session != "" {
		s.sessions.Touch(req.Msg.Session)
	}
	maxSteps := req.Msg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10_000_000
	}
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		v, evalErr := i.Eval(req.Msg.Source, maxSteps)
		if evalErr != nil {
			return &EvalResponse{Success: false, ErrorMessage: evalErr.Error()}
		}
		return &EvalResponse{Success: true, Value: string(interp.ToString(v))}
	})
	if err != nil {
		return connect.NewResponse(&EvalResponse{Success: false, ErrorMessage: err.Error()}), nil
	}
	return connect.NewResponse(result.(*EvalResponse)), nil
}

// Spawn starts a thread running a function bound in the registry.
func (s *Service) Spawn(ctx context.Context, req *connect.Request[SpawnRequest]) (*connect.Response[SpawnResponse], error) {
	if req.Msg.Registry == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("registry name is required"))
	}
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		fn := i.Registry().Lookup(req.Msg.Registry)
		if fn == nil {
			return connect.NewError(connect.CodeNotFound, fmt.Errorf("registry name %q not bound", req.Msg.Registry))
		}
		t, uerr := i.SpawnFunction(fn, nil)
		if uerr != nil {
			return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s", uerr.Error()))
		}
		return &SpawnResponse{ThreadID: t.ID()}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if cerr, ok := result.(*connect.Error); ok {
		return nil, cerr
	}
	return connect.NewResponse(result.(*SpawnResponse)), nil
}

// Kill cancels a thread.
func (s *Service) Kill(ctx context.Context, req *connect.Request[KillRequest]) (*connect.Response[KillResponse], error) {
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		return &KillResponse{Killed: i.Kill(req.Msg.ThreadID)}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*KillResponse)), nil
}

// Threads lists live threads.
func (s *Service) Threads(ctx context.Context, req *connect.Request[ThreadsRequest]) (*connect.Response[ThreadsResponse], error) {
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		resp := &ThreadsResponse{}
		for _, t := range i.Scheduler().Threads() {
			resp.Threads = append(resp.Threads, ThreadInfo{ID: t.ID(), Status: string(t.Status())})
		}
		return resp
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*ThreadsResponse)), nil
}

// Snapshot takes a checkpoint and stores it.
func (s *Service) Snapshot(ctx context.Context, req *connect.Request[SnapshotRequest]) (*connect.Response[SnapshotResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("checkpointing is disabled"))
	}
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		return i.Snapshot()
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	records := result.([]interp.Record)
	id, err := s.store.Put(records)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&SnapshotResponse{CheckpointID: id, Records: len(records)}), nil
}

// Restore rehydrates a stored checkpoint into the running world.
func (s *Service) Restore(ctx context.Context, req *connect.Request[RestoreRequest]) (*connect.Response[RestoreResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("checkpointing is disabled"))
	}
	var (
		id      = req.Msg.CheckpointID
		records []interp.Record
		err     error
	)
	if id == 0 {
		id, records, err = s.store.Latest()
	} else {
		records, err = s.store.Get(id)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		return i.Restore(records)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if derr, ok := result.(error); ok && derr != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, derr)
	}
	return connect.NewResponse(&RestoreResponse{CheckpointID: id}), nil
}

// RegistryNames lists the registry's bound names.
func (s *Service) RegistryNames(ctx context.Context, req *connect.Request[RegistryNamesRequest]) (*connect.Response[RegistryNamesResponse], error) {
	result, err := s.worker.Do(func(i *interp.Interpreter) interface{} {
		return &RegistryNamesResponse{Names: i.Registry().Names()}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*RegistryNamesResponse)), nil
}

// OpenSession creates a console session.
func (s *Service) OpenSession(ctx context.Context, req *connect.Request[OpenSessionRequest]) (*connect.Response[OpenSessionResponse], error) {
	return connect.NewResponse(&OpenSessionResponse{Session: s.sessions.Create()}), nil
}
