// Package server exposes the scheduler over HTTP so external systems can
// trigger turns.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// Server handles turn requests over HTTP.
type Server struct {
	scheduler *foreman.Service
	runs      run.Store
	http      *http.Server
	log       zerolog.Logger
}

// New builds the server on the given listen address.
func New(addr string, scheduler *foreman.Service, runs run.Store) *Server {
	s := &Server{
		scheduler: scheduler,
		runs:      runs,
		log:       logging.Component("server"),
	}

	router := httprouter.New()
	router.POST("/v1/turns", s.handleTurn)
	router.GET("/v1/runs/:id", s.handleGetRun)
	router.GET("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type turnResponse struct {
	RunID         string `json:"run_id"`
	SessionID     string `json:"session_id"`
	Response      string `json:"response"`
	Clarification bool   `json:"clarification"`
	DurationMS    int64  `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id and message are required"})
		return
	}

	turn, err := s.scheduler.RunTurn(r.Context(), req.SessionID, req.Message, run.SourceHTTP)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", req.SessionID).Msg("turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		RunID:         turn.RunID,
		SessionID:     turn.SessionID,
		Response:      turn.Response,
		Clarification: turn.Clarification,
		DurationMS:    turn.Duration.Milliseconds(),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.runs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run audit disabled"})
		return
	}
	detail, err := s.runs.Get(r.Context(), params.ByName("id"))
	if errors.Is(err, run.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
