// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package api exposes the local operations endpoint: health, metrics,
// scheduler status, and a push trigger for manual syncs. Bound to loopback
// by default; there is no authentication layer.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firesync/firesync/internal/config"
	"github.com/firesync/firesync/internal/ledger"
	"github.com/firesync/firesync/internal/logging"
	"github.com/firesync/firesync/internal/models"
	"github.com/firesync/firesync/internal/syncer"
)

// Server is the ops HTTP server. Implements suture.Service.
type Server struct {
	addr      string
	scheduler *syncer.Scheduler
	ledger    *ledger.Ledger
	version   string
}

// NewServer wires the ops server.
func NewServer(cfg *config.ServerConfig, scheduler *syncer.Scheduler, led *ledger.Ledger, version string) *Server {
	return &Server{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		scheduler: scheduler,
		ledger:    led,
		version:   version,
	}
}

// Routes builds the router. Split out so tests can exercise handlers
// without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/sync", s.handleSync)
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Info().Str("addr", s.addr).Msg("ops server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("ops server shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) String() string {
	return "ops-server"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     s.version,
		"ledger_size": s.ledger.Len(),
	})
}

// statusResponse is the GET /api/v1/status body.
type statusResponse struct {
	syncer.Status
	LedgerEntries int `json:"ledger_entries"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        s.scheduler.Status(),
		LedgerEntries: s.ledger.Len(),
	})
}

// syncRequest is the POST /api/v1/sync body. All fields optional.
type syncRequest struct {
	TranscriptIDs []string `json:"transcript_ids"`
}

// handleSync queues a manual cycle. Returns 202 whether the request was
// queued or coalesced into one already pending.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	queued := s.scheduler.RequestSync(models.SyncRequest{
		Reason:        models.ReasonManual,
		TranscriptIDs: body.TranscriptIDs,
	})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
		"queued": queued,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("encoding response")
	}
}
