// Package server exposes the supervisor over HTTP: a synchronous JSON
// endpoint, a server-sent-events stream, and raw-text menu ingestion.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	supervisorx "github.com/saborai/saborai/agent/agents/supervisor"
	contractx "github.com/saborai/saborai/agent/contract"
	menux "github.com/saborai/saborai/agent/menu"
)

const (
	appName    = "saborai"
	appVersion = "0.1.0"
)

type Config struct {
	Addr string `envconfig:"ADDR" split_words:"true" default:":8080"`
}

type Server struct {
	supervisor *supervisorx.Supervisor
	menus      menux.Store
}

func New(supervisor *supervisorx.Supervisor, menus menux.Store) (*Server, error) {
	if supervisor == nil {
		return nil, errors.New("supervisor is required")
	}
	if menus == nil {
		return nil, errors.New("menu store is required")
	}
	return &Server{supervisor: supervisor, menus: menus}, nil
}

// Handler returns the full route table wrapped in tracking middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ingest/text", s.handleIngestText)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /query/stream", s.handleQueryStream)
	return trackRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     appName,
		"version": appVersion,
	})
}

type ingestTextRequest struct {
	MenuName string `json:"menu_name"`
	Text     string `json:"text"`
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.MenuName) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "menu_name and text are required")
		return
	}

	if err := s.menus.Save(r.Context(), req.MenuName, req.Text); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ingested",
		"menu_name": req.MenuName,
	})
}

type queryRequest struct {
	Query    string `json:"query"`
	MenuName string `json:"menu_name,omitempty"`
}

func (q queryRequest) toQuery(r *http.Request) contractx.Query {
	return contractx.Query{
		Text:      q.Query,
		Menu:      q.MenuName,
		RequestID: requestIDFrom(r.Context()),
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	agg, err := s.supervisor.HandleQuery(r.Context(), req.toQuery(r))
	switch {
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrAllAgentsFailed):
		// The aggregate still describes what happened; surface it with the
		// failure status so the caller can decide.
		writeJSON(w, http.StatusBadGateway, agg)
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, agg)
	}
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	events, err := s.supervisor.StreamQuery(r.Context(), req.toQuery(r))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, contractx.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported by connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal stream event")
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Consumer disconnected; the supervisor notices via r.Context().
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
