// Package server exposes the training pipeline over HTTP and streams run
// timelines to WebSocket subscribers. It is a thin collaborator around the
// engine: the engine computes, the server transports and records.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/config"
	"github.com/shellworks/shelltrainer/internal/course"
	"github.com/shellworks/shelltrainer/internal/history"
	"github.com/shellworks/shelltrainer/internal/logger"
	"github.com/shellworks/shelltrainer/internal/terrain"
	"github.com/shellworks/shelltrainer/internal/training"
)

// Server serves the training API
type Server struct {
	cfg     config.ServerConfig
	session *training.Session
	store   *history.Store // nil disables run recording
	hub     *Hub

	httpServer *http.Server
	mu         sync.Mutex
}

// NewServer creates a server around a configured session. A nil store
// disables history recording.
func NewServer(cfg config.ServerConfig, session *training.Session, store *history.Store) *Server {
	return &Server{
		cfg:     cfg,
		session: session,
		store:   store,
		hub:     NewHub(),
	}
}

// ListenAndServe starts the HTTP server and blocks until shutdown
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/run", s.requireAPIKey(s.handleRun))
	mux.HandleFunc("POST /api/preview", s.requireAPIKey(s.handlePreview))
	mux.HandleFunc("GET /api/agents/{id}/runs", s.handleAgentRuns)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
	}
	s.mu.Unlock()

	logger.Info("Training server listening", "addr", s.cfg.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requireAPIKey wraps a handler with bcrypt API key verification.
// An empty configured hash disables authentication.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKeyHash != "" {
			key := r.Header.Get("X-API-Key")
			if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.APIKeyHash), []byte(key)); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
		}
		next(w, r)
	}
}

// runRequestBody is the JSON shape of a run request
type runRequestBody struct {
	Seed       int64           `json:"seed"`
	Length     string          `json:"length"`
	Tier       string          `json:"tier"`
	Weights    *course.Weights `json:"weights,omitempty"`
	Agent      agentBody       `json:"agent"`
	Candidates int             `json:"candidates,omitempty"` // Preview only
}

type agentBody struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Level          int         `json:"level"`
	Stats          agent.Stats `json:"stats"`
	EnergyCapacity float64     `json:"energy_capacity"`
}

// toRunRequest converts the wire request into an engine request
func (b *runRequestBody) toRunRequest() (training.RunRequest, error) {
	length, err := parseLength(b.Length)
	if err != nil {
		return training.RunRequest{}, err
	}
	tier, err := parseTier(b.Tier)
	if err != nil {
		return training.RunRequest{}, err
	}
	return training.RunRequest{
		Seed:    b.Seed,
		Length:  length,
		Tier:    tier,
		Weights: b.Weights,
		Agent: &agent.Model{
			ID:             b.Agent.ID,
			Name:           b.Agent.Name,
			Level:          b.Agent.Level,
			Stats:          b.Agent.Stats,
			EnergyCapacity: b.Agent.EnergyCapacity,
		},
	}, nil
}

// handleRun executes one training run, records it, streams its timeline to
// subscribers and returns the report.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxMessageSize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := body.toRunRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.session.Run(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		writeError(w, status, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.RecordRun(report); err != nil {
			logger.Error("Failed to record run", "run_id", report.RunID, "error", err)
		} else if err := s.store.Trim(req.Agent.ID); err != nil {
			logger.Warning("Failed to trim run history", "agent_id", req.Agent.ID, "error", err)
		}
	}

	s.hub.BroadcastReport(report)
	writeJSON(w, http.StatusOK, reportPayload(report))
}

// handlePreview fans a request out over derived candidate seeds and returns
// every candidate's report, letting callers pick a course before committing.
// Previews are never recorded.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxMessageSize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidates := body.Candidates
	if candidates <= 0 {
		candidates = 4
	}
	if candidates > s.cfg.MaxPreviewCandidates {
		candidates = s.cfg.MaxPreviewCandidates
	}

	req, err := body.toRunRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.session.RunPreviews(r.Context(), req, candidates, s.cfg.PreviewWorkers)
	if err != nil && len(reports) == 0 {
		writeError(w, statusForError(err), err.Error())
		return
	}

	payloads := make([]map[string]any, 0, len(reports))
	for _, report := range reports {
		payloads = append(payloads, reportPayload(report))
	}
	writeJSON(w, http.StatusOK, map[string]any{"previews": payloads})
}

// handleAgentRuns returns an agent's recent recorded runs
func (s *Server) handleAgentRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	runs, err := s.store.RecentRuns(r.PathValue("id"), 0)
	if err != nil {
		logger.Error("Failed to query run history", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleWebSocket upgrades a subscriber connection and registers it with
// the hub. Subscribers receive step and result frames for every run the
// server executes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return s.cfg.IsOriginAllowed(r.Header.Get("Origin"), r.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warning("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	s.hub.Add(conn)
	logger.Debug("WebSocket subscriber connected", "remote", conn.RemoteAddr().String())

	// Subscribers never send application messages, but control frames are
	// only processed inside a read call, so keep one running. The read
	// erroring means the client is gone; drop it from the hub.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug("WebSocket subscriber disconnected", "remote", conn.RemoteAddr().String())
				s.hub.Remove(conn)
				return
			}
		}
	}()
}

// reportPayload shapes a report for the wire. The timeline is included in
// full; presentation is the client's concern.
func reportPayload(report *training.RunReport) map[string]any {
	cells := make([]map[string]any, len(report.Grid.Cells))
	for i, c := range report.Grid.Cells {
		cells[i] = map[string]any{
			"index":  c.Index,
			"kind":   c.Kind.String(),
			"cost":   c.Cost,
			"hazard": c.Hazard,
		}
	}

	steps := make([]map[string]any, len(report.Timeline.Steps))
	for i, st := range report.Timeline.Steps {
		steps[i] = map[string]any{
			"cell":       st.CellIndex,
			"kind":       st.Kind.String(),
			"pace":       st.Pace,
			"time_delta": st.TimeDelta,
			"energy":     st.EnergyRemaining,
			"recovery":   st.Recovery,
		}
	}

	mastery := make(map[string]any, len(report.Result.Mastery))
	for kind, m := range report.Result.Mastery {
		mastery[kind.String()] = map[string]any{
			"cells":    m.Cells,
			"avg_pace": m.AvgPace,
			"mastered": m.Mastered,
		}
	}

	return map[string]any{
		"run_id": report.RunID,
		"seed":   report.Request.Seed,
		"tier":   report.Request.Tier.String(),
		"length": report.Request.Length.String(),
		"course": map[string]any{
			"cells":   cells,
			"hazards": report.Grid.HazardCount(),
		},
		"timeline": map[string]any{
			"state":           report.Timeline.State.String(),
			"completed":       report.Timeline.Completed,
			"cells_completed": report.Timeline.CellsCompleted,
			"total_time":      report.Timeline.TotalTime,
			"energy_left":     report.Timeline.EnergyLeft,
			"steps":           steps,
		},
		"result": map[string]any{
			"score":        report.Result.Score,
			"experience":   report.Result.Experience,
			"completed":    report.Result.Completed,
			"fraction":     report.Result.FractionCompleted,
			"mastery":      mastery,
			"stat_deltas":  report.Result.StatDeltas,
			"achievements": report.Result.Achievements,
		},
	}
}

// parseLength parses a wire length category
func parseLength(s string) (course.LengthCategory, error) {
	switch s {
	case "short", "":
		return course.LengthShort, nil
	case "medium":
		return course.LengthMedium, nil
	case "long":
		return course.LengthLong, nil
	default:
		return 0, &apiError{"unknown length category: " + s}
	}
}

// parseTier parses a wire difficulty tier
func parseTier(s string) (terrain.Tier, error) {
	for _, tier := range terrain.AllTiers() {
		if tier.String() == s {
			return tier, nil
		}
	}
	if s == "" {
		return terrain.TierBeginner, nil
	}
	return 0, &apiError{"unknown difficulty tier: " + s}
}

// apiError is a client-facing request error
type apiError struct{ msg string }

func (e *apiError) Error() string { return e.msg }

// statusForError maps engine errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case isClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// isClientError reports whether the error was caused by request data
func isClientError(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return true
	}
	return errors.Is(err, agent.ErrInvalidAgent) || errors.Is(err, course.ErrBadWeights)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
