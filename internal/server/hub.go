package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/shellworks/shelltrainer/internal/logger"
	"github.com/shellworks/shelltrainer/internal/training"
)

// Hub tracks WebSocket subscribers and broadcasts run frames to them.
// Subscribers that fail a write are dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Add registers a subscriber connection
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Remove drops a subscriber and closes its connection
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll drops every subscriber
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

// stepFrame is one timeline step on the wire
type stepFrame struct {
	Type      string  `json:"type"`
	RunID     string  `json:"run_id"`
	Cell      int     `json:"cell"`
	Kind      string  `json:"kind"`
	Pace      float64 `json:"pace"`
	TimeDelta float64 `json:"time_delta"`
	Energy    float64 `json:"energy"`
	Recovery  bool    `json:"recovery,omitempty"`
}

// resultFrame closes out a run on the wire
type resultFrame struct {
	Type         string   `json:"type"`
	RunID        string   `json:"run_id"`
	State        string   `json:"state"`
	Completed    bool     `json:"completed"`
	TotalTime    float64  `json:"total_time"`
	Score        float64  `json:"score"`
	Experience   int      `json:"experience"`
	Achievements []string `json:"achievements,omitempty"`
}

// BroadcastReport streams a finished run to every subscriber: one frame per
// timeline step, then a result frame.
func (h *Hub) BroadcastReport(report *training.RunReport) {
	if h.Count() == 0 {
		return
	}

	for _, step := range report.Timeline.Steps {
		h.broadcast(stepFrame{
			Type:      "step",
			RunID:     report.RunID,
			Cell:      step.CellIndex,
			Kind:      step.Kind.String(),
			Pace:      step.Pace,
			TimeDelta: step.TimeDelta,
			Energy:    step.EnergyRemaining,
			Recovery:  step.Recovery,
		})
	}

	h.broadcast(resultFrame{
		Type:         "result",
		RunID:        report.RunID,
		State:        report.Timeline.State.String(),
		Completed:    report.Timeline.Completed,
		TotalTime:    report.Timeline.TotalTime,
		Score:        report.Result.Score,
		Experience:   report.Result.Experience,
		Achievements: report.Result.Achievements,
	})
}

// broadcast sends one frame to every subscriber, dropping any that error
func (h *Hub) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode broadcast frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("Dropping WebSocket subscriber", "remote", conn.RemoteAddr().String(), "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
