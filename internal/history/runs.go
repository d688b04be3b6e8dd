package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shellworks/shelltrainer/internal/training"
)

// Run is one persisted run record
type Run struct {
	ID             string
	AgentID        string
	AgentLevel     int
	Seed           int64
	LengthCategory string
	Tier           string
	Completed      bool
	CellsCompleted int
	TotalTime      float64
	Score          float64
	Experience     int
	StatDeltas     map[string]float64
	Achievements   []string
	CreatedAt      time.Time
}

// RecordRun persists a finished pipeline report
func (s *Store) RecordRun(report *training.RunReport) error {
	deltas, err := json.Marshal(report.Result.StatDeltas)
	if err != nil {
		return fmt.Errorf("history: encode stat deltas: %w", err)
	}

	query := s.dialect.Rebind(`INSERT INTO runs
		(id, agent_id, agent_level, seed, length_category, tier, completed,
		 cells_completed, total_time, score, experience, stat_deltas,
		 achievements, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	completed := 0
	if report.Result.Completed {
		completed = 1
	}

	_, err = s.db.Exec(query,
		report.RunID,
		report.Request.Agent.ID,
		report.Request.Agent.Level,
		report.Request.Seed,
		report.Request.Length.String(),
		report.Request.Tier.String(),
		completed,
		report.Timeline.CellsCompleted,
		report.Result.TotalTime,
		report.Result.Score,
		report.Result.Experience,
		string(deltas),
		strings.Join(report.Result.Achievements, ","),
		now().UTC(),
	)
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return fmt.Errorf("history: run %s already recorded", report.RunID)
		}
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs for an agent, newest first
func (s *Store) RecentRuns(agentID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = s.keepPerAgent
	}

	query := s.dialect.Rebind(`SELECT id, agent_id, agent_level, seed,
		length_category, tier, completed, cells_completed, total_time, score,
		experience, stat_deltas, achievements, created_at
		FROM runs WHERE agent_id = ?
		ORDER BY created_at DESC LIMIT ?`)

	rows, err := s.db.Query(query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// BestScore returns an agent's best score at a tier. Returns ok=false when
// the agent has no recorded runs at that tier.
func (s *Store) BestScore(agentID, tier string) (float64, bool, error) {
	query := s.dialect.Rebind(
		`SELECT MAX(score) FROM runs WHERE agent_id = ? AND tier = ?`)

	var best sql.NullFloat64
	if err := s.db.QueryRow(query, agentID, tier).Scan(&best); err != nil {
		return 0, false, fmt.Errorf("history: query best score: %w", err)
	}
	if !best.Valid {
		return 0, false, nil
	}
	return best.Float64, true, nil
}

// TotalExperience sums the recorded experience awards for an agent
func (s *Store) TotalExperience(agentID string) (int, error) {
	query := s.dialect.Rebind(
		`SELECT COALESCE(SUM(experience), 0) FROM runs WHERE agent_id = ?`)

	var total int
	if err := s.db.QueryRow(query, agentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("history: query total experience: %w", err)
	}
	return total, nil
}

// Trim deletes an agent's oldest runs beyond the configured retention bound
func (s *Store) Trim(agentID string) error {
	query := s.dialect.Rebind(`DELETE FROM runs WHERE agent_id = ? AND id NOT IN (
		SELECT id FROM runs WHERE agent_id = ?
		ORDER BY created_at DESC LIMIT ?)`)

	if _, err := s.db.Exec(query, agentID, agentID, s.keepPerAgent); err != nil {
		return fmt.Errorf("history: trim runs: %w", err)
	}
	return nil
}

// scanRuns reads run rows
func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var completed int
		var deltas, achievements string
		err := rows.Scan(&r.ID, &r.AgentID, &r.AgentLevel, &r.Seed,
			&r.LengthCategory, &r.Tier, &completed, &r.CellsCompleted,
			&r.TotalTime, &r.Score, &r.Experience, &deltas, &achievements,
			&r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Completed = completed != 0
		if err := json.Unmarshal([]byte(deltas), &r.StatDeltas); err != nil {
			return nil, fmt.Errorf("history: decode stat deltas: %w", err)
		}
		if achievements != "" {
			r.Achievements = strings.Split(achievements, ",")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
