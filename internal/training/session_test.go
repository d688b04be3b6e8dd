package training

import (
	"context"
	"errors"
	"testing"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/course"
	"github.com/shellworks/shelltrainer/internal/terrain"
)

func testRequest() RunRequest {
	return RunRequest{
		Seed:   42,
		Length: course.LengthShort,
		Tier:   terrain.TierBeginner,
		Agent: &agent.Model{
			ID:    "a1",
			Name:  "Testudo",
			Level: 1,
			Stats: agent.Stats{
				Speed:    0.5,
				Strength: 0.5,
				Stamina:  0.5,
				Swim:     0.5,
				Climb:    0.5,
			},
			EnergyCapacity: 100,
		},
	}
}

func TestSession_Run(t *testing.T) {
	s := NewSessionWithDefaults()

	report, err := s.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.RunID == "" {
		t.Error("report has no run ID")
	}
	if report.Grid == nil || report.Grid.Length() == 0 {
		t.Fatal("report has no course")
	}
	if report.Plan == nil || len(report.Plan.Steps) != report.Grid.Length() {
		t.Error("plan does not cover the course")
	}
	if report.Timeline == nil {
		t.Fatal("report has no timeline")
	}
	if report.Result == nil {
		t.Fatal("report has no result")
	}
	if report.Result.Score <= 0 {
		t.Errorf("score = %v, want > 0", report.Result.Score)
	}
}

func TestSession_RunNilAgent(t *testing.T) {
	s := NewSessionWithDefaults()
	req := testRequest()
	req.Agent = nil

	_, err := s.Run(context.Background(), req)
	if err == nil {
		t.Fatal("expected error for nil agent, got nil")
	}
	if !errors.Is(err, agent.ErrInvalidAgent) {
		t.Errorf("error %v does not wrap ErrInvalidAgent", err)
	}
}

func TestSession_RunInvalidAgent(t *testing.T) {
	s := NewSessionWithDefaults()
	req := testRequest()
	req.Agent.Stats.Swim = 2.0

	if _, err := s.Run(context.Background(), req); !errors.Is(err, agent.ErrInvalidAgent) {
		t.Errorf("error %v does not wrap ErrInvalidAgent", err)
	}
}

func TestSession_RunCancelledContext(t *testing.T) {
	s := NewSessionWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, testRequest())
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v is not context.Canceled", err)
	}
}

func TestSession_ReplayMatchesOriginal(t *testing.T) {
	s := NewSessionWithDefaults()
	ctx := context.Background()

	first, err := s.Run(ctx, testRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	replay, err := s.Replay(ctx, testRequest())
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	// Run IDs are fresh per invocation; everything derived from the seed
	// must match exactly.
	if replay.RunID == first.RunID {
		t.Error("replay reused the original run ID")
	}
	if replay.Grid.Length() != first.Grid.Length() {
		t.Fatalf("replay course length %d, original %d", replay.Grid.Length(), first.Grid.Length())
	}
	for i := range first.Grid.Cells {
		if replay.Grid.Cells[i] != first.Grid.Cells[i] {
			t.Errorf("cell %d differs on replay", i)
		}
	}
	if replay.Timeline.TotalTime != first.Timeline.TotalTime {
		t.Errorf("replay time %v, original %v", replay.Timeline.TotalTime, first.Timeline.TotalTime)
	}
	if replay.Result.Score != first.Result.Score {
		t.Errorf("replay score %v, original %v", replay.Result.Score, first.Result.Score)
	}
}

func TestSession_RunPreviews(t *testing.T) {
	s := NewSessionWithDefaults()

	reports, err := s.RunPreviews(context.Background(), testRequest(), 5, 3)
	if err != nil {
		t.Fatalf("RunPreviews failed: %v", err)
	}
	if len(reports) != 5 {
		t.Fatalf("got %d reports, want 5", len(reports))
	}

	// Candidate seeds are derived in order from the request seed
	seen := make(map[int64]bool)
	for i, report := range reports {
		want := int64(42 + i)
		if report.Request.Seed != want {
			t.Errorf("report %d has seed %d, want %d", i, report.Request.Seed, want)
		}
		if seen[report.Request.Seed] {
			t.Errorf("duplicate candidate seed %d", report.Request.Seed)
		}
		seen[report.Request.Seed] = true
	}
}

func TestSession_RunPreviewsDeterministic(t *testing.T) {
	s := NewSessionWithDefaults()
	ctx := context.Background()

	first, err := s.RunPreviews(ctx, testRequest(), 4, 4)
	if err != nil {
		t.Fatalf("RunPreviews failed: %v", err)
	}
	second, err := s.RunPreviews(ctx, testRequest(), 4, 1)
	if err != nil {
		t.Fatalf("RunPreviews failed on second call: %v", err)
	}

	// Worker count must not affect outcomes, only throughput
	for i := range first {
		if first[i].Result.Score != second[i].Result.Score {
			t.Errorf("candidate %d scored %v with 4 workers, %v with 1",
				i, first[i].Result.Score, second[i].Result.Score)
		}
		if first[i].Timeline.TotalTime != second[i].Timeline.TotalTime {
			t.Errorf("candidate %d time differs across worker counts", i)
		}
	}
}

func TestSession_RunPreviewsZeroCandidates(t *testing.T) {
	s := NewSessionWithDefaults()

	reports, err := s.RunPreviews(context.Background(), testRequest(), 0, 4)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if reports != nil {
		t.Errorf("got %v, want nil for zero candidates", reports)
	}
}

func TestSession_RunPreviewsCancelled(t *testing.T) {
	s := NewSessionWithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := s.RunPreviews(ctx, testRequest(), 8, 2)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if len(reports) == 8 {
		t.Error("cancelled preview batch still completed every candidate")
	}
}
