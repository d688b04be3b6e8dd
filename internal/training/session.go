// Package training wires the course generator, planner, simulator and
// scoring engine into the full run pipeline, and fans out preview runs
// across workers. Every pipeline invocation is independent: all inputs are
// immutable snapshots and all outputs are freshly allocated, so no
// synchronization is needed between concurrent runs.
package training

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/course"
	"github.com/shellworks/shelltrainer/internal/logger"
	"github.com/shellworks/shelltrainer/internal/nav"
	"github.com/shellworks/shelltrainer/internal/scoring"
	"github.com/shellworks/shelltrainer/internal/sim"
	"github.com/shellworks/shelltrainer/internal/terrain"
)

// RunRequest describes one training run
type RunRequest struct {
	Seed    int64
	Length  course.LengthCategory
	Tier    terrain.Tier
	Weights *course.Weights // Optional override of the tier distribution
	Agent   *agent.Model
}

// RunReport is the complete outcome of one pipeline invocation
type RunReport struct {
	RunID    string
	Request  RunRequest
	Grid     *terrain.Grid
	Plan     *nav.Plan
	Timeline *sim.Timeline
	Result   *scoring.Result
}

// Session owns one configured pipeline. Sessions are stateless between runs
// and safe for concurrent use.
type Session struct {
	generator *course.Generator
	planner   *nav.Planner
	simulator *sim.Simulator
	scorer    *scoring.Engine
}

// NewSession builds a session from the given component configs
func NewSession(genCfg course.Config, simCfg sim.Config, scoreCfg scoring.Config) *Session {
	planner := nav.NewPlanner()
	simulator := sim.NewSimulator(simCfg)
	return &Session{
		generator: course.NewGenerator(genCfg),
		planner:   planner,
		simulator: simulator,
		scorer:    scoring.NewEngine(scoreCfg, planner, simulator),
	}
}

// NewSessionWithDefaults builds a session with every component on its
// default configuration
func NewSessionWithDefaults() *Session {
	return NewSession(course.DefaultConfig(), sim.DefaultConfig(), scoring.DefaultConfig())
}

// Run executes generate, plan, simulate and score for one request. The
// context is checked at each step boundary; abandoning a pipeline mid-way
// has no side effects because no step commits external state.
func (s *Session) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if req.Agent == nil {
		return nil, fmt.Errorf("training: %w: nil agent", agent.ErrInvalidAgent)
	}
	if err := req.Agent.Validate(); err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:   uuid.NewString(),
		Request: req,
	}

	grid, err := s.generator.Generate(req.Seed, req.Length, req.Tier, req.Weights)
	if err != nil {
		return nil, err
	}
	report.Grid = grid
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := s.planner.Plan(grid, req.Agent)
	if err != nil {
		return nil, err
	}
	report.Plan = plan
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeline, err := s.simulator.Simulate(grid, plan)
	if err != nil {
		return nil, err
	}
	report.Timeline = timeline
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.scorer.Score(timeline, req.Agent, grid)
	if err != nil {
		return nil, err
	}
	report.Result = result

	logger.Debug("Training run finished",
		"run_id", report.RunID,
		"seed", req.Seed,
		"tier", req.Tier.String(),
		"state", timeline.State.String(),
		"score", result.Score,
	)

	return report, nil
}

// RunPreviews executes the pipeline for workers-bounded parallel previews of
// candidate courses, deriving per-candidate seeds from the request seed.
// Reports come back in candidate order. A cancelled context stops the
// remaining candidates; completed reports are still returned alongside the
// first error encountered.
func (s *Session) RunPreviews(ctx context.Context, req RunRequest, candidates, workers int) ([]*RunReport, error) {
	if candidates <= 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > candidates {
		workers = candidates
	}

	reports := make([]*RunReport, candidates)
	errs := make([]error, candidates)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				candidateReq := req
				// Candidate seeds are derived, not random, so previews are
				// reproducible and replayable just like normal runs.
				candidateReq.Seed = req.Seed + int64(i)
				reports[i], errs[i] = s.Run(ctx, candidateReq)
			}
		}()
	}

dispatch:
	for i := 0; i < candidates; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	out := make([]*RunReport, 0, candidates)
	var firstErr error
	for i := 0; i < candidates; i++ {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if reports[i] != nil {
			out = append(out, reports[i])
		}
	}
	if firstErr == nil && ctx.Err() != nil && len(out) < candidates {
		firstErr = ctx.Err()
	}
	return out, firstErr
}

// Replay regenerates the exact course used by a previously recorded run and
// re-executes the pipeline. Because every step is a pure function of its
// inputs, the replayed report matches the original except for its run ID.
func (s *Session) Replay(ctx context.Context, req RunRequest) (*RunReport, error) {
	return s.Run(ctx, req)
}
