// Package nav computes per-cell pacing plans for an agent crossing a course.
//
// A course is a single forward sequence of cells, so route choice is fixed
// and planning reduces to pacing strategy: spend the agent's energy budget
// where its skill advantage buys the most time. If courses ever gain lateral
// branching, the greedy selection below generalizes to a least-weighted-path
// search over the cell transition graph; the linear case is the degenerate
// form of that search.
package nav

import (
	"container/heap"
	"fmt"

	"github.com/shellworks/shelltrainer/internal/agent"
	"github.com/shellworks/shelltrainer/internal/terrain"
)

const (
	// MinPace is the slowest pace an agent will move at. Pace is a fraction
	// of the agent's maximum speed.
	MinPace = 0.4

	// MaxPace is full speed
	MaxPace = 1.0

	// paceStep is the greedy allocator's pace increment per round
	paceStep = 0.05

	// skillFloor guards division when a skill is at or near zero
	skillFloor = 0.05
)

// Step is one planned cell traversal
type Step struct {
	CellIndex       int
	Pace            float64
	PredictedEnergy float64
	PredictedTime   float64
}

// Plan is the full pacing plan for one run. Produced once per run and
// consumed unmodified by the simulator.
type Plan struct {
	Steps []Step

	// EnergyConstrained is set when even minimum pace over the whole course
	// exceeds the agent's capacity. The simulator is expected to produce an
	// incomplete run in that case, not the planner.
	EnergyConstrained bool

	// Capacity is the energy budget the plan was computed against, carried
	// along so the simulator starts the run at full energy.
	Capacity float64

	PredictedTotalTime   float64
	PredictedTotalEnergy float64
}

// BaseCost returns the effective traversal cost of a cell for an agent:
// the cell's cost multiplier divided by the agent's relevant skill.
func BaseCost(cell terrain.Cell, a *agent.Model) float64 {
	skill := a.SkillFor(cell.Kind)
	if skill < skillFloor {
		skill = skillFloor
	}
	return cell.Cost / skill
}

// energySpend returns the predicted energy cost of crossing a cell at the
// given pace. Spend grows quadratically with pace, so a strong-skill cell
// rewards extra energy more than a weak-skill one, and stamina discounts
// every cell's spend.
func energySpend(cost, pace, stamina float64) float64 {
	staminaFactor := 0.75 + 0.5*stamina
	return cost * pace * pace / staminaFactor
}

// traversalTime returns the predicted time to cross a cell at the given pace
func traversalTime(cost, pace float64) float64 {
	return cost / pace
}

// Planner computes pacing plans. Stateless; safe for concurrent use.
type Planner struct{}

// NewPlanner creates a planner
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan computes the pacing plan for an agent over a grid. The agent must be
// validated first; identical inputs always return an identical plan.
func (p *Planner) Plan(grid *terrain.Grid, a *agent.Model) (*Plan, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if grid.Length() == 0 {
		return nil, fmt.Errorf("nav: %w", terrain.ErrEmptyCourse)
	}

	n := grid.Length()
	costs := make([]float64, n)
	for i, cell := range grid.Cells {
		costs[i] = BaseCost(cell, a)
	}

	// Everything starts at minimum pace; the greedy pass below raises paces
	// where the budget allows.
	paces := make([]float64, n)
	minTotal := 0.0
	for i := range paces {
		paces[i] = MinPace
		minTotal += energySpend(costs[i], MinPace, a.Stats.Stamina)
	}

	plan := &Plan{Steps: make([]Step, n), Capacity: a.EnergyCapacity}

	if minTotal > a.EnergyCapacity {
		// Not enough energy even crawling. Leave every pace at minimum and
		// let the simulator run the course into exhaustion.
		plan.EnergyConstrained = true
	} else {
		p.allocate(costs, paces, grid, a, a.EnergyCapacity-minTotal)
	}

	for i := range plan.Steps {
		spend := energySpend(costs[i], paces[i], a.Stats.Stamina)
		t := traversalTime(costs[i], paces[i])
		plan.Steps[i] = Step{
			CellIndex:       i,
			Pace:            paces[i],
			PredictedEnergy: spend,
			PredictedTime:   t,
		}
		plan.PredictedTotalEnergy += spend
		plan.PredictedTotalTime += t
	}

	return plan, nil
}

// allocate distributes the spare energy budget across cells, one pace step
// at a time, always to the cell where a step buys the most time per unit of
// energy weighted by the agent's skill advantage on that terrain. Ties break
// toward the lowest cell index, keeping the plan fully deterministic.
func (p *Planner) allocate(costs, paces []float64, grid *terrain.Grid, a *agent.Model, budget float64) {
	pq := make(candidateQueue, 0, len(costs))
	for i := range costs {
		if c, ok := candidateFor(i, costs[i], paces[i], grid.Cells[i], a); ok {
			pq = append(pq, c)
		}
	}
	heap.Init(&pq)

	for budget > 0 && pq.Len() > 0 {
		c := heap.Pop(&pq).(candidate)
		if c.energyDelta > budget {
			// This cell's next step no longer fits; cheaper steps on other
			// cells may still fit, so just drop this candidate.
			continue
		}

		budget -= c.energyDelta
		paces[c.index] += paceStep

		if next, ok := candidateFor(c.index, costs[c.index], paces[c.index], grid.Cells[c.index], a); ok {
			heap.Push(&pq, next)
		}
	}
}

// candidate is one potential pace increment on one cell
type candidate struct {
	index       int
	score       float64 // time saved per energy spent, skill-weighted
	energyDelta float64
}

// candidateFor evaluates raising the pace of cell i by one step.
// Returns ok=false once the cell is at maximum pace.
func candidateFor(i int, cost, pace float64, cell terrain.Cell, a *agent.Model) (candidate, bool) {
	next := pace + paceStep
	if next > MaxPace+1e-9 {
		return candidate{}, false
	}

	timeSaved := traversalTime(cost, pace) - traversalTime(cost, next)
	energyDelta := energySpend(cost, next, a.Stats.Stamina) - energySpend(cost, pace, a.Stats.Stamina)
	if energyDelta <= 0 {
		return candidate{}, false
	}

	// Skill advantage relative to terrain difficulty: burning energy on a
	// strong-skill cell yields more benefit than the same energy on a cell
	// the agent is weak on.
	skill := a.SkillFor(cell.Kind)
	if skill < skillFloor {
		skill = skillFloor
	}
	advantage := skill / cell.Cost

	return candidate{
		index:       i,
		score:       timeSaved / energyDelta * advantage,
		energyDelta: energyDelta,
	}, true
}

// candidateQueue is a max-heap of pace-increment candidates
type candidateQueue []candidate

func (q candidateQueue) Len() int { return len(q) }

func (q candidateQueue) Less(i, j int) bool {
	if q[i].score != q[j].score {
		return q[i].score > q[j].score
	}
	return q[i].index < q[j].index
}

func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) { *q = append(*q, x.(candidate)) }

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}
