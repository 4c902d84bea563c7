// Package sweep solves the scenario model across a grid of near-term and
// longer-term price multipliers.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/vest-optimizer/internal/config"
	"github.com/iwvelando/vest-optimizer/internal/scenario"
	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Optimizer solves a single scenario.
type Optimizer interface {
	Optimize(ctx context.Context, in scenario.Inputs) (*scenario.Result, error)
}

// Grid holds the axis values of a sweep.
type Grid struct {
	NearTerm   []float64 `json:"nearTerm"`
	LongerTerm []float64 `json:"longerTerm"`
}

// NewGrid expands both ranges into axis values.
func NewGrid(nearTerm, longerTerm config.Range) (Grid, error) {
	near, err := nearTerm.Values()
	if err != nil {
		return Grid{}, fmt.Errorf("near-term axis: %w", err)
	}
	longer, err := longerTerm.Values()
	if err != nil {
		return Grid{}, fmt.Errorf("longer-term axis: %w", err)
	}
	return Grid{NearTerm: near, LongerTerm: longer}, nil
}

// Size is the number of scenarios in the grid.
func (g Grid) Size() int {
	return len(g.NearTerm) * len(g.LongerTerm)
}

// Cell is the outcome of one scenario. Exactly one of Result and Error is set
// once the sweep completes.
type Cell struct {
	NearTermMultiplier   float64          `json:"nearTermMultiplier"`
	LongerTermMultiplier float64          `json:"longerTermMultiplier"`
	Result               *scenario.Result `json:"result,omitempty"`
	Error                string           `json:"error,omitempty"`
}

// Failed reports whether the scenario produced no result.
func (c Cell) Failed() bool {
	return c.Result == nil
}

// Report is the outcome of a sweep. Cells are stored row-major with one row
// per near-term multiplier.
type Report struct {
	RunID    string        `json:"runId"`
	Grid     Grid          `json:"grid"`
	Cells    []Cell        `json:"cells"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// Cell returns the cell at near-term index i and longer-term index j.
func (r *Report) Cell(i, j int) *Cell {
	if i < 0 || i >= len(r.Grid.NearTerm) || j < 0 || j >= len(r.Grid.LongerTerm) {
		return nil
	}
	return &r.Cells[i*len(r.Grid.LongerTerm)+j]
}

// Find returns the cell for the given multipliers, or nil.
func (r *Report) Find(nearTerm, longerTerm float64) *Cell {
	for i := range r.Cells {
		if r.Cells[i].NearTermMultiplier == nearTerm && r.Cells[i].LongerTermMultiplier == longerTerm {
			return &r.Cells[i]
		}
	}
	return nil
}

// Runner executes sweeps for one configuration.
type Runner struct {
	logger    *zap.Logger
	optimizer Optimizer
	config    *config.Configuration
}

// NewRunner validates conf and returns a Runner for it.
func NewRunner(logger *zap.Logger, optimizer Optimizer, conf *config.Configuration) (*Runner, error) {
	if optimizer == nil {
		return nil, fmt.Errorf("optimizer cannot be nil")
	}
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, optimizer: optimizer, config: conf}, nil
}

// Run solves every scenario of the grid. Under the abort policy the first
// scenario error cancels the remaining work and is returned. Under the skip
// policy failed scenarios are recorded in their cells and the sweep continues.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	grid, err := NewGrid(r.config.Sweep.NearTerm, r.config.Sweep.LongerTerm)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := r.logger.With(zap.String("runId", runID))
	skip := r.config.Sweep.OnFailure == constants.FailurePolicySkip
	start := time.Now()

	logger.Info("sweep started",
		zap.String("op", "sweep.Run"),
		zap.Int("scenarios", grid.Size()),
		zap.Int("workers", r.config.Sweep.Workers),
		zap.String("onFailure", r.config.Sweep.OnFailure),
	)

	report := &Report{
		RunID: runID,
		Grid:  grid,
		Cells: make([]Cell, grid.Size()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Sweep.Workers)

schedule:
	for i, near := range grid.NearTerm {
		for j, longer := range grid.LongerTerm {
			if gctx.Err() != nil {
				break schedule
			}

			cell := &report.Cells[i*len(grid.LongerTerm)+j]
			cell.NearTermMultiplier = near
			cell.LongerTermMultiplier = longer

			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				result, err := r.optimizer.Optimize(gctx, r.config.ScenarioInputs(near, longer))
				if err == nil {
					cell.Result = result
					return nil
				}

				if !skip || gctx.Err() != nil || !isScenarioError(err) {
					return err
				}

				cell.Error = err.Error()
				logger.Warn("scenario failed, skipping",
					zap.String("op", "sweep.Run"),
					zap.Float64("nearTermMultiplier", near),
					zap.Float64("longerTermMultiplier", longer),
					zap.Error(err),
				)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("sweep aborted",
			zap.String("op", "sweep.Run"),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("sweep %s: %w", runID, err)
	}
	// A cancellation between scheduling and Wait leaves unsolved cells.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", runID, err)
	}

	for _, cell := range report.Cells {
		if cell.Failed() {
			report.Failures++
		}
	}
	report.Duration = time.Since(start)

	logger.Info("sweep finished",
		zap.String("op", "sweep.Run"),
		zap.Int("scenarios", grid.Size()),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// isScenarioError reports whether err belongs to one scenario rather than
// the environment. A per-scenario solver timeout counts as the scenario's.
func isScenarioError(err error) bool {
	return errors.Is(err, scenario.ErrInfeasibleOrUnsolved) ||
		errors.Is(err, scenario.ErrInvalidModelInput) ||
		errors.Is(err, context.DeadlineExceeded)
}
