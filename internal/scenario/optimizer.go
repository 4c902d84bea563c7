package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/vest-optimizer/pkg/mathutil"
	"github.com/iwvelando/vest-optimizer/pkg/milp"
	"go.uber.org/zap"
)

var (
	// ErrInvalidModelInput marks inputs that cannot produce a valid model,
	// such as a negative post-withholding share count.
	ErrInvalidModelInput = errors.New("invalid model input")

	// ErrInfeasibleOrUnsolved marks a solve that ended without an optimal
	// solution. Use errors.As with *SolveError to recover the scenario.
	ErrInfeasibleOrUnsolved = errors.New("scenario infeasible or unsolved")
)

// valueTolerance snaps solver noise around a variable's bounds.
const valueTolerance = 1e-7

// SolveError reports a non-optimal solve for the scenario identified by its
// multipliers.
type SolveError struct {
	NearTermMultiplier   float64
	LongerTermMultiplier float64
	Status               milp.Status
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("scenario with near-term multiplier %g and longer-term multiplier %g: solver status %s (%d)",
		e.NearTermMultiplier, e.LongerTermMultiplier, e.Status, int(e.Status))
}

func (e *SolveError) Unwrap() error {
	return ErrInfeasibleOrUnsolved
}

// Allocation is the number of shares sold in each category.
type Allocation struct {
	CurrentShortTerm float64 `json:"currentShortTerm"`
	CurrentLongTerm  float64 `json:"currentLongTerm"`
	NewShortTerm     float64 `json:"newShortTerm"`
	NewLongTerm      float64 `json:"newLongTerm"`
}

// Total is the number of shares allocated across all categories.
func (a Allocation) Total() float64 {
	return a.CurrentShortTerm + a.CurrentLongTerm + a.NewShortTerm + a.NewLongTerm
}

// NewResidence is the number of shares sold under the new residence.
func (a Allocation) NewResidence() float64 {
	return a.NewShortTerm + a.NewLongTerm
}

// Result is the optimal allocation for one scenario.
type Result struct {
	Status     milp.Status        `json:"status"`
	StatusName string             `json:"statusName"`
	Objective  float64            `json:"objective"`
	Values     map[string]float64 `json:"values"`
	Allocation Allocation         `json:"allocation"`
	Relocating bool               `json:"relocating"`

	ShortTermPrice       float64 `json:"shortTermPrice"`
	LongTermPrice        float64 `json:"longTermPrice"`
	NearTermMultiplier   float64 `json:"nearTermMultiplier"`
	LongerTermMultiplier float64 `json:"longerTermMultiplier"`
}

// Optimizer solves scenarios. It holds no per-scenario state and is safe for
// concurrent use as long as its Solver is.
type Optimizer struct {
	logger  *zap.Logger
	solver  milp.Solver
	timeout time.Duration
}

// NewOptimizer returns an Optimizer that solves through solver. A positive
// timeout bounds each individual solve.
func NewOptimizer(logger *zap.Logger, solver milp.Solver, timeout time.Duration) (*Optimizer, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{logger: logger, solver: solver, timeout: timeout}, nil
}

// Optimize builds and solves the model for in. Any outcome other than an
// optimal solution is returned as an error; no result is produced.
func (o *Optimizer) Optimize(ctx context.Context, in Inputs) (*Result, error) {
	model, err := BuildModel(in)
	if err != nil {
		return nil, fmt.Errorf("build scenario (near-term %g, longer-term %g): %w",
			in.NearTermMultiplier, in.LongerTermMultiplier, err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	solution, err := o.solver.Solve(ctx, model.Program)
	if err != nil {
		return nil, fmt.Errorf("solve scenario (near-term %g, longer-term %g): %w",
			in.NearTermMultiplier, in.LongerTermMultiplier, err)
	}

	if solution == nil || solution.Status != milp.StatusOptimal || solution.Objective == nil {
		status := milp.StatusUndefined
		if solution != nil && solution.Status != milp.StatusOptimal {
			status = solution.Status
		}
		return nil, &SolveError{
			NearTermMultiplier:   in.NearTermMultiplier,
			LongerTermMultiplier: in.LongerTermMultiplier,
			Status:               status,
		}
	}

	result := extract(in, model, solution)
	if result.Relocating != mathutil.IsPositiveShares(result.Allocation.NewResidence()) {
		o.logger.Warn("relocation indicator disagrees with new-residence allocation",
			zap.String("op", "scenario.Optimize"),
			zap.Float64("nearTermMultiplier", in.NearTermMultiplier),
			zap.Float64("longerTermMultiplier", in.LongerTermMultiplier),
			zap.Float64("newResidenceShares", result.Allocation.NewResidence()),
		)
	}

	o.logger.Debug("scenario solved",
		zap.String("op", "scenario.Optimize"),
		zap.Float64("nearTermMultiplier", in.NearTermMultiplier),
		zap.Float64("longerTermMultiplier", in.LongerTermMultiplier),
		zap.Float64("objective", result.Objective),
		zap.Bool("relocating", result.Relocating),
	)

	return result, nil
}

func extract(in Inputs, model *Model, solution *milp.Solution) *Result {
	program := model.Program
	values := make(map[string]float64, program.NumVars())
	for i := 0; i < program.NumVars(); i++ {
		v := milp.Var(i)
		lower, upper := program.Bounds(v)
		values[program.VarName(v)] = snap(solution.Value(v), lower, upper)
	}

	allocation := Allocation{
		CurrentShortTerm: values[VarCurrentShortTerm],
		CurrentLongTerm:  values[VarCurrentLongTerm],
		NewShortTerm:     values[VarNewShortTerm],
		NewLongTerm:      values[VarNewLongTerm],
	}

	return &Result{
		Status:               solution.Status,
		StatusName:           solution.Status.String(),
		Objective:            *solution.Objective,
		Values:               values,
		Allocation:           allocation,
		Relocating:           values[VarRelocating] == 1,
		ShortTermPrice:       in.ShortTermPrice(),
		LongTermPrice:        in.LongTermPrice(),
		NearTermMultiplier:   in.NearTermMultiplier,
		LongerTermMultiplier: in.LongerTermMultiplier,
	}
}

func snap(value, lower, upper float64) float64 {
	if mathutil.WithinTolerance(value, lower, valueTolerance) {
		return lower
	}
	if mathutil.WithinTolerance(value, upper, valueTolerance) {
		return upper
	}
	return value
}
