package milp

import (
	"context"
	"fmt"
	"math"

	"github.com/bartolsthoorn/gohighs/highs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the integrality tolerance applied to integer columns
// of a returned solution.
const DefaultTolerance = 1e-6

// HiGHS solves models with the HiGHS engine.
type HiGHS struct {
	Tolerance float64
	logger    *zap.Logger
}

// NewHiGHS returns a HiGHS solver. A non-positive tolerance selects
// DefaultTolerance.
func NewHiGHS(logger *zap.Logger, tolerance float64) *HiGHS {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &HiGHS{Tolerance: tolerance, logger: logger}
}

type outcome struct {
	status Status
	values []float64
	err    error
}

// Solve implements Solver. The engine runs on its own goroutine so that a
// cancelled context returns immediately; the abandoned solve finishes in the
// background.
func (s *HiGHS) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	model := translate(m)
	done := make(chan outcome, 1)
	go func() {
		solution, err := model.Solve(highs.WithOutput(false))
		if err != nil {
			done <- outcome{err: err}
			return
		}
		status := classify(solution.IsOptimal(), solution.IsTimeLimit(),
			solution.Status == highs.ModelStatusUnboundedOrInfeasible,
			solution.IsInfeasible(), solution.IsUnbounded())
		var values []float64
		if status == StatusOptimal {
			values = append([]float64(nil), solution.ColValues...)
		}
		done <- outcome{status: status, values: values}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("highs: solve model %q: %w", m.name, res.err)
	}

	if res.status != StatusOptimal {
		logger.Debug("model not solved to optimality",
			zap.String("op", "milp.HiGHS.Solve"),
			zap.String("model", m.name),
			zap.String("status", res.status.String()),
		)
		return &Solution{Status: res.status}, nil
	}

	values, ok := snapIntegers(m, res.values, tol)
	if !ok {
		logger.Warn("engine returned a non-integral value for an integer variable",
			zap.String("op", "milp.HiGHS.Solve"),
			zap.String("model", m.name),
			zap.Float64s("values", res.values),
		)
		return &Solution{Status: StatusUndefined}, nil
	}

	_, objective := m.Objective()
	obj := floats.Dot(m.dense(objective), values) + objective.Constant

	logger.Debug("model solved",
		zap.String("op", "milp.HiGHS.Solve"),
		zap.String("model", m.name),
		zap.Float64("objective", obj),
	)
	return &Solution{Status: StatusOptimal, Objective: &obj, Values: values}, nil
}

// translate maps m onto engine columns and rows. The engine minimizes, so a
// maximize objective is negated; the objective constant is applied after the
// solve.
func translate(m *Model) highs.Model {
	n := len(m.vars)
	sense, objective := m.Objective()
	costs := m.dense(objective)
	if sense == Maximize {
		floats.Scale(-1, costs)
	}

	model := highs.Model{
		ColCosts: costs,
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
	}
	integer := false
	for j, v := range m.vars {
		model.ColLower[j] = v.lower
		model.ColUpper[j] = v.upper
		if v.kind == Integer {
			integer = true
		}
	}
	if integer {
		model.VarTypes = make([]highs.VariableType, n)
		for j, v := range m.vars {
			if v.kind == Integer {
				model.VarTypes[j] = highs.Integer
			}
		}
	}

	for _, c := range m.constraints {
		lower, upper := rowBounds(c.Op, c.RHS)
		model.AddDenseRow(lower, m.dense(c.Expr), upper)
	}
	return model
}

// rowBounds expresses a relation as a ranged row lower <= a·x <= upper.
func rowBounds(op Op, rhs float64) (float64, float64) {
	switch op {
	case LE:
		return math.Inf(-1), rhs
	case GE:
		return rhs, math.Inf(1)
	default:
		return rhs, rhs
	}
}

// classify maps the engine's model status onto Status.
func classify(optimal, timeLimit, unboundedOrInfeasible, infeasible, unbounded bool) Status {
	switch {
	case optimal:
		return StatusOptimal
	case timeLimit:
		return StatusNotSolved
	case unboundedOrInfeasible:
		return StatusUndefined
	case infeasible:
		return StatusInfeasible
	case unbounded:
		return StatusUnbounded
	default:
		return StatusUndefined
	}
}

// snapIntegers rounds integer columns to the nearest integer. It reports
// false when a value is missing or an integer column is further than tol
// from an integer.
func snapIntegers(m *Model, values []float64, tol float64) ([]float64, bool) {
	if len(values) != len(m.vars) {
		return nil, false
	}
	out := make([]float64, len(values))
	copy(out, values)
	for j, v := range m.vars {
		if v.kind != Integer {
			continue
		}
		rounded := math.Round(out[j])
		if math.Abs(out[j]-rounded) > tol {
			return nil, false
		}
		out[j] = rounded
	}
	return out, true
}
